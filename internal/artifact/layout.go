package artifact

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// File and directory names of the layout.
const (
	pagesDir       = "pages"
	scriptsDir     = "jsFiles"
	resourcesDir   = "pdfs"
	screenshotFile = "screenshot.png"
	htmlFile       = "page.html"
	documentFile   = "page.json"

	// ManifestFile lists harvested resource paths.
	ManifestFile = "pdfs.txt"
)

// maxSlugLength keeps slugs below common file name limits.
const maxSlugLength = 200

var (
	// schemePrefix matches "https://", "http://" and a bare leading "//".
	schemePrefix = regexp.MustCompile(`^(\w+:)?//`)

	// unsafeChars are characters not allowed in file names on common systems.
	unsafeChars = regexp.MustCompile(`[<>:"\\|?*\x00-\x1f]`)
)

// Layout resolves artifact paths for one site.
type Layout struct {
	siteDir string
	logDir  string
}

// NewLayout creates the site directory for baseURL under outputDir.
// The site directory is named after the host with a leading "www." removed.
func NewLayout(outputDir, logDir, baseURL string) (*Layout, error) {
	name, err := SiteName(baseURL)
	if err != nil {
		return nil, err
	}
	l := &Layout{
		siteDir: filepath.Join(outputDir, name),
		logDir:  logDir,
	}
	for _, dir := range []string{l.siteDir, l.ScriptDir(), l.ResourceDir(), l.logDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return l, nil
}

// SiteName returns the site directory name for baseURL.
func SiteName(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("invalid site URL %q", baseURL)
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" {
		host += "_" + port
	}
	return host, nil
}

// Slug turns a URL into a file name: the scheme is dropped, "/" becomes
// "-" and characters unsafe in file names become "_".
func Slug(pageURL string) string {
	s := schemePrefix.ReplaceAllString(pageURL, "")
	s = strings.ReplaceAll(s, "/", "-")
	s = unsafeChars.ReplaceAllString(s, "_")
	s = strings.Trim(s, ". ")
	if s == "" {
		s = "index"
	}
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
	}
	return s
}

// SiteDir returns the site directory.
func (l *Layout) SiteDir() string {
	return l.siteDir
}

// LogDir returns the error log directory.
func (l *Layout) LogDir() string {
	return l.logDir
}

// ScriptDir returns the directory captured scripts are written to.
func (l *Layout) ScriptDir() string {
	return filepath.Join(l.siteDir, scriptsDir)
}

// ResourceDir returns the directory harvested resources are written to.
func (l *Layout) ResourceDir() string {
	return filepath.Join(l.siteDir, resourcesDir)
}

// ManifestPath returns the path of the harvested resource list.
func (l *Layout) ManifestPath() string {
	return filepath.Join(l.ResourceDir(), ManifestFile)
}

// PageDir returns the artifact directory of a page and creates it.
func (l *Layout) PageDir(pageURL string) (string, error) {
	dir := filepath.Join(l.siteDir, pagesDir, Slug(pageURL))
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create page directory: %w", err)
	}
	return dir, nil
}

// ScreenshotPath returns where the page screenshot goes.
func (l *Layout) ScreenshotPath(pageURL string) (string, error) {
	dir, err := l.PageDir(pageURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, screenshotFile), nil
}

// WriteHTML writes the rendered HTML of a page.
func (l *Layout) WriteHTML(pageURL, html string) error {
	dir, err := l.PageDir(pageURL)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, htmlFile), []byte(html), 0600); err != nil {
		return fmt.Errorf("failed to write page HTML: %w", err)
	}
	return nil
}

// WriteDocument writes the extracted document of a page as JSON.
func (l *Layout) WriteDocument(pageURL string, doc *model.Document) error {
	dir, err := l.PageDir(pageURL)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, documentFile), data, 0600); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// WriteErrorLog writes the stringified error of a failed page to
// <logDir>/<unixMillis>-<slug>.log and returns the file path.
func (l *Layout) WriteErrorLog(pageURL string, cause error, at time.Time) (string, error) {
	name := strconv.FormatInt(at.UnixMilli(), 10) + "-" + Slug(pageURL) + ".log"
	path := filepath.Join(l.logDir, name)
	msg := "<nil>"
	if cause != nil {
		msg = cause.Error()
	}
	if err := os.WriteFile(path, []byte(msg+"\n"), 0600); err != nil {
		return "", fmt.Errorf("failed to write error log: %w", err)
	}
	return path, nil
}
