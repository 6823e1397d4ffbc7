package frontier

import (
	"fmt"
	"net/url"
	"strings"
)

// Canonicalize returns the dedupe key form of raw.
// Relative references are resolved against base. The result is an absolute
// http(s) URL with lower-cased scheme and host, no fragment and a path of
// at least "/"; the query string is kept verbatim. base may be empty when
// raw is already absolute.
func Canonicalize(raw, base string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}

	if !ref.IsAbs() {
		if base == "" {
			return "", fmt.Errorf("%w: %q is relative and no base was given", ErrInvalidURL, raw)
		}
		b, err := url.Parse(base)
		if err != nil || !b.IsAbs() {
			return "", fmt.Errorf("%w: base %q is not absolute", ErrInvalidURL, base)
		}
		ref = b.ResolveReference(ref)
	}

	ref.Scheme = strings.ToLower(ref.Scheme)
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, ref.Scheme)
	}
	if ref.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}

	ref.Host = strings.ToLower(ref.Host)
	ref.Fragment = ""
	ref.RawFragment = ""

	// Empty path and "/" are the same page.
	if ref.Path == "" && ref.Opaque == "" {
		ref.Path = "/"
		ref.RawPath = ""
	}

	return ref.String(), nil
}

// Origin returns scheme://host of an absolute URL.
func Origin(raw string) (string, error) {
	canonical, err := Canonicalize(raw, "")
	if err != nil {
		return "", err
	}
	u, err := url.Parse(canonical)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return u.Scheme + "://" + u.Host, nil
}

// SameSite reports whether two hostnames name the same site, ignoring
// case, a trailing dot and a leading "www.".
func SameSite(host, baseHost string) bool {
	return stripWWW(host) == stripWWW(baseHost)
}

func stripWWW(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return strings.TrimPrefix(host, "www.")
}
