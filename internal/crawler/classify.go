package crawler

import (
	"net/url"
	"strings"

	"github.com/nao1215/sitecrawl/internal/frontier"
	"github.com/nao1215/sitecrawl/internal/model"
)

// LinkKind is the bucket a link is classified into.
type LinkKind int

const (
	// Unusable links are dropped: empty hrefs, the no-link sentinel and
	// anything that does not parse.
	Unusable LinkKind = iota

	// Followable links are scheme-qualified links to the crawled site.
	// They become frontier entries.
	Followable

	// NotFollowable links are recorded verbatim as external links of the
	// page but never queued.
	NotFollowable
)

// String returns the bucket name used in logs.
func (k LinkKind) String() string {
	switch k {
	case Followable:
		return "followable"
	case NotFollowable:
		return "not_followable"
	default:
		return "unusable"
	}
}

// Classification is the result of Classify.
type Classification struct {
	// Kind is the bucket of the link.
	Kind LinkKind

	// Canonical is the normalized absolute URL for http(s) links and for
	// relative links that resolve against the base. Other hrefs keep their
	// trimmed raw form. Empty for Unusable links.
	Canonical string
}

// Classify decides how a raw href found on a page is treated.
//
// Design decision: Only hrefs that carry an http or https scheme are ever
// followable. Relative hrefs resolve to same-site pages too, but they are
// bucketed as not followable and kept raw, matching how the frontier files
// this crawler resumes from were produced. Host comparison ignores case and
// a leading "www." on both sides.
//
// Classify is pure and never panics, whatever the input.
func Classify(href, baseURL string) Classification {
	href = strings.TrimSpace(href)
	if href == "" || href == model.NoLinkSentinel {
		return Classification{Kind: Unusable}
	}

	base, err := url.Parse(baseURL)
	if err != nil || !base.IsAbs() || base.Hostname() == "" {
		return Classification{Kind: Unusable}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return Classification{Kind: Unusable}
	}

	scheme := strings.ToLower(ref.Scheme)
	if scheme == "http" || scheme == "https" {
		canonical, err := frontier.Canonicalize(href, baseURL)
		if err != nil {
			// e.g. "http://" without a host
			return Classification{Kind: Unusable}
		}
		if frontier.SameSite(ref.Hostname(), base.Hostname()) {
			return Classification{Kind: Followable, Canonical: canonical}
		}
		return Classification{Kind: NotFollowable, Canonical: canonical}
	}

	canonical := href
	if ref.Scheme == "" {
		if resolved, err := frontier.Canonicalize(href, baseURL); err == nil {
			canonical = resolved
		}
	}
	return Classification{Kind: NotFollowable, Canonical: canonical}
}

// Partition splits the links of a page into canonical followable URLs and
// raw not-followable hrefs. Each bucket keeps first-seen order without
// duplicates. Unusable links are dropped.
func Partition(links []model.Link, baseURL string) (followable, notFollowable []string) {
	followable = make([]string, 0, len(links))
	notFollowable = make([]string, 0, len(links))
	seenF := make(map[string]struct{})
	seenN := make(map[string]struct{})

	for _, link := range links {
		c := Classify(link.Href, baseURL)
		switch c.Kind {
		case Followable:
			if _, ok := seenF[c.Canonical]; ok {
				continue
			}
			seenF[c.Canonical] = struct{}{}
			followable = append(followable, c.Canonical)
		case NotFollowable:
			if _, ok := seenN[link.Href]; ok {
				continue
			}
			seenN[link.Href] = struct{}{}
			notFollowable = append(notFollowable, link.Href)
		case Unusable:
		}
	}
	return followable, notFollowable
}
