package crawler

import (
	"slices"
	"testing"

	"github.com/nao1215/sitecrawl/internal/model"
)

// TestClassify tests link classification against a site base URL.
func TestClassify(t *testing.T) {
	t.Parallel()

	const base = "https://s.example"

	tests := []struct {
		name      string
		href      string
		base      string
		kind      LinkKind
		canonical string
	}{
		{name: "empty href", href: "", base: base, kind: Unusable},
		{name: "whitespace href", href: "   ", base: base, kind: Unusable},
		{name: "sentinel", href: model.NoLinkSentinel, base: base, kind: Unusable},
		{name: "same host absolute", href: "https://s.example/a", base: base, kind: Followable, canonical: "https://s.example/a"},
		{name: "same host upper case", href: "HTTPS://S.EXAMPLE/a", base: base, kind: Followable, canonical: "https://s.example/a"},
		{name: "www prefix on link", href: "https://www.s.example/a", base: base, kind: Followable, canonical: "https://www.s.example/a"},
		{name: "www prefix on base", href: "http://s.example/a", base: "https://www.s.example", kind: Followable, canonical: "http://s.example/a"},
		{name: "fragment stripped", href: "https://s.example/a#top", base: base, kind: Followable, canonical: "https://s.example/a"},
		{name: "query kept", href: "https://s.example/a?b=1&a=2", base: base, kind: Followable, canonical: "https://s.example/a?b=1&a=2"},
		{name: "other host", href: "https://other.example/a", base: base, kind: NotFollowable, canonical: "https://other.example/a"},
		{name: "subdomain is another host", href: "https://cdn.s.example/a", base: base, kind: NotFollowable, canonical: "https://cdn.s.example/a"},
		{name: "relative path", href: "/y", base: base, kind: NotFollowable, canonical: "https://s.example/y"},
		{name: "fragment only", href: "#section", base: base, kind: NotFollowable, canonical: "https://s.example/"},
		{name: "mailto", href: "mailto:a@s.example", base: base, kind: NotFollowable, canonical: "mailto:a@s.example"},
		{name: "javascript", href: "javascript:void(0)", base: base, kind: NotFollowable, canonical: "javascript:void(0)"},
		{name: "http without host", href: "http://", base: base, kind: Unusable},
		{name: "unparseable href", href: "http://[::1", base: base, kind: Unusable},
		{name: "relative base", href: "https://s.example/a", base: "/site", kind: Unusable},
		{name: "empty base", href: "https://s.example/a", base: "", kind: Unusable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Classify(tt.href, tt.base)
			if got.Kind != tt.kind {
				t.Errorf("Classify(%q, %q).Kind = %s, want %s", tt.href, tt.base, got.Kind, tt.kind)
			}
			if tt.canonical != "" && got.Canonical != tt.canonical {
				t.Errorf("Classify(%q, %q).Canonical = %q, want %q", tt.href, tt.base, got.Canonical, tt.canonical)
			}
			if tt.kind == Unusable && got.Canonical != "" {
				t.Errorf("unusable link should have no canonical form, got %q", got.Canonical)
			}
		})
	}
}

// TestPartition tests splitting page links into buckets.
func TestPartition(t *testing.T) {
	t.Parallel()

	t.Run("splits and dedupes in first-seen order", func(t *testing.T) {
		t.Parallel()

		links := []model.Link{
			{Text: "x", Href: "https://s.example/x"},
			{Text: "y", Href: "/y"},
			{Text: "none", Href: model.NoLinkSentinel},
			{Text: "x again", Href: "https://s.example/x#frag"},
			{Text: "ext", Href: "https://other.example/"},
			{Text: "y again", Href: "/y"},
			{Text: "z", Href: "https://S.example/z"},
		}

		followable, notFollowable := Partition(links, "https://s.example")

		wantF := []string{"https://s.example/x", "https://s.example/z"}
		if !slices.Equal(followable, wantF) {
			t.Errorf("followable = %v, want %v", followable, wantF)
		}
		wantN := []string{"/y", "https://other.example/"}
		if !slices.Equal(notFollowable, wantN) {
			t.Errorf("notFollowable = %v, want %v", notFollowable, wantN)
		}
	})

	t.Run("no links gives empty buckets", func(t *testing.T) {
		t.Parallel()

		followable, notFollowable := Partition(nil, "https://s.example")
		if followable == nil || notFollowable == nil {
			t.Fatal("buckets should be empty slices, not nil")
		}
		if len(followable) != 0 || len(notFollowable) != 0 {
			t.Errorf("expected empty buckets, got %v and %v", followable, notFollowable)
		}
	})
}

// FuzzClassify checks that Classify never panics and that followable links
// always carry a canonical URL.
func FuzzClassify(f *testing.F) {
	seeds := []struct{ href, base string }{
		{"https://s.example/a", "https://s.example"},
		{"/relative", "https://s.example"},
		{"mailto:x@y", "https://s.example"},
		{"http://[::1", "https://s.example"},
		{"%zz", "https://s.example"},
		{"https://s.example", "not a url"},
		{"", ""},
	}
	for _, s := range seeds {
		f.Add(s.href, s.base)
	}

	f.Fuzz(func(t *testing.T, href, base string) {
		got := Classify(href, base)
		if got.Kind == Followable && got.Canonical == "" {
			t.Errorf("followable link %q has no canonical form", href)
		}
	})
}
