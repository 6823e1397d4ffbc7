package model

import "time"

// NoLinkSentinel is recorded as the href of an anchor without an href
// attribute, so link classification always receives a defined value.
const NoLinkSentinel = "No Link Found"

// DefaultTitle is used when a page has no <title> element.
const DefaultTitle = "Failed to Fetch Title"

// BlockKind distinguishes text fragments from link records in a Document.
type BlockKind string

const (
	// BlockText is a trimmed, non-empty text fragment.
	BlockText BlockKind = "text"

	// BlockLink is an anchor record (text plus href).
	BlockLink BlockKind = "link"
)

// Link is an anchor element mined from a page.
type Link struct {
	// Text is the trimmed anchor text. It may be empty.
	Text string `json:"text"`

	// Href is the raw href attribute, or NoLinkSentinel when absent.
	Href string `json:"href"`
}

// Block is one element of a Document's content, in mining order.
type Block struct {
	// Kind tells whether this block is a text fragment or a link record.
	Kind BlockKind `json:"kind"`

	// Text is the trimmed text content.
	Text string `json:"text"`

	// Href is set only for link blocks.
	Href string `json:"href,omitempty"`
}

// Document is the structured content extracted from one rendered page.
// It is created fresh per visit, consumed by the merge step and then
// written as the page.json artifact.
type Document struct {
	// URL is the frontier URL the document was extracted from.
	URL string `json:"url,omitempty"`

	// Title is the text of the <title> element, or DefaultTitle.
	Title string `json:"title"`

	// Description is the content of <meta name="description">.
	Description string `json:"description,omitempty"`

	// Keywords is the content of <meta name="keywords">.
	Keywords string `json:"keywords"`

	// Language is the declared lang attribute of the root element, if any.
	Language string `json:"language,omitempty"`

	// Doc holds the mined text fragments followed by the link records.
	Doc []Block `json:"doc"`

	// Links holds the link records only, used for classification.
	Links []Link `json:"links"`

	// ExtractedAt is when extraction finished.
	ExtractedAt time.Time `json:"extractedAt"`
}

// AddText appends a text fragment to the document.
func (d *Document) AddText(text string) {
	d.Doc = append(d.Doc, Block{Kind: BlockText, Text: text})
}

// AddLink appends a link record to both the content and the link view.
func (d *Document) AddLink(link Link) {
	d.Doc = append(d.Doc, Block{Kind: BlockLink, Text: link.Text, Href: link.Href})
	d.Links = append(d.Links, link)
}

// TextBlocks returns the text fragments of the document in order.
func (d *Document) TextBlocks() []string {
	texts := make([]string, 0, len(d.Doc))
	for _, b := range d.Doc {
		if b.Kind == BlockText {
			texts = append(texts, b.Text)
		}
	}
	return texts
}
