package story

import (
	"slices"
	"time"
)

// Kind is the scope of a regeneration.
type Kind string

const (
	KindStory  Kind = "story"
	KindImages Kind = "images"
	KindPage   Kind = "page"
)

// Kinds lists every supported regeneration kind in display order.
var Kinds = []Kind{KindStory, KindImages, KindPage}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	return slices.Contains(Kinds, k)
}

func (k Kind) String() string { return string(k) }

// Page is a single page of a storybook.
type Page struct {
	PageNumber  int    `json:"pageNumber"`
	Text        string `json:"text"`
	ImagePrompt string `json:"imagePrompt"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// HasImage reports whether the page carries an image reference.
func (p Page) HasImage() bool { return p.ImageURL != "" }

// Document is a generated storybook as persisted by the storage collaborator.
type Document struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	CharacterDescription string    `json:"characterDescription"`
	Pages                []Page    `json:"pages"`
	CreatedAt            time.Time `json:"createdAt"`
	ChildName            string    `json:"childName"`
	ChildAge             int       `json:"childAge"`
	FavoriteColor        string    `json:"favoriteColor,omitempty"`
}

// Clone returns a deep copy of d. A nil document clones to nil.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Pages = slices.Clone(d.Pages)
	return &out
}

// Page returns the page with the given 1-based number.
func (d *Document) Page(number int) (Page, bool) {
	for _, p := range d.Pages {
		if p.PageNumber == number {
			return p, true
		}
	}
	return Page{}, false
}

// MaxPageNumber returns the highest page number, or 0 for an empty document.
func (d *Document) MaxPageNumber() int {
	highest := 0
	for _, p := range d.Pages {
		if p.PageNumber > highest {
			highest = p.PageNumber
		}
	}
	return highest
}

// ImageCount returns the number of pages that carry an image.
func (d *Document) ImageCount() int {
	n := 0
	for _, p := range d.Pages {
		if p.HasImage() {
			n++
		}
	}
	return n
}

// Age returns how long ago the document was created relative to now.
func (d *Document) Age(now time.Time) time.Duration {
	return now.Sub(d.CreatedAt)
}
