package scl

import "github.com/beevik/etree"

// Edition is the schema edition of a document, derived from the root's
// version/revision/release attributes. Only the Edition1-or-later split
// changes engine behavior; the finer distinction is kept because documents
// carry it.
type Edition int

const (
	Edition1 Edition = iota + 1
	Edition2
	Edition21
)

func (e Edition) String() string {
	switch e {
	case Edition2:
		return "2007A"
	case Edition21:
		return "2007B"
	default:
		return "2003"
	}
}

// DocEdition derives the edition from the document root. A missing root or
// missing version attribute defaults to Edition1 (the 2003 schema).
func DocEdition(doc *etree.Document) Edition {
	if doc == nil || doc.Root() == nil {
		return Edition1
	}
	root := doc.Root()
	if Attr(root, "version") != "2007" {
		return Edition1
	}
	if Attr(root, "revision") == "B" {
		return Edition21
	}
	return Edition2
}
