package edit

import "github.com/beevik/etree"

// NextElement returns the element sibling immediately following el, or
// nil when el is the last element child or detached. Batch builders use it
// to express "insert after X" as an insert-before-X's-successor, resolved
// against the pre-batch tree.
func NextElement(el *etree.Element) *etree.Element {
	if el == nil {
		return nil
	}
	parent := el.Parent()
	if parent == nil {
		return nil
	}
	siblings := parent.ChildElements()
	for i, s := range siblings {
		if s == el {
			if i+1 < len(siblings) {
				return siblings[i+1]
			}
			return nil
		}
	}
	return nil
}
