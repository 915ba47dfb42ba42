package scl

import "github.com/beevik/etree"

// Stable identity keys. An identity is a deterministic string computed
// from the ancestor chain's kinds and naming attributes. Two elements at
// the same logical position have equal identities even across a
// remove+reinsert cycle, so lookups after structural edits compare keys by
// value instead of chasing pointers.

// Identity returns the stable identity key of el, or "" for nil.
func Identity(el *etree.Element) string {
	if el == nil {
		return ""
	}
	var id string
	for e := el; e != nil; e = e.Parent() {
		seg := segment(e)
		if id == "" {
			id = seg
		} else {
			id = seg + "/" + id
		}
	}
	return id
}

// ByIdentity finds the element with the given tag and identity key inside
// scope, or nil. Used to re-locate a logical position after the subtree it
// lived in has been replaced.
func ByIdentity(scope *etree.Element, tag, id string) *etree.Element {
	if scope == nil || id == "" {
		return nil
	}
	if scope.Tag == tag && Identity(scope) == id {
		return scope
	}
	for _, el := range Descendants(scope, tag) {
		if Identity(el) == id {
			return el
		}
	}
	return nil
}

// segment returns the identity segment contributed by a single element.
func segment(el *etree.Element) string {
	switch el.Tag {
	case TagIED, TagAccessPoint, TagDataSet, TagDOI, TagDAI,
		TagGSEControl, TagSMVControl:
		return el.Tag + "=" + Attr(el, "name")
	case TagLDevice:
		return el.Tag + "=" + Attr(el, "inst")
	case TagLN0:
		return el.Tag + "=LLN0"
	case TagLN:
		return el.Tag + "=" + Attr(el, "prefix") + Attr(el, "lnClass") + Attr(el, "inst")
	default:
		return el.Tag
	}
}
