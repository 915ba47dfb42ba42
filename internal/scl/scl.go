// Package scl provides read-only accessors over an SCL configuration
// document held as an etree tree: node lookup by stable identity, ancestor
// and descendant queries, edition detection, and capacity parsing.
//
// Absence is a normal state everywhere in this package. A missing element
// is a nil result and a missing attribute is an empty string, never an
// error. Callers treat "not found" as "not yet wired".
package scl

import (
	"strconv"

	"github.com/beevik/etree"
)

// Element kinds this engine cares about.
const (
	TagIED          = "IED"
	TagAccessPoint  = "AccessPoint"
	TagServer       = "Server"
	TagLDevice      = "LDevice"
	TagLN           = "LN"
	TagLN0          = "LN0"
	TagDataSet      = "DataSet"
	TagFCDA         = "FCDA"
	TagInputs       = "Inputs"
	TagExtRef       = "ExtRef"
	TagDOI          = "DOI"
	TagDAI          = "DAI"
	TagVal          = "Val"
	TagPrivate      = "Private"
	TagGSEControl   = "GSEControl"
	TagSMVControl   = "SampledValueControl"
	TagTemplates    = "DataTypeTemplates"
	TagLNodeType    = "LNodeType"
	TagDOType       = "DOType"
	TagDO           = "DO"
	TagDA           = "DA"
)

// Attr returns the value of the named attribute, or "" when absent.
func Attr(el *etree.Element, key string) string {
	if el == nil {
		return ""
	}
	return el.SelectAttrValue(key, "")
}

// Ancestor walks up the parent chain and returns the nearest ancestor whose
// tag is one of the given kinds, or nil if none exists.
func Ancestor(el *etree.Element, tags ...string) *etree.Element {
	if el == nil {
		return nil
	}
	for p := el.Parent(); p != nil; p = p.Parent() {
		for _, tag := range tags {
			if p.Tag == tag {
				return p
			}
		}
	}
	return nil
}

// Descendants returns every element with the given tag in the subtree
// rooted at scope, in document order. The scope element itself is not
// considered.
func Descendants(scope *etree.Element, tag string) []*etree.Element {
	if scope == nil {
		return nil
	}
	var out []*etree.Element
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, child := range el.ChildElements() {
			if child.Tag == tag {
				out = append(out, child)
			}
			walk(child)
		}
	}
	walk(scope)
	return out
}

// IED finds the device with the given name, or nil.
func IED(doc *etree.Document, name string) *etree.Element {
	if doc == nil || doc.Root() == nil || name == "" {
		return nil
	}
	for _, ied := range doc.Root().SelectElements(TagIED) {
		if Attr(ied, "name") == name {
			return ied
		}
	}
	return nil
}

// OwnerIED returns the device that owns el, or nil for detached nodes.
func OwnerIED(el *etree.Element) *etree.Element {
	if el != nil && el.Tag == TagIED {
		return el
	}
	return Ancestor(el, TagIED)
}

// IsLogicalNode reports whether el is an LN or the control instance LN0.
func IsLogicalNode(el *etree.Element) bool {
	return el != nil && (el.Tag == TagLN || el.Tag == TagLN0)
}

// LogicalNodes returns every LN and LN0 under the device, in document order.
func LogicalNodes(ied *etree.Element) []*etree.Element {
	lns := Descendants(ied, TagLN0)
	return append(lns, Descendants(ied, TagLN)...)
}

// ControlInstances returns the LN0 elements under the device.
func ControlInstances(ied *etree.Element) []*etree.Element {
	return Descendants(ied, TagLN0)
}

// ClassNodes returns the LN elements of the given lnClass under the device.
func ClassNodes(ied *etree.Element, lnClass string) []*etree.Element {
	var out []*etree.Element
	for _, ln := range Descendants(ied, TagLN) {
		if Attr(ln, "lnClass") == lnClass {
			out = append(out, ln)
		}
	}
	return out
}

// Capacity parses the device's declared capacity attribute. An absent or
// non-numeric value means supervision is disabled, never an error.
func Capacity(ied *etree.Element, attr string) int {
	n, err := strconv.Atoi(Attr(ied, attr))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// InPrivate reports whether el sits inside a Private subtree. Private
// content belongs to other tools and is excluded from matching.
func InPrivate(el *etree.Element) bool {
	return Ancestor(el, TagPrivate) != nil
}
