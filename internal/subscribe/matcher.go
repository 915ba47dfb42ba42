package subscribe

import (
	"github.com/beevik/etree"

	"github.com/gridmesh/scledit/internal/scl"
)

// identifyingAttrs are the ExtRef attributes that must all be present and
// non-empty for the reference to count as subscribed.
var identifyingAttrs = []string{"iedName", "ldInst", "prefix", "lnClass", "lnInst", "doName"}

// matchAttrs are the attributes compared between an ExtRef and an FCDA,
// the owner device being checked separately. daName matches with "both
// absent" counting as equal, same as every other pair.
var matchAttrs = []string{"ldInst", "prefix", "lnClass", "lnInst", "doName", "daName"}

// IsSubscribed reports whether the reference has all identifying
// attributes present and non-empty.
func IsSubscribed(extRef *etree.Element) bool {
	if extRef == nil || extRef.Tag != scl.TagExtRef {
		return false
	}
	for _, key := range identifyingAttrs {
		if scl.Attr(extRef, key) == "" {
			return false
		}
	}
	return true
}

// IsSubscribedTo reports whether extRef subscribes to the data point fcda
// as published by the control block cb. The owner-device attribute must
// name the device owning fcda, the positional attributes must match fcda
// exactly, and the edition-conditional source checks must hold.
func IsSubscribedTo(doc *etree.Document, kind ControlKind, cb, fcda, extRef *etree.Element) bool {
	owner := scl.OwnerIED(fcda)
	if owner == nil || scl.Attr(extRef, "iedName") != scl.Attr(owner, "name") {
		return false
	}
	for _, key := range matchAttrs {
		if scl.Attr(extRef, key) != scl.Attr(fcda, key) {
			return false
		}
	}
	return editionCheck(doc, kind, cb, extRef)
}

// editionCheck applies the source attributes introduced after the oldest
// schema edition. Absent attributes compare as empty strings, so "both
// absent" is a match.
func editionCheck(doc *etree.Document, kind ControlKind, cb, extRef *etree.Element) bool {
	if scl.DocEdition(doc) == scl.Edition1 {
		return true
	}
	if scl.Attr(extRef, "serviceType") != kind.ServiceType() {
		return false
	}
	ld := scl.Ancestor(cb, scl.TagLDevice)
	if scl.Attr(extRef, "srcLDInst") != scl.Attr(ld, "inst") {
		return false
	}
	ln := scl.Ancestor(cb, scl.TagLN0, scl.TagLN)
	if scl.Attr(extRef, "srcPrefix") != scl.Attr(ln, "prefix") ||
		scl.Attr(extRef, "srcLNClass") != scl.Attr(ln, "lnClass") ||
		scl.Attr(extRef, "srcLNInst") != scl.Attr(ln, "inst") {
		return false
	}
	return scl.Attr(extRef, "srcCBName") == scl.Attr(cb, "name")
}

// MatchingDataPoints returns every FCDA on the device named by the
// reference's owner attribute whose positional attributes match exactly.
// The result is empty when the owner device does not exist, the node is
// not a genuine reference, or it sits under a Private subtree.
func MatchingDataPoints(doc *etree.Document, extRef *etree.Element) []*etree.Element {
	if extRef == nil || extRef.Tag != scl.TagExtRef || scl.InPrivate(extRef) {
		return nil
	}
	owner := scl.IED(doc, scl.Attr(extRef, "iedName"))
	if owner == nil {
		return nil
	}
	var out []*etree.Element
	for _, fcda := range scl.Descendants(owner, scl.TagFCDA) {
		match := true
		for _, key := range matchAttrs {
			if scl.Attr(extRef, key) != scl.Attr(fcda, key) {
				match = false
				break
			}
		}
		if match {
			out = append(out, fcda)
		}
	}
	return out
}

// Reference computes the fully qualified reference string of a control
// block: {iedName}{ldInst}/{prefix}{lnClass}{lnInst}.{cbName}. ok is false
// when any structural component cannot be resolved.
func Reference(cb *etree.Element) (string, bool) {
	name := scl.Attr(cb, "name")
	if name == "" {
		return "", false
	}
	ln := scl.Ancestor(cb, scl.TagLN0, scl.TagLN)
	if ln == nil {
		return "", false
	}
	lnClass := "LLN0"
	prefix, lnInst := "", ""
	if ln.Tag == scl.TagLN {
		lnClass = scl.Attr(ln, "lnClass")
		if lnClass == "" {
			return "", false
		}
		prefix = scl.Attr(ln, "prefix")
		lnInst = scl.Attr(ln, "inst")
	}
	ld := scl.Ancestor(cb, scl.TagLDevice)
	if ld == nil {
		return "", false
	}
	ied := scl.OwnerIED(cb)
	iedName := scl.Attr(ied, "name")
	if iedName == "" {
		return "", false
	}
	return iedName + scl.Attr(ld, "inst") + "/" + prefix + lnClass + lnInst + "." + name, true
}
