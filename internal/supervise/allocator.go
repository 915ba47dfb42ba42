// Package supervise manages bounded-capacity supervision records: reserved
// monitoring logical nodes whose nested value names the control block
// stream they watch. Allocation honors the device's declared capacity and
// the one-record-per-control-block uniqueness rule; removal distinguishes
// engine-created records from user-authored ones.
package supervise

import (
	"strconv"

	"github.com/RoaringBitmap/roaring"
	"github.com/beevik/etree"

	"github.com/gridmesh/scledit/api"
	"github.com/gridmesh/scledit/internal/edit"
	"github.com/gridmesh/scledit/internal/scl"
	"github.com/gridmesh/scledit/internal/subscribe"
)

// MarkerType tags structure synthesized by this engine, embedded as a
// Private child element. Records without it are user-authored and are
// never deleted wholesale.
const MarkerType = "scledit"

const refDAName = "setSrcRef"

// records returns the monitoring-class logical nodes on the device for the
// given control kind, in document order.
func records(ied *etree.Element, kind subscribe.ControlKind) []*etree.Element {
	return scl.ClassNodes(ied, kind.MonitorClass())
}

// container returns the DOI holding the supervised reference on a
// monitoring logical node, or nil.
func container(ln *etree.Element, kind subscribe.ControlKind) *etree.Element {
	for _, doi := range ln.SelectElements(scl.TagDOI) {
		if scl.Attr(doi, "name") == kind.RefDOName() {
			return doi
		}
	}
	return nil
}

// valueHolder returns the DAI under the record's container, or nil.
func valueHolder(ln *etree.Element, kind subscribe.ControlKind) *etree.Element {
	doi := container(ln, kind)
	if doi == nil {
		return nil
	}
	for _, dai := range doi.SelectElements(scl.TagDAI) {
		if scl.Attr(dai, "name") == refDAName {
			return dai
		}
	}
	return nil
}

// refText returns the supervised reference string of a record, or "" when
// the record holds no value.
func refText(ln *etree.Element, kind subscribe.ControlKind) string {
	dai := valueHolder(ln, kind)
	if dai == nil {
		return ""
	}
	val := dai.SelectElement(scl.TagVal)
	if val == nil {
		return ""
	}
	return val.Text()
}

// Occupied counts the records of the given kind whose value is non-empty.
func Occupied(ied *etree.Element, kind subscribe.ControlKind) int {
	n := 0
	for _, ln := range records(ied, kind) {
		if refText(ln, kind) != "" {
			n++
		}
	}
	return n
}

// EngineCreated reports whether the record carries the engine marker.
func EngineCreated(ln *etree.Element) bool {
	for _, p := range ln.SelectElements(scl.TagPrivate) {
		if scl.Attr(p, "type") == MarkerType {
			return true
		}
	}
	return false
}

// findRecord returns the record whose value equals ref, or nil.
func findRecord(ied *etree.Element, kind subscribe.ControlKind, ref string) *etree.Element {
	for _, ln := range records(ied, kind) {
		if refText(ln, kind) == ref {
			return ln
		}
	}
	return nil
}

// Allowed reports whether a supervision record may be allocated for the
// control block on this device: the schema edition supports supervision,
// the device has a monitoring-class instance, the control block is not
// already supervised, and the occupied count is below the declared
// capacity.
func Allowed(doc *etree.Document, kind subscribe.ControlKind, cb, ied *etree.Element) bool {
	if scl.DocEdition(doc) == scl.Edition1 {
		return false
	}
	if len(records(ied, kind)) == 0 {
		return false
	}
	ref, ok := subscribe.Reference(cb)
	if !ok {
		return false
	}
	if findRecord(ied, kind, ref) != nil {
		return false
	}
	return Occupied(ied, kind) < scl.Capacity(ied, kind.CapacityAttr())
}

// configurable reports whether the value-kind/import attributes on el mark
// the value as configurable and importable.
func configurable(el *etree.Element) bool {
	if el == nil {
		return false
	}
	kind := scl.Attr(el, "valKind")
	return scl.Attr(el, "valImport") == "true" && (kind == "RO" || kind == "Conf")
}

// ModificationAllowed inspects the first monitoring-class instance: if its
// value holder declares the value configurable and importable, allocation
// may modify it. Otherwise the same two attributes are resolved through
// the device-type template definitions. Neither source allowing means
// modification is disallowed.
func ModificationAllowed(doc *etree.Document, kind subscribe.ControlKind, ied *etree.Element) bool {
	recs := records(ied, kind)
	if len(recs) == 0 {
		return false
	}
	first := recs[0]
	if configurable(valueHolder(first, kind)) {
		return true
	}
	return configurable(templateValueDef(doc, kind, first))
}

// templateValueDef resolves the value-holder definition of a monitoring
// logical node through DataTypeTemplates, or nil.
func templateValueDef(doc *etree.Document, kind subscribe.ControlKind, ln *etree.Element) *etree.Element {
	if doc == nil || doc.Root() == nil {
		return nil
	}
	templates := doc.Root().SelectElement(scl.TagTemplates)
	if templates == nil {
		return nil
	}
	lnType := scl.Attr(ln, "lnType")
	var doTypeID string
	for _, lnt := range templates.SelectElements(scl.TagLNodeType) {
		if scl.Attr(lnt, "id") != lnType {
			continue
		}
		for _, do := range lnt.SelectElements(scl.TagDO) {
			if scl.Attr(do, "name") == kind.RefDOName() {
				doTypeID = scl.Attr(do, "type")
				break
			}
		}
		break
	}
	if doTypeID == "" {
		return nil
	}
	for _, dot := range templates.SelectElements(scl.TagDOType) {
		if scl.Attr(dot, "id") != doTypeID {
			continue
		}
		for _, da := range dot.SelectElements(scl.TagDA) {
			if scl.Attr(da, "name") == refDAName {
				return da
			}
		}
		break
	}
	return nil
}

// slot is a monitoring logical node selected or synthesized to hold a new
// supervision value.
type slot struct {
	ln        *etree.Element
	fresh     bool
	parent    *etree.Element // insert parent for fresh slots
	reference *etree.Element // insert-before sibling for fresh slots
}

// findOrCreateSlot prefers an existing monitoring-class instance whose
// value is absent or empty. When none exists it synthesizes a new logical
// node, copying the type attribute from an existing sibling instance and
// taking the lowest unused instance number. Without a sibling to copy the
// type from, no slot can be produced.
func findOrCreateSlot(ied *etree.Element, kind subscribe.ControlKind) (slot, bool) {
	recs := records(ied, kind)
	for _, ln := range recs {
		if refText(ln, kind) == "" {
			return slot{ln: ln}, true
		}
	}
	if len(recs) == 0 {
		return slot{}, false
	}

	used := roaring.New()
	for _, ln := range recs {
		if n, err := strconv.Atoi(scl.Attr(ln, "inst")); err == nil && n >= 0 {
			used.Add(uint32(n))
		}
	}
	inst := uint32(1)
	for used.Contains(inst) {
		inst++
	}

	ln := etree.NewElement(scl.TagLN)
	ln.CreateAttr("lnClass", kind.MonitorClass())
	ln.CreateAttr("inst", strconv.FormatUint(uint64(inst), 10))
	ln.CreateAttr("lnType", scl.Attr(recs[0], "lnType"))
	marker := ln.CreateElement(scl.TagPrivate)
	marker.CreateAttr("type", MarkerType)

	last := recs[len(recs)-1]
	return slot{
		ln:        ln,
		fresh:     true,
		parent:    last.Parent(),
		reference: edit.NextElement(last),
	}, true
}

// Instantiate builds the batch that records a supervision value for the
// control block on the device. The batch inserts the synthesized logical
// node (when fresh), then the missing container and value holder, then
// replaces the value node. Any failed precondition yields an empty batch.
func Instantiate(doc *etree.Document, kind subscribe.ControlKind, cb, ied *etree.Element) api.Batch {
	if !Allowed(doc, kind, cb, ied) || !ModificationAllowed(doc, kind, ied) {
		return nil
	}
	ref, ok := subscribe.Reference(cb)
	if !ok {
		return nil
	}
	s, ok := findOrCreateSlot(ied, kind)
	if !ok {
		return nil
	}

	var batch api.Batch
	if s.fresh {
		batch = append(batch, api.Insert{Parent: s.parent, Node: s.ln, Reference: s.reference})
	}

	doi := container(s.ln, kind)
	if doi == nil {
		doi = etree.NewElement(scl.TagDOI)
		doi.CreateAttr("name", kind.RefDOName())
		batch = append(batch, api.Insert{Parent: s.ln, Node: doi})
	}

	dai := valueHolder(s.ln, kind)
	if dai == nil {
		dai = etree.NewElement(scl.TagDAI)
		dai.CreateAttr("name", refDAName)
		if recs := records(ied, kind); len(recs) > 0 {
			if src := valueHolder(recs[0], kind); src != nil {
				if v := src.SelectAttr("valKind"); v != nil {
					dai.CreateAttr("valKind", v.Value)
				}
				if v := src.SelectAttr("valImport"); v != nil {
					dai.CreateAttr("valImport", v.Value)
				}
			}
		}
		batch = append(batch, api.Insert{Parent: doi, Node: dai})
	}

	if old := dai.SelectElement(scl.TagVal); old != nil {
		batch = append(batch, api.Remove{Node: old})
	}
	val := etree.NewElement(scl.TagVal)
	val.SetText(ref)
	return append(batch, api.Insert{Parent: dai, Node: val})
}
