// Package replace swaps a device subtree for a renamed clone of a template
// device while relocating existing wiring: input binding sections and
// outbound broadcast message definitions are captured before the swap and
// re-attached inside the clone by stable identity.
//
// Structural compatibility between the replaced device and the template is
// an assumption, not a checked invariant: a captured wiring record whose
// owning logical node cannot be re-located inside the clone is dropped
// silently.
package replace

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/gridmesh/scledit/api"
	"github.com/gridmesh/scledit/internal/edit"
	"github.com/gridmesh/scledit/internal/scl"
)

// Engine performs device replacement against a host dispatcher.
type Engine struct {
	Dispatcher api.Dispatcher
}

// wiring is a captured structure keyed by the identity of the logical node
// that owned it in the original device.
type wiring struct {
	ownerTag string
	ownerID  string
	node     *etree.Element
}

// Replace swaps every selected device for a clone of the template. With no
// selection or no template the operation is a no-op; a selected device
// that is the template itself is skipped. Each device produces one swap
// batch and, when any wiring was captured, one rewire batch, dispatched in
// that order.
func (e Engine) Replace(selected []*etree.Element, template *etree.Element) error {
	if len(selected) == 0 || template == nil {
		return nil
	}
	for _, device := range selected {
		if device == nil || device == template {
			continue
		}
		if err := e.replaceOne(device, template); err != nil {
			return fmt.Errorf("replace device %q: %w", scl.Attr(device, "name"), err)
		}
	}
	return nil
}

func (e Engine) replaceOne(device, template *etree.Element) error {
	inputs, controls := capture(device)

	clone := template.Copy()
	clone.CreateAttr("name", scl.Attr(device, "name"))

	swap := api.Batch{
		api.Remove{Node: device},
		api.Insert{Parent: device.Parent(), Node: clone, Reference: edit.NextElement(device)},
	}
	if err := e.Dispatcher.Dispatch(swap); err != nil {
		return fmt.Errorf("swap: %w", err)
	}

	rewire := rewireBatch(clone, inputs, controls)
	if len(rewire) == 0 {
		return nil
	}
	if err := e.Dispatcher.Dispatch(rewire); err != nil {
		return fmt.Errorf("rewire: %w", err)
	}
	return nil
}

// capture deep-clones the wiring of the device before it is removed: the
// input binding section of every logical node that owns one, and every
// broadcast message definition of the control instances.
func capture(device *etree.Element) (inputs, controls []wiring) {
	for _, ln := range scl.LogicalNodes(device) {
		if in := ln.SelectElement(scl.TagInputs); in != nil {
			inputs = append(inputs, wiring{ln.Tag, scl.Identity(ln), in.Copy()})
		}
	}
	for _, ln0 := range scl.ControlInstances(device) {
		id := scl.Identity(ln0)
		for _, gse := range ln0.SelectElements(scl.TagGSEControl) {
			controls = append(controls, wiring{ln0.Tag, id, gse.Copy()})
		}
	}
	return inputs, controls
}

// rewireBatch builds the second batch: captured bindings replace whatever
// the template defined at the matching position, and captured message
// definitions supplant the template's own, preserving original order.
// Records whose owner identity does not resolve in the clone are dropped.
func rewireBatch(clone *etree.Element, inputs, controls []wiring) api.Batch {
	var batch api.Batch
	removed := make(map[*etree.Element]bool)
	replacement := make(map[*etree.Element]*etree.Element)

	for _, w := range inputs {
		owner := scl.ByIdentity(clone, w.ownerTag, w.ownerID)
		if owner == nil {
			continue
		}
		if existing := owner.SelectElement(scl.TagInputs); existing != nil {
			batch = append(batch,
				api.Remove{Node: existing},
				api.Insert{Parent: owner, Node: w.node, Reference: edit.NextElement(existing)})
			removed[existing] = true
			replacement[existing] = w.node
			continue
		}
		batch = append(batch, api.Insert{Parent: owner, Node: w.node})
	}

	// One group per owning control instance: the template's own message
	// definitions are discarded, then the captured ones land where the
	// template's block sat, insertion order preserving relative order.
	type group struct {
		owner     *etree.Element
		reference *etree.Element
	}
	groups := make(map[string]*group)
	for _, w := range controls {
		g, seen := groups[w.ownerID]
		if !seen {
			owner := scl.ByIdentity(clone, w.ownerTag, w.ownerID)
			if owner != nil {
				existing := owner.SelectElements(scl.TagGSEControl)
				g = &group{owner: owner}
				if len(existing) > 0 {
					g.reference = liveReference(
						edit.NextElement(existing[len(existing)-1]), removed, replacement)
				}
				for _, ex := range existing {
					batch = append(batch, api.Remove{Node: ex})
					removed[ex] = true
				}
			}
			groups[w.ownerID] = g
		}
		if g == nil {
			continue
		}
		batch = append(batch, api.Insert{Parent: g.owner, Node: w.node, Reference: g.reference})
	}
	return batch
}

// liveReference resolves an insert-before sibling that survives the batch.
// A sibling this batch removes is substituted by its captured replacement
// when one exists, otherwise the scan moves to the next sibling.
func liveReference(ref *etree.Element, removed map[*etree.Element]bool, replacement map[*etree.Element]*etree.Element) *etree.Element {
	for ref != nil {
		if rep, ok := replacement[ref]; ok {
			return rep
		}
		if !removed[ref] {
			return ref
		}
		ref = edit.NextElement(ref)
	}
	return nil
}
