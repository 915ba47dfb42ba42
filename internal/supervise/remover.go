package supervise

import (
	"github.com/beevik/etree"

	"github.com/gridmesh/scledit/api"
	"github.com/gridmesh/scledit/internal/subscribe"
)

// Remove builds the batch tearing down the supervision record for the
// control block on the device. Engine-created records are removed wholly;
// user-authored records keep their logical node and lose only the
// container holding the value. No matching record yields an empty batch.
func Remove(kind subscribe.ControlKind, cb, ied *etree.Element) api.Batch {
	ref, ok := subscribe.Reference(cb)
	if !ok {
		return nil
	}
	ln := findRecord(ied, kind, ref)
	if ln == nil {
		return nil
	}
	if EngineCreated(ln) {
		return api.Batch{api.Remove{Node: ln}}
	}
	doi := container(ln, kind)
	if doi == nil {
		return nil
	}
	return api.Batch{api.Remove{Node: doi}}
}
