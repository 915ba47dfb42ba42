// Package subscribe decides whether an external reference and a data point
// denote the same subscription, including the edition-conditional source
// checks, and computes the fully qualified reference string of a control
// block.
package subscribe

// ControlKind is the closed set of control block variants the engine
// handles. Each variant carries the constant strings that differ between
// the broadcast and sampled-stream message types.
type ControlKind int

const (
	// GSE is the broadcast-style message definition (GSEControl).
	GSE ControlKind = iota
	// SampledValue is the sampled-stream definition (SampledValueControl).
	SampledValue
)

// Tag returns the element kind of the control block.
func (k ControlKind) Tag() string {
	if k == SampledValue {
		return "SampledValueControl"
	}
	return "GSEControl"
}

// ServiceType returns the service type an ExtRef declares for this kind.
func (k ControlKind) ServiceType() string {
	if k == SampledValue {
		return "SMV"
	}
	return "GOOSE"
}

// MonitorClass returns the reserved logical-node class that supervises
// streams of this kind.
func (k ControlKind) MonitorClass() string {
	if k == SampledValue {
		return "LSVS"
	}
	return "LGOS"
}

// CapacityAttr returns the device attribute declaring how many supervision
// records of this kind the device supports.
func (k ControlKind) CapacityAttr() string {
	if k == SampledValue {
		return "maxSv"
	}
	return "maxGo"
}

// RefDOName returns the data-object name holding the supervised reference.
func (k ControlKind) RefDOName() string {
	if k == SampledValue {
		return "SvCBRef"
	}
	return "GoCBRef"
}

func (k ControlKind) String() string {
	return k.ServiceType()
}
