// Package plan loads replacement plans: HCL files declaring which devices
// are replaced by which template device.
//
//	replace "PROT_A1" {
//	  template = "PROT_TEMPLATE"
//	}
package plan

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Plan is a parsed replacement plan.
type Plan struct {
	Replacements []Replacement `hcl:"replace,block"`
}

// Replacement maps one device to its template.
type Replacement struct {
	Device   string `hcl:"name,label"`
	Template string `hcl:"template"`
}

// Load reads and validates a plan file.
func Load(path string) (*Plan, error) {
	var p Plan
	if err := hclsimple.DecodeFile(path, nil, &p); err != nil {
		return nil, fmt.Errorf("decode plan %s: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	return &p, nil
}

// Parse decodes a plan from memory. The filename picks the HCL syntax and
// appears in diagnostics.
func Parse(filename string, src []byte) (*Plan, error) {
	var p Plan
	if err := hclsimple.Decode(filename, src, nil, &p); err != nil {
		return nil, fmt.Errorf("decode plan %s: %w", filename, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("plan %s: %w", filename, err)
	}
	return &p, nil
}

func (p *Plan) validate() error {
	seen := make(map[string]bool, len(p.Replacements))
	for _, r := range p.Replacements {
		if r.Device == "" {
			return fmt.Errorf("replace block with empty device name")
		}
		if r.Template == "" {
			return fmt.Errorf("replace %q: empty template", r.Device)
		}
		if r.Device == r.Template {
			return fmt.Errorf("replace %q: device is its own template", r.Device)
		}
		if seen[r.Device] {
			return fmt.Errorf("replace %q: duplicate block", r.Device)
		}
		seen[r.Device] = true
	}
	return nil
}
