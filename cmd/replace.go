package cmd

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/gridmesh/scledit/internal/plan"
	replaceeng "github.com/gridmesh/scledit/internal/replace"
	"github.com/gridmesh/scledit/internal/scl"
)

var planPath string

var replaceCmd = &cobra.Command{
	Use:   "replace [document.scd]",
	Short: "Replace devices with template clones per an HCL plan, preserving wiring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(planPath)
		if err != nil {
			return err
		}
		doc, err := loadDoc(args[0])
		if err != nil {
			return err
		}

		dispatch, closeJournal, err := dispatcher("replace")
		if err != nil {
			return err
		}
		defer closeJournal()
		engine := replaceeng.Engine{Dispatcher: dispatch}

		for _, r := range p.Replacements {
			device := scl.IED(doc, r.Device)
			if device == nil {
				return fmt.Errorf("device %q not found", r.Device)
			}
			template := scl.IED(doc, r.Template)
			if template == nil {
				return fmt.Errorf("template device %q not found", r.Template)
			}
			if err := engine.Replace([]*etree.Element{device}, template); err != nil {
				return err
			}
			glog.Infof("replaced %s with clone of %s", r.Device, r.Template)
		}
		return saveDoc(doc, args[0])
	},
}

func init() {
	replaceCmd.Flags().StringVar(&planPath, "plan", "", "Path to the replacement plan (HCL)")
	_ = replaceCmd.MarkFlagRequired("plan")
	rootCmd.AddCommand(replaceCmd)
}
