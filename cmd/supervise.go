package cmd

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/gridmesh/scledit/api"
	"github.com/gridmesh/scledit/internal/scl"
	"github.com/gridmesh/scledit/internal/subscribe"
	"github.com/gridmesh/scledit/internal/supervise"
)

var (
	superviseIED     string
	superviseControl string
	superviseIssuer  string
	superviseKind    string
)

var superviseCmd = &cobra.Command{
	Use:   "supervise [document.scd]",
	Short: "Allocate a supervision record for a control block on a subscriber device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSupervision(args[0], "supervise")
	},
}

var unsuperviseCmd = &cobra.Command{
	Use:   "unsupervise [document.scd]",
	Short: "Remove the supervision record for a control block on a subscriber device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSupervision(args[0], "unsupervise")
	},
}

func runSupervision(path, operation string) error {
	kind, err := parseKind(superviseKind)
	if err != nil {
		return err
	}
	doc, err := loadDoc(path)
	if err != nil {
		return err
	}
	ied := scl.IED(doc, superviseIED)
	if ied == nil {
		return fmt.Errorf("device %q not found", superviseIED)
	}
	cb := findControl(doc, kind, superviseIssuer, superviseControl)
	if cb == nil {
		return fmt.Errorf("control block %q not found", superviseControl)
	}

	var batch api.Batch
	if operation == "supervise" {
		batch = supervise.Instantiate(doc, kind, cb, ied)
	} else {
		batch = supervise.Remove(kind, cb, ied)
	}
	if len(batch) == 0 {
		fmt.Println("no change")
		return nil
	}

	dispatch, closeJournal, err := dispatcher(operation)
	if err != nil {
		return err
	}
	defer closeJournal()
	if err := dispatch.Dispatch(batch); err != nil {
		return err
	}
	glog.Infof("%s: %d action(s) on %s", operation, len(batch), superviseIED)
	return saveDoc(doc, path)
}

// findControl locates a control block of the given kind by name. When
// issuer is set only that device is searched.
func findControl(doc *etree.Document, kind subscribe.ControlKind, issuer, name string) *etree.Element {
	scope := doc.Root()
	if issuer != "" {
		if ied := scl.IED(doc, issuer); ied != nil {
			scope = ied
		}
	}
	for _, cb := range scl.Descendants(scope, kind.Tag()) {
		if scl.Attr(cb, "name") == name {
			return cb
		}
	}
	return nil
}

func parseKind(s string) (subscribe.ControlKind, error) {
	switch s {
	case "goose", "gse":
		return subscribe.GSE, nil
	case "smv", "sv":
		return subscribe.SampledValue, nil
	default:
		return 0, fmt.Errorf("unknown control kind %q (want goose or smv)", s)
	}
}

func init() {
	for _, c := range []*cobra.Command{superviseCmd, unsuperviseCmd} {
		c.Flags().StringVar(&superviseIED, "ied", "", "Subscriber device name")
		c.Flags().StringVar(&superviseControl, "control", "", "Control block name")
		c.Flags().StringVar(&superviseIssuer, "publisher", "", "Publishing device name (narrows the control block search)")
		c.Flags().StringVar(&superviseKind, "kind", "goose", "Control kind: goose or smv")
		_ = c.MarkFlagRequired("ied")
		_ = c.MarkFlagRequired("control")
	}
	rootCmd.AddCommand(superviseCmd, unsuperviseCmd)
}
