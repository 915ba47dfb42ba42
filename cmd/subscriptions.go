package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridmesh/scledit/internal/scl"
	"github.com/gridmesh/scledit/internal/subscribe"
)

var subscriptionsCmd = &cobra.Command{
	Use:   "subscriptions [document.scd]",
	Short: "List subscribed external references and their matching data points",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadDoc(args[0])
		if err != nil {
			return err
		}

		for _, ied := range doc.Root().SelectElements(scl.TagIED) {
			name := scl.Attr(ied, "name")
			for _, extRef := range scl.Descendants(ied, scl.TagExtRef) {
				if !subscribe.IsSubscribed(extRef) {
					continue
				}
				matches := subscribe.MatchingDataPoints(doc, extRef)
				fmt.Printf("%s: %s%s/%s%s%s.%s.%s -> %d data point(s)\n",
					name,
					scl.Attr(extRef, "iedName"),
					scl.Attr(extRef, "ldInst"),
					scl.Attr(extRef, "prefix"),
					scl.Attr(extRef, "lnClass"),
					scl.Attr(extRef, "lnInst"),
					scl.Attr(extRef, "doName"),
					scl.Attr(extRef, "daName"),
					len(matches),
				)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(subscriptionsCmd)
}
