package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/beevik/etree"
	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/gridmesh/scledit/api"
	"github.com/gridmesh/scledit/internal/config"
	"github.com/gridmesh/scledit/internal/edit"
	"github.com/gridmesh/scledit/internal/journal"
)

var (
	configPath string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "scledit",
	Short: "scledit edits SCL configuration documents: subscriptions, supervision records, device replacement",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			configPath = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to scledit.yaml")
	// glog registers its flags (-v, -logtostderr, ...) on the standard set.
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
}

// Execute runs the root command.
func Execute() {
	defer glog.Flush()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadDoc reads an SCL document from disk.
func loadDoc(path string) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("document %s has no root element", path)
	}
	return doc, nil
}

// saveDoc writes the document back with the configured indent.
func saveDoc(doc *etree.Document, path string) error {
	doc.Indent(cfg.Indent)
	if err := doc.WriteToFile(path); err != nil {
		return fmt.Errorf("write document %s: %w", path, err)
	}
	return nil
}

// dispatcher builds the dispatcher for an operation: the in-process
// applier, wrapped in the batch journal when one is configured. The
// returned closer is a no-op without a journal.
func dispatcher(operation string) (api.Dispatcher, func(), error) {
	applier := edit.Applier{}
	if cfg.JournalPath == "" {
		return applier, func() {}, nil
	}
	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := j.Close(); err != nil {
			glog.Warningf("close journal: %v", err)
		}
	}
	return j.Wrap(operation, applier), closer, nil
}
