package main

import (
	"fmt"
	"os"
	"time"

	"github.com/qualia-db/qualia/internal/exportimport"
	"github.com/spf13/cobra"
)

var (
	flagExportAll          bool
	flagExportMetadataOnly bool
	flagExportOutput       string
)

var exportCmd = &cobra.Command{
	Use:   "export [HASH...]",
	Short: "Write a compressed archive of objects and their metadata",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&flagExportAll, "all", false, "export every object in the database")
	exportCmd.Flags().BoolVar(&flagExportMetadataOnly, "metadata-only", false, "omit blob bytes from the archive")
	exportCmd.Flags().StringVarP(&flagExportOutput, "output", "o", "", "archive path (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	if !flagExportAll && len(args) == 0 {
		return fmt.Errorf("export needs --all or at least one HASH")
	}

	db, err := openRO()
	if err != nil {
		return err
	}
	defer db.Close()

	hashes := args
	if flagExportAll {
		hashes = nil
	}

	out := os.Stdout
	if flagExportOutput != "" {
		f, err := os.Create(flagExportOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	return exportimport.Export(db, out, hashes, flagExportMetadataOnly, time.Now())
}
