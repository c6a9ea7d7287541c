package main

import (
	"fmt"
	"strings"

	"github.com/qualia-db/qualia/internal/exportimport"
	"github.com/spf13/cobra"
)

var flagImportRename []string

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Apply an export archive's metadata (and blobs) to this database",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringArrayVar(&flagImportRename, "rename", nil, "FROM=TO field rename, may be repeated")
}

func runImport(cmd *cobra.Command, args []string) error {
	rename := map[string]string{}
	for _, spec := range flagImportRename {
		from, to, ok := strings.Cut(spec, "=")
		if !ok {
			return fmt.Errorf("--rename expects FROM=TO, got %q", spec)
		}
		rename[from] = to
	}

	db, err := openRW()
	if err != nil {
		return err
	}
	defer db.Close()

	return exportimport.Import(db, args[0], rename)
}
