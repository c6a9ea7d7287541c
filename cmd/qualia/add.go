package main

import (
	"fmt"
	"os"

	"github.com/qualia-db/qualia/internal/autometa"
	"github.com/qualia-db/qualia/internal/fieldschema"
	"github.com/qualia-db/qualia/internal/propertystore"
	"github.com/spf13/cobra"
)

var flagRestore bool

var addCmd = &cobra.Command{
	Use:     "add FILE...",
	Aliases: []string{"take"},
	Short:   "Add one or more files to the store",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runAdd,
}

func init() {
	addCmd.Flags().BoolVar(&flagRestore, "restore", false, "revert the file's auto-sourced fields set in the last checkpoint instead of re-deriving them")
}

func runAdd(cmd *cobra.Command, args []string) error {
	move := cmd.CalledAs() == "take"

	db, err := openRW()
	if err != nil {
		return err
	}
	defer db.Close()

	for _, path := range args {
		hash, err := db.AddFile(path, move, propertystore.Properties{})
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		if flagRestore {
			if err := db.RestoreAutoMetadata(hash, true); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		} else if err := runAutoMetadata(db, hash, path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		short, err := db.ShortestHash(hash)
		if err != nil {
			return err
		}
		fmt.Println(short)
	}

	_, _, err = db.Commit()
	return err
}

func runAutoMetadata(db interface {
	SetField(hash, field string, value any, source string) error
	Registry() *fieldschema.Registry
}, hash, path string,
) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fields, err := autometa.ExtractAll(path, f)
	if err != nil {
		return err
	}

	for field, value := range fields {
		db.Registry().DeclareIfAbsent(field, fieldschema.FieldDescriptor{Type: fieldschema.Text, Shown: true})
		if err := db.SetField(hash, field, value, "auto"); err != nil {
			return err
		}
	}
	return nil
}
