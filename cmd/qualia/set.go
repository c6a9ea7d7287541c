package main

import (
	"github.com/qualia-db/qualia/internal/fieldschema"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set HASH FIELD VALUE",
	Short: "Set one field on an object",
	Args:  cobra.ExactArgs(3),
	RunE:  runSet,
}

func runSet(cmd *cobra.Command, args []string) error {
	hashPrefix, field, text := args[0], args[1], args[2]

	db, err := openRW()
	if err != nil {
		return err
	}
	defer db.Close()

	desc, ok := db.Registry().Get(field)
	if !ok {
		desc = fieldschema.FieldDescriptor{Type: fieldschema.Text, Shown: true}
	}

	value, err := fieldschema.Parse(desc.Type, text)
	if err != nil {
		return err
	}

	if err := db.SetField(hashPrefix, field, value, "manual"); err != nil {
		return err
	}

	_, _, err = db.Commit()
	return err
}
