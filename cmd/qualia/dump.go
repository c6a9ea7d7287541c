package main

import (
	"encoding/json"
	"fmt"

	"github.com/qualia-db/qualia/internal/database"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:       "dump journal|metadata",
	Short:     "Dump the raw journal or the current metadata table",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"journal", "metadata"},
	RunE:      runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	db, err := openRO()
	if err != nil {
		return err
	}
	defer db.Close()

	switch args[0] {
	case "journal":
		return dumpJournal(db)
	case "metadata":
		return dumpMetadata(db)
	default:
		return fmt.Errorf("dump: unknown target %q, want journal or metadata", args[0])
	}
}

func dumpJournal(db *database.Facade) error {
	checkpoints, err := db.Log()
	if err != nil {
		return err
	}
	for _, cp := range checkpoints {
		changes, err := db.Changes(cp.CheckpointID)
		if err != nil {
			return err
		}
		fmt.Printf("checkpoint %d\t%s\n", cp.CheckpointID, cp.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
		for _, c := range changes {
			fmt.Printf("  %d\t%s\t%s\n", c.Serial, c.ObjectKey, c.Action)
		}
	}
	return nil
}

func dumpMetadata(db *database.Facade) error {
	rows, err := db.All().All()
	if err != nil {
		return err
	}
	for _, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
	}
	return nil
}
