package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

var undoCmd = &cobra.Command{
	Use:   "undo [CHECKPOINT_ID]",
	Short: "Revert the most recent checkpoint, or a specific one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUndo,
}

func runUndo(cmd *cobra.Command, args []string) error {
	db, err := openRW()
	if err != nil {
		return err
	}
	defer db.Close()

	var id *int64
	if len(args) == 1 {
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		id = &n
	}

	return db.Undo(id)
}
