package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List checkpoints, newest first",
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	db, err := openRO()
	if err != nil {
		return err
	}
	defer db.Close()

	checkpoints, err := db.Log()
	if err != nil {
		return err
	}
	for _, cp := range checkpoints {
		fmt.Printf("%d\t%s\n", cp.CheckpointID, cp.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}
