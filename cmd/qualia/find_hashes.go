package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var findHashesCmd = &cobra.Command{
	Use:   "find-hashes PREFIX",
	Short: "List every full hash a prefix could resolve to",
	Args:  cobra.ExactArgs(1),
	RunE:  runFindHashes,
}

func runFindHashes(cmd *cobra.Command, args []string) error {
	db, err := openRO()
	if err != nil {
		return err
	}
	defer db.Close()

	hashes, err := db.MatchingHashes(args[0])
	if err != nil {
		return err
	}
	for _, h := range hashes {
		fmt.Println(h)
	}
	return nil
}
