package main

import "github.com/spf13/cobra"

var existsCmd = &cobra.Command{
	Use:   "exists HASH",
	Short: "Check whether a hash resolves to exactly one object",
	Args:  cobra.ExactArgs(1),
	RunE:  runExists,
}

func runExists(cmd *cobra.Command, args []string) error {
	db, err := openRO()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ResolveHash(args[0]); err != nil {
		return err
	}
	return nil
}
