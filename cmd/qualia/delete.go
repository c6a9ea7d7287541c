package main

import "github.com/spf13/cobra"

var deleteCmd = &cobra.Command{
	Use:     "delete HASH...",
	Aliases: []string{"rm"},
	Short:   "Delete one or more objects",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	db, err := openRW()
	if err != nil {
		return err
	}
	defer db.Close()

	for _, prefix := range args {
		if err := db.Delete(prefix); err != nil {
			return err
		}
	}

	_, _, err = db.Commit()
	return err
}
