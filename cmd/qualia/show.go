package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagShowFormat string
	flagShowLong   bool
)

var showCmd = &cobra.Command{
	Use:   "show HASH...",
	Short: "Show one or more objects",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVarP(&flagShowFormat, "format", "f", "long", "output format: filename, short_hash, hash, long")
	showCmd.Flags().BoolVarP(&flagShowLong, "long", "l", false, "shorthand for --format long")
}

func runShow(cmd *cobra.Command, args []string) error {
	db, err := openRO()
	if err != nil {
		return err
	}
	defer db.Close()

	format := flagShowFormat
	if flagShowLong {
		format = "long"
	}

	for _, prefix := range args {
		hash, err := db.ResolveHash(prefix)
		if err != nil {
			return err
		}
		props, err := db.Select(map[string]string{"hash": hash}).All()
		if err != nil {
			return err
		}
		if len(props) == 0 {
			return fmt.Errorf("%s: object vanished between resolve and show", prefix)
		}
		line, err := formatObject(db, format, props[0])
		if err != nil {
			return err
		}
		fmt.Println(line)
	}
	return nil
}
