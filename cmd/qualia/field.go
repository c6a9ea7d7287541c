package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var fieldCmd = &cobra.Command{
	Use:   "field",
	Short: "Inspect the declared field schema",
}

var fieldListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every declared field and its type",
	Args:  cobra.NoArgs,
	RunE:  runFieldList,
}

func init() {
	fieldCmd.AddCommand(fieldListCmd)
}

func runFieldList(cmd *cobra.Command, args []string) error {
	db, err := openRO()
	if err != nil {
		return err
	}
	defer db.Close()

	fields := db.Registry().Fields
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		desc := fields[name]
		flags := ""
		if desc.ReadOnly {
			flags += " read-only"
		}
		if !desc.Shown {
			flags += " hidden"
		}
		fmt.Printf("%s\t%s%s\n", name, desc.Type, flags)
	}
	return nil
}
