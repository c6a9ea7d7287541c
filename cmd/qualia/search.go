package main

import (
	"fmt"
	"strings"

	"github.com/qualia-db/qualia/internal/propertystore"
	"github.com/spf13/cobra"
)

var (
	flagSearchFormat string
	flagSearchLong   bool
	flagSearchLimit  int
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Search objects using the query sublanguage",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&flagSearchFormat, "format", "f", "long", "output format: filename, short_hash, hash, long")
	searchCmd.Flags().BoolVarP(&flagSearchLong, "long", "l", false, "shorthand for --format long")
	searchCmd.Flags().IntVarP(&flagSearchLimit, "limit", "n", 0, "limit the number of results (0 = unlimited)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	db, err := openRO()
	if err != nil {
		return err
	}
	defer db.Close()

	format := flagSearchFormat
	if flagSearchLong {
		format = "long"
	}

	text := strings.Join(args, ", ")
	subset, err := db.Query(text)
	if err != nil {
		return err
	}

	count := 0
	err = subset.Each(func(id int64, hash *string, props propertystore.Properties) error {
		if flagSearchLimit > 0 && count >= flagSearchLimit {
			return errStopIteration
		}
		augmented := propertystore.Properties{}
		for k, v := range props {
			augmented[k] = v
		}
		augmented["object_id"] = id
		if hash != nil {
			augmented["hash"] = *hash
		}
		line, err := formatObject(db, format, augmented)
		if err != nil {
			return err
		}
		fmt.Println(line)
		count++
		return nil
	})
	if err == errStopIteration {
		err = nil
	}
	return err
}

var errStopIteration = fmt.Errorf("search: result limit reached")
