package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var tagCmd = &cobra.Command{
	Use:   "tag HASH TAG...",
	Short: "Append one or more words to an object's tags field",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTag,
}

// tagField is the one core keyword field declared specifically for this
// command.
const tagField = "tags"

func runTag(cmd *cobra.Command, args []string) error {
	hashPrefix, words := args[0], args[1:]

	db, err := openRW()
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := db.ResolveHash(hashPrefix)
	if err != nil {
		return err
	}

	var existing string
	if rows, err := db.Select(map[string]string{"hash": hash}).All(); err != nil {
		return err
	} else if len(rows) == 1 {
		if v, ok := rows[0][tagField]; ok {
			if s, ok := v.(string); ok {
				existing = s
			}
		}
	}

	merged := appendTags(existing, words)
	if err := db.SetField(hash, tagField, merged, "manual"); err != nil {
		return err
	}

	_, _, err = db.Commit()
	return err
}

func appendTags(existing string, words []string) string {
	seen := map[string]bool{}
	var out []string
	for _, t := range strings.Fields(existing) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return strings.Join(out, " ")
}
