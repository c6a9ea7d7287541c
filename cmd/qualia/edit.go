package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/qualia-db/qualia/internal/propertystore"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

var (
	flagEditDryRun  bool
	flagEditVerbose bool
)

var editCmd = &cobra.Command{
	Use:   "edit HASH",
	Short: "Open an object's metadata in $EDITOR and apply the edits",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

func init() {
	editCmd.Flags().BoolVar(&flagEditDryRun, "dry-run", false, "show what would change without writing it")
	editCmd.Flags().BoolVar(&flagEditVerbose, "verbose", false, "print the field-by-field diff")
}

func runEdit(cmd *cobra.Command, args []string) error {
	db, err := openRW()
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := db.ResolveHash(args[0])
	if err != nil {
		return err
	}

	rows, err := db.Select(map[string]string{"hash": hash}).All()
	if err != nil {
		return err
	}
	if len(rows) != 1 {
		return fmt.Errorf("edit: expected exactly one object for %s, got %d", hash, len(rows))
	}
	before := rows[0]

	tmp, err := os.CreateTemp("", "qualia-edit-*.yaml")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	raw, err := yaml.Marshal(before)
	if err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	editor := editorCommand()
	edit := exec.Command(editor, tmpPath)
	edit.Stdin, edit.Stdout, edit.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := edit.Run(); err != nil {
		return fmt.Errorf("edit: spawning %s: %w", editor, err)
	}

	editedRaw, err := os.ReadFile(tmpPath)
	if err != nil {
		return err
	}
	after := propertystore.Properties{}
	if err := yaml.Unmarshal(editedRaw, &after); err != nil {
		return err
	}

	patch := diffPatch(before, after)
	if flagEditVerbose || flagEditDryRun {
		for field, value := range patch {
			fmt.Printf("%s: %v -> %v\n", field, before[field], value)
		}
	}
	if flagEditDryRun || len(patch) == 0 {
		return nil
	}

	if err := db.Select(map[string]string{"hash": hash}).Update(patch); err != nil {
		return err
	}

	_, _, err = db.Commit()
	return err
}

// diffPatch builds a JSON-merge-patch-style map: changed or added fields
// map to their new value, removed fields map to nil. `hash`/`object_id`
// are never editable, so they are dropped from the comparison.
func diffPatch(before, after propertystore.Properties) propertystore.Properties {
	patch := propertystore.Properties{}
	for _, reserved := range []string{"hash", "object_id"} {
		delete(before, reserved)
		delete(after, reserved)
	}
	for field, value := range after {
		old, existed := before[field]
		if !existed || fmt.Sprint(old) != fmt.Sprint(value) {
			patch[field] = value
		}
	}
	for field := range before {
		if _, stillThere := after[field]; !stillThere {
			patch[field] = nil
		}
	}
	return patch
}

func editorCommand() string {
	if e := os.Getenv("VISUAL"); e != "" {
		return e
	}
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	return "vi"
}
