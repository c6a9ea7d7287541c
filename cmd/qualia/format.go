package main

import (
	"fmt"

	"github.com/qualia-db/qualia/internal/database"
	"github.com/qualia-db/qualia/internal/propertystore"
)

// formatObject renders one object in one of the show/search output
// formats: filename | short_hash | hash | long.
func formatObject(db *database.Facade, format string, props propertystore.Properties) (string, error) {
	hash, _ := props["hash"].(string)

	switch format {
	case "filename":
		if name, ok := props["filename"].(string); ok && name != "" {
			return name, nil
		}
		return hash, nil
	case "short_hash":
		if hash == "" {
			return "", fmt.Errorf("object has no hash to shorten")
		}
		return db.ShortestHash(hash)
	case "hash":
		return hash, nil
	case "long", "":
		return longForm(props), nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

func longForm(props propertystore.Properties) string {
	out := ""
	if hash, ok := props["hash"].(string); ok && hash != "" {
		out += hash + "\n"
	}
	for k, v := range props {
		if k == "hash" || k == "object_id" {
			continue
		}
		out += fmt.Sprintf("  %s: %v\n", k, v)
	}
	return out
}
