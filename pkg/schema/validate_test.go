package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type manifestDoc struct {
	Version      int       `json:"version"`
	MetadataOnly bool      `json:"metadata_only"`
	Timestamp    time.Time `json:"timestamp"`
}

func TestValidateExportManifest(t *testing.T) {
	err := Validate(ExportManifest, manifestDoc{
		Version:      1,
		MetadataOnly: false,
		Timestamp:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
}

func TestValidateExportManifestRejectsWrongVersion(t *testing.T) {
	err := Validate(ExportManifest, manifestDoc{
		Version:      2,
		MetadataOnly: true,
		Timestamp:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
}

func TestValidateExportManifestRejectsUnknownFields(t *testing.T) {
	doc := map[string]any{
		"version":       1,
		"metadata_only": true,
		"timestamp":     "2024-01-01T00:00:00Z",
		"unexpected":    "field",
	}
	require.Error(t, Validate(ExportManifest, doc))
}
