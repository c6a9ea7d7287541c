// Package exportimport implements the zip archive format: a manifest
// entry, a YAML metadata map, and (unless metadata-only) raw blob
// bytes, with rename-on-import support.
package exportimport

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/qualia-db/qualia/internal/database"
	"github.com/qualia-db/qualia/pkg/schema"
	"gopkg.in/yaml.v3"
)

const manifestEntry = "qualia_export.yaml"
const metadataEntry = "metadata.yaml"
const manifestVersion = 1

// Manifest is qualia_export.yaml's shape.
type Manifest struct {
	Version      int       `yaml:"version" json:"version"`
	MetadataOnly bool      `yaml:"metadata_only" json:"metadata_only"`
	Timestamp    time.Time `yaml:"timestamp" json:"timestamp"`
}

// Export writes a zip archive to w containing every hash in hashes (or,
// if hashes is empty, every blob object in the database - the CLI's
// `--all`). metadataOnly omits `files/<hash>` entries.
func Export(db *database.Facade, w io.Writer, hashes []string, metadataOnly bool, at time.Time) error {
	if len(hashes) == 0 {
		var err error
		hashes, err = allBlobHashes(db)
		if err != nil {
			return err
		}
	}

	zw := zip.NewWriter(w)

	manifest := Manifest{Version: manifestVersion, MetadataOnly: metadataOnly, Timestamp: at}
	if err := writeYAMLEntry(zw, manifestEntry, manifest); err != nil {
		return err
	}

	metadata := map[string]map[string]any{}
	for _, hash := range hashes {
		props, err := db.Select(map[string]string{"hash": hash}).All()
		if err != nil {
			return err
		}
		if len(props) == 0 {
			continue
		}
		entry := map[string]any{}
		for k, v := range props[0] {
			if k == "hash" || k == "object_id" {
				continue
			}
			entry[k] = v
		}
		metadata[hash] = entry
	}
	if err := writeYAMLEntry(zw, metadataEntry, metadata); err != nil {
		return err
	}

	if !metadataOnly {
		for hash := range metadata {
			if err := copyBlobEntry(db, zw, hash); err != nil {
				return err
			}
		}
	}

	return zw.Close()
}

func allBlobHashes(db *database.Facade) ([]string, error) {
	all, err := db.All().All()
	if err != nil {
		return nil, err
	}
	var hashes []string
	for _, props := range all {
		if h, ok := props["hash"].(string); ok {
			hashes = append(hashes, h)
		}
	}
	return hashes, nil
}

func writeYAMLEntry(zw *zip.Writer, name string, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func copyBlobEntry(db *database.Facade, zw *zip.Writer, hash string) error {
	f, resolved, err := db.OpenBlob(hash)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.Create("files/" + resolved)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// Import applies an archive's metadata (and, unless metadata-only,
// blob bytes) to db. rename optionally maps a field name in the archive
// to the field name it should be written under. A hash already present
// in db is treated as an identical file already in the database rather
// than re-added, though its metadata is still applied. Import finishes
// with a commit.
func Import(db *database.Facade, archivePath string, rename map[string]string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	var manifest Manifest
	var metadata map[string]map[string]any
	files := map[string]*zip.File{}

	for _, f := range zr.File {
		switch {
		case f.Name == manifestEntry:
			if err := readYAMLEntry(f, &manifest); err != nil {
				return err
			}
		case f.Name == metadataEntry:
			if err := readYAMLEntry(f, &metadata); err != nil {
				return err
			}
		case len(f.Name) > len("files/") && f.Name[:6] == "files/":
			files[f.Name[6:]] = f
		}
	}

	if manifest.Version != manifestVersion {
		return fmt.Errorf("exportimport: unsupported archive version %d", manifest.Version)
	}
	if err := schema.Validate(schema.ExportManifest, manifest); err != nil {
		return fmt.Errorf("exportimport: invalid manifest: %w", err)
	}

	for hash, fields := range metadata {
		if !manifest.MetadataOnly {
			if zf, ok := files[hash]; ok && !db.Exists(hash) {
				if err := importBlobFile(db, zf); err != nil {
					return err
				}
			}
		}

		renamed := map[string]any{}
		for k, v := range fields {
			target := k
			if to, ok := rename[k]; ok {
				target = to
			}
			renamed[target] = v
		}

		for field, value := range renamed {
			if err := db.SetField(hash, field, value, "import"); err != nil {
				return err
			}
		}
	}

	_, _, err = db.Commit()
	return err
}

func readYAMLEntry(f *zip.File, out any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, out)
}

func importBlobFile(db *database.Facade, zf *zip.File) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "qualia-import-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	_, err = db.AddFile(tmpPath, true, nil)
	return err
}
