// Package blobstore implements content-addressed file storage: bytes in,
// a SHA-512 hex digest out, a read-only file on disk at a path derived
// purely from that digest.
package blobstore

import (
	"crypto/sha512"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/qualia-db/qualia/internal/qerrors"
	"github.com/qualia-db/qualia/pkg/log"
)

// Store roots blob storage at <root>/files/<hh>/<hash>.
type Store struct {
	root string
}

// New returns a Store rooted at root. The root and its "files" subdirectory
// are created if missing.
func New(root string) (*Store, error) {
	filesDir := filepath.Join(root, "files")
	if err := os.MkdirAll(filesDir, 0o777); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

// DirFor returns the shard directory for a (possibly partial) hash.
func (s *Store) DirFor(hash string) string {
	shard := hash
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(s.root, "files", shard)
}

// FilenameFor is a pure function of hash: the path a blob with this full
// hash would live at, whether or not it currently exists.
func (s *Store) FilenameFor(hash string) string {
	return filepath.Join(s.DirFor(hash), hash)
}

// Add streams r into the store, hashing as it writes, and renames the
// result into place once the hash is known. It fails with
// *qerrors.FileExistsError if the destination already exists.
func (s *Store) Add(r io.Reader) (hash string, err error) {
	shardDir := filepath.Join(s.root, "files", "tmp")
	if err := os.MkdirAll(shardDir, 0o777); err != nil {
		return "", err
	}

	tmpName := filepath.Join(shardDir, uuid.New().String())
	tmp, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	cleanup := true
	defer func() {
		tmp.Close()
		if cleanup {
			os.Remove(tmpName)
		}
	}()

	h := sha512.New()
	if _, err := io.Copy(tmp, io.TeeReader(r, h)); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	hash = hex.EncodeToString(h.Sum(nil))
	if err := s.finalize(tmpName, hash); err != nil {
		return "", err
	}
	cleanup = false
	return hash, nil
}

// AddFile adds the contents of an existing file to the store. If move is
// true, it first attempts to rename sourcePath directly into place
// (cheap, same-filesystem case); on any OS-level failure it falls back to
// streaming a copy and then unlinking sourcePath.
func (s *Store) AddFile(sourcePath string, move bool) (hash string, err error) {
	if move {
		if h, err := s.hashFile(sourcePath); err == nil {
			dest := s.FilenameFor(h)
			if _, statErr := os.Stat(dest); statErr == nil {
				return "", &qerrors.FileExistsError{Hash: h}
			}
			if err := os.MkdirAll(s.DirFor(h), 0o777); err == nil {
				if err := os.Rename(sourcePath, dest); err == nil {
					if err := lockDown(dest); err != nil {
						return "", err
					}
					return h, nil
				}
			}
		}
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash, err = s.Add(f)
	if err != nil {
		return "", err
	}

	if move {
		if err := os.Remove(sourcePath); err != nil {
			log.Warnf("blobstore: could not unlink source %q after move: %v", sourcePath, err)
		}
	}
	return hash, nil
}

func (s *Store) hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha512.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Store) finalize(tmpName, hash string) error {
	dest := s.FilenameFor(hash)
	if _, err := os.Stat(dest); err == nil {
		return &qerrors.FileExistsError{Hash: hash}
	}

	if err := os.MkdirAll(s.DirFor(hash), 0o777); err != nil {
		return err
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return err
	}

	return lockDown(dest)
}

// lockDown masks the file mode down to r--r--r-- & ~umask, so a stored
// blob can never be made writable by the process's default mode bits.
func lockDown(path string) error {
	mode := os.FileMode(0o444) &^ currentUmask()
	return os.Chmod(path, mode)
}

// Exists reports whether a blob with this exact hash is present on disk.
// The search index is the authoritative existence check in the facade;
// this is a plain filesystem check used by lower layers and tests.
func (s *Store) Exists(hash string) bool {
	_, err := os.Stat(s.FilenameFor(hash))
	return err == nil
}

// Delete removes the blob bytes for hash and best-effort removes the now
// possibly-empty shard directory.
func (s *Store) Delete(hash string) error {
	if err := os.Remove(s.FilenameFor(hash)); err != nil {
		return err
	}

	if err := os.Remove(s.DirFor(hash)); err != nil {
		log.Debugf("blobstore: shard dir %q not removed: %v", s.DirFor(hash), err)
	}
	return nil
}

// Open returns a reader for the blob's bytes.
func (s *Store) Open(hash string) (*os.File, error) {
	f, err := os.Open(s.FilenameFor(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &qerrors.FileDoesNotExistError{Hash: hash}
		}
		return nil, err
	}
	return f, nil
}
