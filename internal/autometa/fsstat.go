package autometa

import "os"

// FSStat populates file-modified-at from the filesystem's mtime.
type FSStat struct{}

func (FSStat) Fields() []string { return []string{"file-modified-at"} }

func (FSStat) Extract(path string, f *os.File) (map[string]any, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return map[string]any{"file-modified-at": info.ModTime()}, nil
}
