package autometa

import (
	"io"
	"net/http"
	"os"
)

// MIME sniffs a content-type from the first 512 bytes. No dedicated
// MIME-sniffing library is available here, so this importer uses
// net/http.DetectContentType from the standard library; see DESIGN.md.
type MIME struct{}

func (MIME) Fields() []string { return []string{"content-type"} }

func (MIME) Extract(path string, f *os.File) (map[string]any, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return map[string]any{"content-type": http.DetectContentType(buf[:n])}, nil
}
