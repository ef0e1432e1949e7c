package ingest

import (
	"fmt"
	"strconv"

	"github.com/viant/vecrag/schema"
	"github.com/viant/vecrag/vectordb/meta"
)

// Fragment is a byte range of a source file.
type Fragment struct {
	Start    int
	End      int
	Checksum uint64
}

// Key returns the fragment key for path.
func (f *Fragment) Key(path string) string {
	return fmt.Sprintf("%s:%d-%d", path, f.Start, f.End)
}

// ID returns a stable numeric record id for the fragment of path. The value
// fits a signed 64-bit column.
func (f *Fragment) ID(path string) (string, error) {
	h, err := Hash([]byte(f.Key(path)))
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(h>>1, 10), nil
}

// NewDocument creates a record from the fragment of content located at path.
func (f *Fragment) NewDocument(path string, content []byte) (schema.Document, error) {
	start, end := f.Start, f.End
	if end > len(content) {
		end = len(content)
	}
	if start > end {
		start = end
	}
	id, err := f.ID(path)
	if err != nil {
		return schema.Document{}, err
	}
	return schema.Document{
		ID:          id,
		PageContent: string(content[start:end]),
		Metadata: map[string]interface{}{
			meta.PathKey:    path,
			meta.StartKey:   start,
			meta.EndKey:     end,
			"checksum":      strconv.FormatUint(f.Checksum, 16),
			meta.DocumentID: path,
			meta.FragmentID: f.Key(path),
		},
	}, nil
}
