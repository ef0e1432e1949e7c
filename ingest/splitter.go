package ingest

import "unicode/utf8"

// DefaultChunkSize is the fragment size used when none is configured.
const DefaultChunkSize = 4096

// SizeSplitter splits content into fragments of at most maxSize bytes
// without breaking UTF-8 sequences.
type SizeSplitter struct {
	maxSize int
}

// NewSizeSplitter creates a SizeSplitter.
func NewSizeSplitter(maxSize int) *SizeSplitter {
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}
	return &SizeSplitter{maxSize: maxSize}
}

// Split returns the fragments of data in order.
func (s *SizeSplitter) Split(data []byte) ([]*Fragment, error) {
	var fragments []*Fragment
	for start := 0; start < len(data); {
		end := start + s.maxSize
		if end >= len(data) {
			end = len(data)
		} else {
			for end > start+1 && !utf8.RuneStart(data[end]) {
				end--
			}
		}
		checksum, err := Hash(data[start:end])
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, &Fragment{Start: start, End: end, Checksum: checksum})
		start = end
	}
	return fragments, nil
}
