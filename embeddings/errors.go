package embeddings

import "fmt"

// Error reports a provider-side embedding failure.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s embeddings: %s: %v", e.Provider, e.Message, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s embeddings: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s embeddings: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }
