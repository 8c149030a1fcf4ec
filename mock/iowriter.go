package mock

import (
	"strings"
	"sync"
)

// IOWriter accumulates everything written to it. Safe for concurrent use.
type IOWriter struct {
	mu   sync.Mutex
	line []byte
}

func (t *IOWriter) Reset() {
	t.mu.Lock()
	t.line = t.line[:0]
	t.mu.Unlock()
}

func (t *IOWriter) Write(b []byte) (int, error) {
	t.mu.Lock()
	t.line = append(t.line, b...)
	t.mu.Unlock()

	return len(b), nil
}

func (t *IOWriter) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return string(t.line)
}

func (t *IOWriter) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.line)
}

// Lines returns the output split into lines with the trailing empty line removed.
func (t *IOWriter) Lines() []string {
	s := strings.TrimSuffix(t.String(), "\n")
	if len(s) == 0 {
		return nil
	}

	return strings.Split(s, "\n")
}
