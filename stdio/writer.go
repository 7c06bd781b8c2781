package stdio

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Writer frames messages as single newline-terminated JSON lines.
// WriteMessage is safe for concurrent use; each frame is written whole,
// so frames from overlapping requests never interleave mid-line.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) WriteMessage(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
