package stdio

import (
	"bufio"
	"io"
)

// maxLineBytes caps a single protocol frame. Tool arguments arrive
// inline on the request line, so frames stay small in practice.
const maxLineBytes = 10 * 1024 * 1024

// Reader yields newline-delimited protocol frames from a stream.
type Reader struct {
	scanner *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Reader{scanner: scanner}
}

// ReadMessage returns the next frame without its trailing newline. It
// returns io.EOF once the stream ends. The returned slice is a copy
// and stays valid across subsequent reads.
func (r *Reader) ReadMessage() ([]byte, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	line := r.scanner.Bytes()
	frame := make([]byte, len(line))
	copy(frame, line)
	return frame, nil
}
