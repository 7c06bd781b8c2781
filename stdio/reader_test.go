package stdio

import (
	"io"
	"strings"
	"testing"
)

func TestReadMessage(t *testing.T) {
	t.Parallel()

	r := NewReader(strings.NewReader("{\"id\":1}\n{\"id\":2}\n"))

	first, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if string(first) != `{"id":1}` {
		t.Fatalf("first frame = %q", first)
	}

	second, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if string(second) != `{"id":2}` {
		t.Fatalf("second frame = %q", second)
	}

	if _, err := r.ReadMessage(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadMessageLastLineWithoutNewline(t *testing.T) {
	t.Parallel()

	r := NewReader(strings.NewReader(`{"id":3}`))

	frame, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(frame) != `{"id":3}` {
		t.Fatalf("frame = %q", frame)
	}
	if _, err := r.ReadMessage(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadMessageFramesAreStable(t *testing.T) {
	t.Parallel()

	r := NewReader(strings.NewReader("first-frame-payload\nsecond-frame-payload\n"))

	first, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if _, err := r.ReadMessage(); err != nil {
		t.Fatalf("second read: %v", err)
	}

	// The first frame must not alias the scanner's buffer.
	if string(first) != "first-frame-payload" {
		t.Fatalf("first frame mutated by later read: %q", first)
	}
}
