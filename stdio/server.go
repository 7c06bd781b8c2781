package stdio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/misfitdev/quotascope/mcp"
)

// Dispatcher turns a decoded request into a response envelope. A nil
// response means nothing is written, which is how notifications are
// handled.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *mcp.Request) *mcp.Response
}

// Server owns the stdio protocol loop: it reads frames, hands them to
// the dispatcher, writes responses, and decides when the process may
// exit. It is the only component that writes protocol frames.
type Server struct {
	reader     *Reader
	writer     *Writer
	dispatcher Dispatcher
	tracker    *Tracker
	log        *zap.Logger
}

func NewServer(in io.Reader, out io.Writer, dispatcher Dispatcher, log *zap.Logger) *Server {
	return &Server{
		reader:     NewReader(in),
		writer:     NewWriter(out),
		dispatcher: dispatcher,
		tracker:    NewTracker(),
		log:        log,
	}
}

// Serve reads frames until the input closes or ctx is canceled, then
// waits for in-flight requests to drain before returning. Each request
// is dispatched on its own goroutine, so responses may be written out
// of arrival order; peers correlate by id.
func (s *Server) Serve(ctx context.Context) error {
	defer s.drain()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := s.reader.ReadMessage()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		frame = bytes.TrimSpace(frame)
		if len(frame) == 0 {
			continue
		}

		var req mcp.Request
		if err := json.Unmarshal(frame, &req); err != nil {
			// Parse failures are answered in place and never
			// enter the tracker.
			s.log.Debug("Discarding unparseable frame", zap.Error(err))
			s.write(mcp.NewErrorResponse(nil, mcp.CodeParseError, fmt.Sprintf("parse error: %v", err)))
			continue
		}

		s.tracker.Begin()
		go s.handle(ctx, &req)
	}
}

// drain stops accepting input and blocks until every in-flight request
// has written its response.
func (s *Server) drain() {
	s.tracker.CloseInput()
	if n := s.tracker.InFlight(); n > 0 {
		s.log.Debug("Input closed, draining in-flight requests", zap.Int("in_flight", n))
	}
	s.tracker.Wait()
}

func (s *Server) handle(ctx context.Context, req *mcp.Request) {
	defer s.tracker.End()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Recovered panic in handler",
				zap.Any("panic", r),
				zap.String("method", req.Method))
			if !req.IsNotification() {
				s.write(mcp.NewErrorResponse(req.ID, mcp.CodeInternalError, "internal error"))
			}
		}
	}()

	if resp := s.dispatcher.Dispatch(ctx, req); resp != nil {
		s.write(resp)
	}
}

func (s *Server) write(msg any) {
	if err := s.writer.WriteMessage(msg); err != nil {
		s.log.Error("Failed to write frame", zap.Error(err))
	}
}
