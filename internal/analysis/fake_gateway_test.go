package analysis

import (
	"context"
	"io"
	"sync"

	"github.com/nvoss/leakscope/internal/gateway"
	"github.com/nvoss/leakscope/internal/models"
)

// fakeCompleter scripts gateway responses for stage tests. Each Complete call
// consumes the next scripted reply; a scripted error is returned in its place.
type fakeCompleter struct {
	mu      sync.Mutex
	replies []fakeReply
	calls   []gateway.CompletionRequest
	turns   [][]models.ChatTurn
	stream  *fakeStream
}

type fakeReply struct {
	body string
	err  error
}

func (f *fakeCompleter) script(body string) {
	f.replies = append(f.replies, fakeReply{body: body})
}

func (f *fakeCompleter) scriptErr(err error) {
	f.replies = append(f.replies, fakeReply{err: err})
}

func (f *fakeCompleter) Complete(ctx context.Context, req gateway.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if len(f.replies) == 0 {
		return "", io.ErrUnexpectedEOF
	}
	next := f.replies[0]
	f.replies = f.replies[1:]
	return next.body, next.err
}

func (f *fakeCompleter) StreamComplete(ctx context.Context, turns []models.ChatTurn) (gateway.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, turns)
	if f.stream == nil {
		f.stream = &fakeStream{}
	}
	return f.stream, nil
}

// fakeStream yields scripted chunks then io.EOF, or a terminal error.
type fakeStream struct {
	chunks   []string
	err      error
	closed   bool
	received int
}

func (s *fakeStream) Recv() (string, error) {
	if s.received < len(s.chunks) {
		chunk := s.chunks[s.received]
		s.received++
		return chunk, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}
