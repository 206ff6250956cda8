package llm

import (
	"context"
	"sync"
)

// Fake is an in-memory Completer. Reply, when set, produces each response;
// otherwise Content is returned verbatim.
type Fake struct {
	Content string
	Err     error
	Usage   Usage
	Reply   func(req *Request) (string, error)

	mu       sync.Mutex
	requests []*Request
}

// Complete records req and returns the canned reply.
func (f *Fake) Complete(ctx context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}
	content := f.Content
	if f.Reply != nil {
		var err error
		content, err = f.Reply(req)
		if err != nil {
			return nil, err
		}
	}
	return &Response{Content: content, Model: req.Model, Usage: f.Usage}, nil
}

// Calls returns how many requests reached the fake.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// Requests returns a copy of the recorded requests.
func (f *Fake) Requests() []*Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Request, len(f.requests))
	copy(out, f.requests)
	return out
}
