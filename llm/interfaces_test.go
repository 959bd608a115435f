package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type stubClient struct {
	resp *Response
	err  error
	reqs []*Request
}

func (s *stubClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	s.reqs = append(s.reqs, req)
	return s.resp, s.err
}

func (s *stubClient) Provider() string { return "stub" }

func TestWrapWithMiddlewareOrder(t *testing.T) {
	inner := &stubClient{resp: &Response{Text: "ok"}}
	var calls []string
	mw := func(name string) Middleware {
		return MiddlewareFunc{
			BeforeRequestFunc: func(ctx context.Context, req *Request) (*Request, error) {
				calls = append(calls, "before:"+name)
				return req, nil
			},
			AfterResponseFunc: func(ctx context.Context, req *Request, resp *Response) (*Response, error) {
				calls = append(calls, "after:"+name)
				return resp, nil
			},
		}
	}

	client := WrapWithMiddleware(inner, mw("a"), mw("b"))
	if _, err := client.Generate(context.Background(), &Request{Prompt: "p"}); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	want := []string{"before:a", "before:b", "after:b", "after:a"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %s, want %s", i, calls[i], want[i])
		}
	}
	if client.Provider() != "stub" {
		t.Errorf("Provider() = %s", client.Provider())
	}
}

func TestWrapWithMiddlewareAbortsBeforeRequest(t *testing.T) {
	inner := &stubClient{resp: &Response{}}
	abort := errors.New("abort")
	client := WrapWithMiddleware(inner, MiddlewareFunc{
		BeforeRequestFunc: func(ctx context.Context, req *Request) (*Request, error) { return nil, abort },
	})
	if _, err := client.Generate(context.Background(), &Request{Prompt: "p"}); !errors.Is(err, abort) {
		t.Fatalf("err = %v, want abort", err)
	}
	if len(inner.reqs) != 0 {
		t.Error("inner client must not be called")
	}
}

func TestLoggingMiddlewarePreservesError(t *testing.T) {
	want := NewRateLimitError(ProviderAnthropic, "slow", nil, nil)
	inner := &stubClient{err: want}
	client := WrapWithMiddleware(inner, NewLoggingMiddleware(zerolog.Nop()))

	_, err := client.Generate(context.Background(), &Request{Prompt: "p"})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

func TestWrapWithoutMiddlewareReturnsClient(t *testing.T) {
	inner := &stubClient{}
	if WrapWithMiddleware(inner) != Client(inner) {
		t.Error("expected the same client back")
	}
}
