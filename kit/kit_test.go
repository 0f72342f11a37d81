package kit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestChain_Order(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				order = append(order, name+"_before")
				resp, err := next(ctx, req)
				order = append(order, name+"_after")
				return resp, err
			}
		}
	}

	base := func(_ context.Context, _ any) (any, error) {
		order = append(order, "endpoint")
		return "ok", nil
	}

	chained := Chain(mw("a"), mw("b"), mw("c"))(base)
	resp, err := chained(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp != "ok" {
		t.Fatalf("response: got %v", resp)
	}

	expected := []string{"a_before", "b_before", "c_before", "endpoint", "c_after", "b_after", "a_after"}
	if len(order) != len(expected) {
		t.Fatalf("order length: got %d, want %d", len(order), len(expected))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Fatalf("order[%d]: got %q, want %q", i, order[i], v)
		}
	}
}

func TestChain_ErrorPropagation(t *testing.T) {
	errFail := errors.New("fail")
	base := func(_ context.Context, _ any) (any, error) {
		return nil, errFail
	}

	noop := func(next Endpoint) Endpoint { return next }
	chained := Chain(noop)(base)

	_, err := chained(context.Background(), nil)
	if !errors.Is(err, errFail) {
		t.Fatalf("error: got %v, want %v", err, errFail)
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ok := func(_ context.Context, _ any) (any, error) { return "ok", nil }
	if _, err := Logging(logger, "demo")(ok)(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "endpoint ok") || !strings.Contains(buf.String(), "op=demo") {
		t.Errorf("success not logged: %q", buf.String())
	}

	buf.Reset()
	fail := func(_ context.Context, _ any) (any, error) { return nil, errors.New("boom") }
	if _, err := Logging(logger, "demo")(fail)(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(buf.String(), "endpoint failed") || !strings.Contains(buf.String(), "boom") {
		t.Errorf("failure not logged: %q", buf.String())
	}
}
