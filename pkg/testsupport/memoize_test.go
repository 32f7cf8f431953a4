package testsupport

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-memoizer/memoize"
)

func TestCountingOperation_Default(t *testing.T) {
	counter := NewCountingOperation(nil)
	op := counter.Op()

	for want := 1; want <= 3; want++ {
		got, err := op(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected call number %d, got %v", want, got)
		}
	}

	if counter.Calls() != 3 {
		t.Errorf("expected 3 calls, got %d", counter.Calls())
	}
}

func TestCountingOperation_CustomResult(t *testing.T) {
	boom := errors.New("boom")
	counter := NewCountingOperation(func(call int, args []any) (any, error) {
		if len(args) == 0 {
			return nil, boom
		}
		return args[0], nil
	})
	op := counter.Op()

	if _, err := op(context.Background(), nil); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}

	got, err := op(context.Background(), nil, "x")
	if err != nil || got != "x" {
		t.Errorf("expected x, got %v (err=%v)", got, err)
	}

	if counter.Calls() != 2 {
		t.Errorf("expected 2 calls, got %d", counter.Calls())
	}
}

func TestEventRecorder(t *testing.T) {
	recorder := NewEventRecorder()
	ctx := context.Background()

	recorder.OnMemoizedCall(ctx, memoize.Event{Kind: memoize.EventMiss, Operation: "a"})
	recorder.OnMemoizedCall(ctx, memoize.Event{Kind: memoize.EventHit, Operation: "a"})
	recorder.OnMemoizedCall(ctx, memoize.Event{Kind: memoize.EventHit, Operation: "a"})

	kinds := recorder.Kinds()
	if len(kinds) != 3 || kinds[0] != memoize.EventMiss {
		t.Errorf("unexpected kinds %v", kinds)
	}

	if recorder.Count(memoize.EventHit) != 2 {
		t.Errorf("expected 2 hits, got %d", recorder.Count(memoize.EventHit))
	}

	recorder.Reset()
	if len(recorder.Events()) != 0 {
		t.Errorf("expected no events after reset")
	}
}
