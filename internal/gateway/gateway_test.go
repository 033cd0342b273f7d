package gateway

import (
	"context"
	"errors"
	"testing"
	"time"
)

type slowGateway struct {
	delay time.Duration
}

func (s *slowGateway) Chat(ctx context.Context, modelID string, messages []Message) (string, error) {
	select {
	case <-time.After(s.delay):
		return "done", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestWithTimeoutCancelsSlowCalls(t *testing.T) {
	gw := WithTimeout(&slowGateway{delay: time.Second}, 10*time.Millisecond)

	_, err := gw.Chat(context.Background(), "m1", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}

func TestWithTimeoutPassesFastCalls(t *testing.T) {
	gw := WithTimeout(&slowGateway{delay: time.Millisecond}, time.Second)

	got, err := gw.Chat(context.Background(), "m1", nil)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if got != "done" {
		t.Errorf("reply = %q", got)
	}
}

func TestWithTimeoutZeroIsNoop(t *testing.T) {
	inner := &slowGateway{}
	if got := WithTimeout(inner, 0); got != Gateway(inner) {
		t.Error("zero timeout should return the gateway unchanged")
	}
}

func TestMockScripting(t *testing.T) {
	m := &Mock{
		Responses: map[string]string{"a": "alpha"},
		Errors:    map[string]error{"b": errors.New("boom")},
		Default:   "fallback",
	}

	if got, _ := m.Chat(context.Background(), "a", nil); got != "alpha" {
		t.Errorf("scripted reply = %q", got)
	}
	if _, err := m.Chat(context.Background(), "b", nil); err == nil {
		t.Error("scripted error missing")
	}
	if got, _ := m.Chat(context.Background(), "c", nil); got != "fallback" {
		t.Errorf("default reply = %q", got)
	}

	if n := m.CallsTo("a"); n != 1 {
		t.Errorf("calls to a = %d", n)
	}
	if n := len(m.Calls()); n != 3 {
		t.Errorf("total calls = %d", n)
	}
}

func TestMockHonorsCancelledContext(t *testing.T) {
	m := &Mock{Default: "x"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Chat(ctx, "a", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want canceled", err)
	}
}
