package botport

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestBotErrorUnwrap(t *testing.T) {
	root := errors.New("boom")
	err := fmt.Errorf("send: %w", NewBotError("send_text", CodeForbidden, root))
	if !errors.Is(err, root) {
		t.Fatalf("expected wrapped error to be reachable")
	}
	if !IsCode(err, CodeForbidden) {
		t.Fatalf("expected code %s", CodeForbidden)
	}
	if IsCode(err, CodeRateLimited) {
		t.Fatalf("unexpected code match")
	}
}

func TestIsRetryable(t *testing.T) {
	limited := &BotError{Op: "send_text", Code: CodeRateLimited, RetryAfter: time.Second}
	if !IsRetryable(limited) {
		t.Fatalf("expected rate_limited to be retryable")
	}
	if IsRetryable(&BotError{Op: "send_text", Code: CodeForbidden}) {
		t.Fatalf("expected forbidden to be final")
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("expected plain error to be final")
	}
}

func TestNilBotErrorString(t *testing.T) {
	var be *BotError
	if be.Error() != "<nil>" {
		t.Fatalf("unexpected string %q", be.Error())
	}
}
