package fakeadapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ledgerbot/pkg/ports/botport"
)

// FakeAdapter implements botport.BotPort for headless tests.
type FakeAdapter struct {
	mu            sync.Mutex
	Calls         []Call
	NextMessageID int
	FailNext      map[string]error
}

// Call captures a bot operation invocation.
type Call struct {
	Op        string
	SenderID  string
	MessageID int
	Text      string
}

var _ botport.BotPort = (*FakeAdapter)(nil)

// SendText records a send operation and returns a synthetic BotMessage.
func (f *FakeAdapter) SendText(ctx context.Context, senderID string, text string) (botport.BotMessage, error) {
	if err := ctx.Err(); err != nil {
		return botport.BotMessage{}, wrapContextError("send_text", err)
	}
	if err := f.maybeFail("send_text"); err != nil {
		return botport.BotMessage{}, err
	}
	msgID := f.nextMessageID()
	f.record(Call{Op: "send_text", SenderID: senderID, MessageID: msgID, Text: text})
	return botport.BotMessage{
		SenderID:  senderID,
		MessageID: msgID,
		Transport: "fake",
		Payload:   text,
		Meta:      map[string]string{"fake": "true"},
	}, nil
}

// Fail configures the next call for op to return err (wrapped as BotError if needed).
func (f *FakeAdapter) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext == nil {
		f.FailNext = make(map[string]error)
	}
	f.FailNext[op] = err
}

// LastCall returns the most recent call for the given op.
func (f *FakeAdapter) LastCall(op string) *Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Calls) - 1; i >= 0; i-- {
		if f.Calls[i].Op == op {
			c := f.Calls[i]
			return &c
		}
	}
	return nil
}

// TextsTo returns every text sent to senderID, oldest first.
func (f *FakeAdapter) TextsTo(senderID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var texts []string
	for _, c := range f.Calls {
		if c.SenderID == senderID {
			texts = append(texts, c.Text)
		}
	}
	return texts
}

// LastTextTo returns the most recent text sent to senderID, or "".
func (f *FakeAdapter) LastTextTo(senderID string) string {
	texts := f.TextsTo(senderID)
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

// CallCount returns the number of recorded calls.
func (f *FakeAdapter) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

func (f *FakeAdapter) nextMessageID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.NextMessageID == 0 {
		f.NextMessageID = 1
	}
	id := f.NextMessageID
	f.NextMessageID++
	return id
}

func (f *FakeAdapter) record(call Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

func (f *FakeAdapter) maybeFail(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext == nil {
		return nil
	}
	err, ok := f.FailNext[op]
	if !ok {
		return nil
	}
	delete(f.FailNext, op)
	if _, ok := err.(*botport.BotError); ok {
		return err
	}
	return &botport.BotError{Op: op, Code: "fake_error", Wrapped: err}
}

func wrapContextError(op string, err error) error {
	switch err {
	case context.Canceled:
		return &botport.BotError{Op: op, Code: botport.CodeContextCanceled, Wrapped: err}
	case context.DeadlineExceeded:
		return &botport.BotError{Op: op, Code: botport.CodeContextDeadline, Wrapped: err}
	default:
		return &botport.BotError{Op: op, Code: botport.CodeContextError, Wrapped: err}
	}
}

// Helpers to script common BotError cases in tests.
func Forbidden(op string) *botport.BotError {
	return &botport.BotError{Op: op, Code: botport.CodeForbidden, Wrapped: fmt.Errorf("bot was blocked by the user")}
}

func RateLimited(op string, retry time.Duration) *botport.BotError {
	return &botport.BotError{Op: op, Code: botport.CodeRateLimited, RetryAfter: retry, Wrapped: fmt.Errorf("rate limited")}
}
