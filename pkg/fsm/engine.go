package fsm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"text/template"
	"time"

	"ledgerbot/pkg/config"
	"ledgerbot/pkg/ingestion"
	"ledgerbot/pkg/journal"
	"ledgerbot/pkg/masterdata"
	"ledgerbot/pkg/metrics"
	"ledgerbot/pkg/ports/botport"
	"ledgerbot/pkg/state"
)

type Submitter interface {
	Submit(ctx context.Context, payload ingestion.Payload) (ingestion.ID, error)
}

type MasterData interface {
	Get() (*masterdata.Snapshot, bool)
	EnsureLoaded(ctx context.Context) (*masterdata.Snapshot, bool)
	Refresh(ctx context.Context) error
}

type OutcomeRecorder interface {
	Record(ctx context.Context, o journal.Outcome) error
}

type EngineDeps struct {
	Config     *config.BotConfig
	Store      state.Store
	MasterData MasterData
	Submitter  Submitter
	Bot        botport.BotPort
	// Journal is optional.
	Journal OutcomeRecorder
}

// Engine drives one message at a time through a sender's conversation. Callers must
// not run two HandleMessage calls for the same sender concurrently; Dispatcher
// guarantees that.
type Engine struct {
	cfg        *config.BotConfig
	machine    *Machine
	store      state.Store
	masterData MasterData
	submitter  Submitter
	bot        botport.BotPort
	journal    OutcomeRecorder

	successTmpl *template.Template
	refreshTmpl *template.Template
	now         func() time.Time
}

func NewEngine(deps EngineDeps) (*Engine, error) {
	if deps.Config == nil || deps.Store == nil || deps.MasterData == nil || deps.Submitter == nil || deps.Bot == nil {
		return nil, fmt.Errorf("engine: config, store, master data, submitter and bot are required")
	}
	successTmpl, err := template.New("success").Parse(deps.Config.Messages.Success)
	if err != nil {
		return nil, fmt.Errorf("engine: parse success message: %w", err)
	}
	refreshTmpl, err := template.New("refresh_done").Parse(deps.Config.Messages.RefreshDone)
	if err != nil {
		return nil, fmt.Errorf("engine: parse refresh message: %w", err)
	}

	return &Engine{
		cfg:         deps.Config,
		machine:     NewMachine(deps.Config),
		store:       deps.Store,
		masterData:  deps.MasterData,
		submitter:   deps.Submitter,
		bot:         deps.Bot,
		journal:     deps.Journal,
		successTmpl: successTmpl,
		refreshTmpl: refreshTmpl,
		now:         time.Now,
	}, nil
}

// HandleMessage processes one inbound text. The returned error only reports a failed
// reply send; conversation failures are answered in chat.
func (e *Engine) HandleMessage(ctx context.Context, senderID, text string) error {
	trimmed := strings.TrimSpace(text)

	if trimmed == e.cfg.Commands.Refresh {
		metrics.MessagesHandled.WithLabelValues(KindRefresh).Inc()
		return e.handleRefresh(ctx, senderID)
	}

	sess, ok := e.store.Get(senderID)
	if !ok {
		if strings.EqualFold(trimmed, e.cfg.Commands.Trigger) {
			metrics.MessagesHandled.WithLabelValues(KindTrigger).Inc()
			return e.handleTrigger(ctx, senderID)
		}
		metrics.MessagesHandled.WithLabelValues(KindIgnored).Inc()
		return nil
	}

	if strings.EqualFold(trimmed, e.cfg.Commands.Cancel) {
		metrics.MessagesHandled.WithLabelValues(KindCancel).Inc()
		e.finish(ctx, senderID, EventCancel, metrics.OutcomeCancelled, "")
		return e.reply(ctx, senderID, e.cfg.Messages.Cancelled)
	}

	metrics.MessagesHandled.WithLabelValues(KindStep).Inc()
	return e.handleStep(ctx, sess, text)
}

func (e *Engine) handleRefresh(ctx context.Context, senderID string) error {
	if err := e.masterData.Refresh(ctx); err != nil {
		return e.reply(ctx, senderID, e.cfg.Messages.RefreshFailed)
	}
	snap, ok := e.masterData.Get()
	if !ok {
		return e.reply(ctx, senderID, e.cfg.Messages.RefreshFailed)
	}

	var buf bytes.Buffer
	data := struct{ Branches, Categories int }{len(snap.Branches), len(snap.Categories)}
	if err := e.refreshTmpl.Execute(&buf, data); err != nil {
		log.Printf("[handleRefresh] Error rendering refresh message: %v", err)
		return e.reply(ctx, senderID, e.cfg.Messages.RefreshFailed)
	}
	return e.reply(ctx, senderID, buf.String())
}

func (e *Engine) handleTrigger(ctx context.Context, senderID string) error {
	if _, ok := e.masterData.EnsureLoaded(ctx); !ok {
		log.Printf("[handleTrigger] Master data unavailable, sender %s stays without session", senderID)
		return e.reply(ctx, senderID, e.cfg.Messages.MasterDataUnavailable)
	}

	initial, menu := e.machine.Start(senderID)
	e.store.Create(senderID, initial)
	metrics.ConversationsStarted.Inc()
	return e.reply(ctx, senderID, menu)
}

func (e *Engine) handleStep(ctx context.Context, sess state.Session, text string) error {
	senderID := sess.SenderID
	cur := sess.Current

	snap, ok := e.masterData.Get()
	if !ok {
		snap = &masterdata.Snapshot{}
	}

	res := e.machine.Transition(cur, text, snap)

	switch {
	case res.Submit != nil:
		return e.submit(ctx, senderID, *res.Submit)

	case res.Next == nil:
		e.finish(ctx, senderID, EventAbort, res.Outcome, "")
		return e.reply(ctx, senderID, res.Reply)

	case res.Next.Step() == cur.Step():
		metrics.InvalidInputs.WithLabelValues(cur.Step().String()).Inc()
		return e.reply(ctx, senderID, res.Reply)
	}

	if err := e.advance(ctx, senderID, cur, res.Next); err != nil {
		log.Printf("[handleStep] Error advancing sender %s from step %s: %v", senderID, cur.Step(), err)
		e.finish(ctx, senderID, EventAbort, metrics.OutcomeAborted, "")
		return e.reply(ctx, senderID, e.cfg.Messages.InternalError)
	}
	return e.reply(ctx, senderID, res.Reply)
}

// advance moves the stored session one step forward. The step machine rejects any move
// that is not exactly one step ahead.
func (e *Engine) advance(ctx context.Context, senderID string, cur, next state.Conversation) error {
	event, ok := advanceEvents[cur.Step()]
	if !ok {
		return fmt.Errorf("no advance event for step %s", cur.Step())
	}

	found, err := e.store.Update(senderID, func(s *state.Session) error {
		prev := s.Steps.Current()
		if err := s.Steps.Event(ctx, event, senderID); err != nil {
			return fmt.Errorf("step machine rejected '%s': %w", event, err)
		}
		if got := s.Steps.Current(); got != next.Step().String() {
			s.Steps.SetState(prev)
			return fmt.Errorf("step machine at '%s', conversation at '%s'", got, next.Step())
		}
		s.Current = next
		return nil
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("session disappeared")
	}
	return nil
}

func (e *Engine) submit(ctx context.Context, senderID string, payload ingestion.Payload) error {
	start := e.now()
	id, err := e.submitter.Submit(ctx, payload)
	metrics.SubmissionDuration.Observe(e.now().Sub(start).Seconds())
	metrics.Submissions.WithLabelValues(metrics.Result(err)).Inc()

	if err != nil {
		log.Printf("[submit] Submission failed for sender %s: %v", senderID, err)
		e.finish(ctx, senderID, EventAbort, metrics.OutcomeSubmitFailed, "")
		return e.reply(ctx, senderID, e.cfg.Messages.SubmitFailed)
	}

	log.Printf("[submit] Sender %s recorded transaction %s", senderID, id)
	e.finish(ctx, senderID, EventSubmit, metrics.OutcomeCompleted, id.String())

	var buf bytes.Buffer
	if err := e.successTmpl.Execute(&buf, struct{ ID string }{id.String()}); err != nil {
		log.Printf("[submit] Error rendering success message: %v", err)
		return e.reply(ctx, senderID, e.cfg.Messages.Success)
	}
	return e.reply(ctx, senderID, buf.String())
}

// finish closes the step machine, drops the session and records the outcome.
func (e *Engine) finish(ctx context.Context, senderID, event, outcome, recordID string) {
	_, err := e.store.Update(senderID, func(s *state.Session) error {
		return s.Steps.Event(ctx, event, senderID)
	})
	if err != nil {
		log.Printf("[finish] Step machine did not accept '%s' for sender %s: %v", event, senderID, err)
	}
	e.store.Delete(senderID)
	metrics.ConversationsFinished.WithLabelValues(outcome).Inc()

	if e.journal == nil {
		return
	}
	o := journal.Outcome{SenderID: senderID, Kind: outcome, RecordID: recordID, At: e.now()}
	if err := e.journal.Record(ctx, o); err != nil {
		log.Printf("[finish] Error journaling outcome for sender %s: %v", senderID, err)
	}
}

// maxReplyRetryWait caps how long a rate-limited reply waits before its single retry.
const maxReplyRetryWait = 5 * time.Second

func (e *Engine) reply(ctx context.Context, senderID, text string) error {
	_, err := e.bot.SendText(ctx, senderID, text)
	if err == nil {
		return nil
	}
	if !botport.IsRetryable(err) || ctx.Err() != nil {
		log.Printf("[reply] Error sending message to sender %s: %v", senderID, err)
		return err
	}

	wait := retryAfter(err)
	log.Printf("[reply] Retrying message to sender %s in %s: %v", senderID, wait, err)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return err
	case <-timer.C:
	}

	if _, err := e.bot.SendText(ctx, senderID, text); err != nil {
		log.Printf("[reply] Error sending message to sender %s after retry: %v", senderID, err)
		return err
	}
	return nil
}

func retryAfter(err error) time.Duration {
	var be *botport.BotError
	if !errors.As(err, &be) || be.RetryAfter <= 0 {
		return 0
	}
	if be.RetryAfter > maxReplyRetryWait {
		return maxReplyRetryWait
	}
	return be.RetryAfter
}
