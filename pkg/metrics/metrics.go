package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for ConversationsFinished.
const (
	OutcomeCompleted    = "completed"
	OutcomeCancelled    = "cancelled"
	OutcomeNoBranches   = "no_branches"
	OutcomeNoCategories = "no_categories"
	OutcomeSubmitFailed = "submit_failed"
	OutcomeAborted      = "aborted"
)

var (
	// Inbound messages by how the engine classified them: refresh, trigger, cancel, step, ignored.
	MessagesHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerbot_messages_handled_total",
			Help: "Total number of inbound text messages by classification",
		},
		[]string{"kind"},
	)

	ConversationsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerbot_conversations_started_total",
			Help: "Total number of conversations started by the trigger command",
		},
	)

	ConversationsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerbot_conversations_finished_total",
			Help: "Total number of conversations that ended, by outcome",
		},
		[]string{"outcome"},
	)

	InvalidInputs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerbot_invalid_inputs_total",
			Help: "Total number of rejected replies by conversation step",
		},
		[]string{"step"},
	)

	MasterDataRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerbot_master_data_refresh_total",
			Help: "Total number of master data refresh attempts by result",
		},
		[]string{"result"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerbot_submissions_total",
			Help: "Total number of ingestion submissions by result",
		},
		[]string{"result"},
	)

	SubmissionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledgerbot_submission_duration_seconds",
			Help:    "Duration of ingestion submissions in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	HandlerPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerbot_handler_panics_total",
			Help: "Total number of recovered panics while handling a message",
		},
	)
)

func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
