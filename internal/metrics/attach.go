package metrics

import (
	"github.com/oss-emm/epc-mme/internal/emm/cause"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Attach-procedure metrics: Accepts sent, Rejects sent by cause, aborts,
// completions, and Attach Accept retransmissions.
var (
	attachAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mme_attach_accepted_total",
			Help: "Total number of Attach Accept messages sent",
		},
	)

	attachRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mme_attach_rejected_total",
			Help: "Total number of Attach Reject messages sent, by EMM cause",
		},
		[]string{"cause"},
	)

	attachAborted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mme_attach_aborted_total",
			Help: "Total number of Attach procedures aborted by collision resolution or timer exhaustion",
		},
	)

	attachCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mme_attach_completed_total",
			Help: "Total number of Attach Complete messages received",
		},
	)

	attachRetransmission = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mme_attach_retransmissions_total",
			Help: "Total number of Attach Accept retransmissions, on T3450 expiry or on an identical retransmitted Attach Request",
		},
	)
)

// AttachMetrics implements attach.Metrics against the package-level
// Prometheus collectors above. It is stateless; the zero value is ready to
// use.
type AttachMetrics struct{}

func (AttachMetrics) AttachAccepted()  { attachAccepted.Inc() }
func (AttachMetrics) AttachAborted()   { attachAborted.Inc() }
func (AttachMetrics) AttachCompleted() { attachCompleted.Inc() }
func (AttachMetrics) AttachRetransmission() { attachRetransmission.Inc() }

func (AttachMetrics) AttachRejected(c cause.EMMCause) {
	attachRejected.WithLabelValues(c.String()).Inc()
}
