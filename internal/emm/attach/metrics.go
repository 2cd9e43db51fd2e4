package attach

import "github.com/oss-emm/epc-mme/internal/emm/cause"

// Metrics is the observability hook the Attach engine reports outcomes
// through; internal/metrics provides the Prometheus-backed implementation,
// kept out of this package to avoid a domain package depending on the
// metrics registry directly.
type Metrics interface {
	AttachAccepted()
	AttachRejected(c cause.EMMCause)
	AttachAborted()
	AttachCompleted()
	AttachRetransmission()
}

type noopMetrics struct{}

func (noopMetrics) AttachAccepted()          {}
func (noopMetrics) AttachRejected(cause.EMMCause) {}
func (noopMetrics) AttachAborted()           {}
func (noopMetrics) AttachCompleted()         {}
func (noopMetrics) AttachRetransmission()    {}
