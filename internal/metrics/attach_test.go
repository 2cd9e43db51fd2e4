package metrics

import (
	"testing"

	"github.com/oss-emm/epc-mme/internal/emm/attach"
	"github.com/oss-emm/epc-mme/internal/emm/cause"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

var _ attach.Metrics = AttachMetrics{}

func TestAttachMetrics_AttachAccepted(t *testing.T) {
	before := testutil.ToFloat64(attachAccepted)
	AttachMetrics{}.AttachAccepted()
	assert.Equal(t, before+1, testutil.ToFloat64(attachAccepted))
}

func TestAttachMetrics_AttachRejectedByCause(t *testing.T) {
	before := testutil.ToFloat64(attachRejected.WithLabelValues(cause.IllegalUE.String()))
	AttachMetrics{}.AttachRejected(cause.IllegalUE)
	assert.Equal(t, before+1, testutil.ToFloat64(attachRejected.WithLabelValues(cause.IllegalUE.String())))
}

func TestAttachMetrics_AttachAbortedCompletedRetransmission(t *testing.T) {
	beforeAborted := testutil.ToFloat64(attachAborted)
	beforeCompleted := testutil.ToFloat64(attachCompleted)
	beforeRetransmission := testutil.ToFloat64(attachRetransmission)

	m := AttachMetrics{}
	m.AttachAborted()
	m.AttachCompleted()
	m.AttachRetransmission()

	assert.Equal(t, beforeAborted+1, testutil.ToFloat64(attachAborted))
	assert.Equal(t, beforeCompleted+1, testutil.ToFloat64(attachCompleted))
	assert.Equal(t, beforeRetransmission+1, testutil.ToFloat64(attachRetransmission))
}
