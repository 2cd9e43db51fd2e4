package procedure

import (
	"fmt"
	"time"

	"github.com/oss-emm/epc-mme/internal/emm/cause"
	"github.com/oss-emm/epc-mme/internal/emm/registry"
)

// Timer durations of the common procedures. They are fixed: the procedure
// constructors take no duration parameters, so the T3460/T3470 values
// loaded by internal/config do not reach these procedures.
const (
	t3470Duration = 6 * time.Second
	t3460Duration = 6 * time.Second
	smcDuration   = 6 * time.Second
)

const (
	identificationKind = registry.KindIdentification
	authenticationKind = registry.KindAuthentication
	smcKind            = registry.KindSecurityModeControl
)

// errTimerExhausted reports that a common procedure gave up after
// exhausting its retransmission budget (/§4.5: "then invoke
// failure_cb").
func errTimerExhausted(name string) error {
	return cause.Wrap(cause.Transient, cause.IllegalUE, fmt.Errorf("%s exhausted retransmissions", name))
}

// errAborted reports that a common procedure was aborted by its parent
// before it could complete, e.g. because the Attach procedure itself was
// aborted.
func errAborted() error {
	return cause.New(cause.Transient, cause.IllegalUE)
}
