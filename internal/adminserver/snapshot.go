package adminserver

import (
	"time"

	emmcontext "github.com/oss-emm/epc-mme/internal/emm/context"
)

// emmContextSnapshot is a lock-consistent, read-only copy of the fields of
// an EMMContext the admin surface exposes. Context fields are protected by
// the context's own per-UE lock ("per-context lock"), so every
// read here takes that lock rather than reading through the live pointer.
type emmContextSnapshot struct {
	UEID             string
	IMSI             string
	IMEI             string
	State            string
	GUTIValid        bool
	IsAttached       bool
	NumAttachRequest int
	CreatedAt        time.Time
	LastActivityAt   time.Time
}

func snapshot(c *emmcontext.EMMContext) *emmContextSnapshot {
	c.Lock()
	defer c.Unlock()

	return &emmContextSnapshot{
		UEID:             c.UEID,
		IMSI:             c.IMSI,
		IMEI:             c.IMEI,
		State:            c.State.String(),
		GUTIValid:        c.GUTIValid,
		IsAttached:       c.IsAttached,
		NumAttachRequest: c.NumAttachRequest,
		CreatedAt:        c.CreatedAt,
		LastActivityAt:   c.LastActivityAt,
	}
}
