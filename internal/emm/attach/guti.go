package attach

import (
	"encoding/binary"

	"github.com/google/uuid"
	emmcontext "github.com/oss-emm/epc-mme/internal/emm/context"
)

// GUTIAllocator mints a fresh GUTI for a context that does not have a
// valid one, as required at Attach Accept emission: if no valid GUTI is
// in context, allocate a new one via the MME's own allocation policy.
type GUTIAllocator interface {
	Allocate() (*emmcontext.GUTI, error)
}

// RandomGUTIAllocator allocates M-TMSIs from a random source, the same way
// the reference core mints opaque instance identifiers (uuid.New()) rather
// than maintaining a monotonic counter that would need its own persisted
// state.
type RandomGUTIAllocator struct {
	PLMN        emmcontext.PLMNID
	AMFRegionID uint8
	AMFSetID    uint16
	AMFPointer  uint8
}

func (a RandomGUTIAllocator) Allocate() (*emmcontext.GUTI, error) {
	id := uuid.New()
	mTMSI := binary.BigEndian.Uint32(id[:4])

	return &emmcontext.GUTI{
		PLMNID:      a.PLMN,
		AMFRegionID: a.AMFRegionID,
		AMFSetID:    a.AMFSetID,
		AMFPointer:  a.AMFPointer,
		MTMSI:       mTMSI,
	}, nil
}
