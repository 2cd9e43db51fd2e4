package context

// PLMNID is a Public Land Mobile Network identity (MCC/MNC).
type PLMNID struct {
	MCC string
	MNC string
}

// TAI is a Tracking Area Identity.
type TAI struct {
	PLMNID PLMNID
	TAC    string
}

// ECGI is an E-UTRAN Cell Global Identifier.
type ECGI struct {
	PLMNID PLMNID
	CellID string
}

// GUTI is a Globally Unique Temporary Identity.
type GUTI struct {
	PLMNID      PLMNID
	AMFRegionID uint8
	AMFSetID    uint16
	AMFPointer  uint8
	MTMSI       uint32
}

func (g GUTI) Equal(other GUTI) bool {
	return g == other
}
