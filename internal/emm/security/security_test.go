package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectAlgorithms_PicksHighestPriorityMutual(t *testing.T) {
	caps := UECapabilities{
		SupportedEEA: []Algorithm{EEA0, EEA1, EEA2},
		SupportedEIA: []Algorithm{EIA1, EIA2},
	}
	policy := Policy{
		EEAPriority: []Algorithm{EEA2, EEA1, EEA0},
		EIAPriority: []Algorithm{EIA2, EIA1},
	}

	eea, eia, err := SelectAlgorithms(caps, policy)
	require.NoError(t, err)
	assert.Equal(t, EEA2, eea)
	assert.Equal(t, EIA2, eia)
}

func TestSelectAlgorithms_FallsBackToNullCiphering(t *testing.T) {
	caps := UECapabilities{
		SupportedEEA: []Algorithm{EEA0},
		SupportedEIA: []Algorithm{EIA1},
	}
	policy := Policy{
		EEAPriority:        []Algorithm{EEA2, EEA1},
		EIAPriority:        []Algorithm{EIA2, EIA1},
		AllowNullCiphering: true,
	}

	eea, eia, err := SelectAlgorithms(caps, policy)
	require.NoError(t, err)
	assert.Equal(t, EEA0, eea)
	assert.Equal(t, EIA1, eia)
}

func TestSelectAlgorithms_NoIntegrityAlgorithmIsFatal(t *testing.T) {
	caps := UECapabilities{
		SupportedEEA: []Algorithm{EEA1},
		SupportedEIA: []Algorithm{}, // UE advertises nothing usable
	}
	policy := Policy{
		EEAPriority: []Algorithm{EEA1},
		EIAPriority: []Algorithm{EIA2, EIA1},
	}

	_, _, err := SelectAlgorithms(caps, policy)
	assert.Error(t, err)
}

func TestSelectAlgorithms_NoEncryptionWithoutNullFallbackIsFatal(t *testing.T) {
	caps := UECapabilities{
		SupportedEEA: []Algorithm{},
		SupportedEIA: []Algorithm{EIA1},
	}
	policy := Policy{
		EEAPriority:        []Algorithm{EEA1, EEA2},
		EIAPriority:        []Algorithm{EIA1},
		AllowNullCiphering: false,
	}

	_, _, err := SelectAlgorithms(caps, policy)
	assert.Error(t, err)
}

func TestNASCount_NextWrapsOverflow(t *testing.T) {
	c := NASCount{Overflow: 3, SeqNum: 255}
	next := c.Next()
	assert.EqualValues(t, 4, next.Overflow)
	assert.EqualValues(t, 0, next.SeqNum)
}

func TestNASCount_Uint32Packing(t *testing.T) {
	c := NASCount{Overflow: 1, SeqNum: 2}
	assert.EqualValues(t, 1<<8|2, c.Uint32())
}
