package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_InsertGetRemove(t *testing.T) {
	s := NewStore()
	c := New("ue-1")
	c.IMSI = "001010000000001"
	c.GUTI = &GUTI{MTMSI: 42}

	require.NoError(t, s.Insert(c))

	got, ok := s.Get("ue-1")
	require.True(t, ok)
	assert.Same(t, c, got)

	byIMSI, ok := s.FindByIMSI(c.IMSI)
	require.True(t, ok)
	assert.Same(t, c, byIMSI)

	byGUTI, ok := s.FindByGUTI(*c.GUTI)
	require.True(t, ok)
	assert.Same(t, c, byGUTI)

	// Remove releases c, clearing its IMSI and GUTI, so look up by the
	// values it was indexed under.
	imsi, guti := c.IMSI, *c.GUTI
	s.Remove(c)
	_, ok = s.Get("ue-1")
	assert.False(t, ok)
	_, ok = s.FindByIMSI(imsi)
	assert.False(t, ok)
	_, ok = s.FindByGUTI(guti)
	assert.False(t, ok)
}

func TestStore_InsertDuplicateFails(t *testing.T) {
	s := NewStore()
	c1 := New("ue-1")
	c2 := New("ue-1")

	require.NoError(t, s.Insert(c1))
	err := s.Insert(c2)
	require.Error(t, err)

	var dup *ErrDuplicate
	assert.ErrorAs(t, err, &dup)
}

func TestStore_UpdateKeysRehashesAtomically(t *testing.T) {
	s := NewStore()
	c := New("ue-1")
	require.NoError(t, s.Insert(c))

	newGUTI := &GUTI{MTMSI: 99}
	s.UpdateKeys(c, "enb-1", "001010000000002", newGUTI)

	_, ok := s.FindByENBKey("enb-1")
	assert.True(t, ok)
	_, ok = s.FindByIMSI("001010000000002")
	assert.True(t, ok)
	byGUTI, ok := s.FindByGUTI(*newGUTI)
	require.True(t, ok)
	assert.Same(t, c, byGUTI)
}

func TestStore_ReindexMovesOldGUTIToNew(t *testing.T) {
	s := NewStore()
	c := New("ue-1")
	oldGUTI := GUTI{MTMSI: 1}
	c.GUTI = &oldGUTI
	require.NoError(t, s.Insert(c))

	newGUTI := GUTI{MTMSI: 2}
	c.GUTI = &newGUTI
	s.Reindex(c, &oldGUTI, "", "")

	_, ok := s.FindByGUTI(oldGUTI)
	assert.False(t, ok)
	got, ok := s.FindByGUTI(newGUTI)
	require.True(t, ok)
	assert.Same(t, c, got)
}

func TestStore_AllAndLen(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Insert(New("ue-1")))
	require.NoError(t, s.Insert(New("ue-2")))

	assert.Equal(t, 2, s.Len())
	assert.Len(t, s.All(), 2)
}
