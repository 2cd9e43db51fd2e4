package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProc struct {
	aborted   bool
	notified  bool
}

func (f *fakeProc) Abort(notify bool) {
	f.aborted = true
	f.notified = notify
}

func TestRegistry_SpecificBusy(t *testing.T) {
	r := New()
	p1 := &fakeProc{}
	p2 := &fakeProc{}

	require.NoError(t, r.SetSpecific(KindAttach, p1))
	err := r.SetSpecific(KindAttach, p2)
	require.Error(t, err)

	var busy *ErrBusy
	assert.ErrorAs(t, err, &busy)
	assert.Equal(t, KindAttach, busy.Kind)
	assert.True(t, r.IsSpecificRunning())
	assert.Same(t, p1, r.Specific())
}

func TestRegistry_ClearSpecificAllowsNew(t *testing.T) {
	r := New()
	p1 := &fakeProc{}
	require.NoError(t, r.SetSpecific(KindAttach, p1))
	r.ClearSpecific()
	assert.False(t, r.IsSpecificRunning())

	p2 := &fakeProc{}
	require.NoError(t, r.SetSpecific(KindAttach, p2))
	assert.Same(t, p2, r.Specific())
}

func TestRegistry_AbortSpecificNotifiesAndClears(t *testing.T) {
	r := New()
	p := &fakeProc{}
	require.NoError(t, r.SetSpecific(KindAttach, p))

	r.AbortSpecific(true)

	assert.True(t, p.aborted)
	assert.True(t, p.notified)
	assert.False(t, r.IsSpecificRunning())
}

func TestRegistry_CommonProcedures(t *testing.T) {
	r := New()
	assert.False(t, r.IsCommonRunning(KindIdentification))

	p := &fakeProc{}
	r.SetCommon(KindIdentification, p)
	assert.True(t, r.IsCommonRunning(KindIdentification))
	assert.Same(t, p, r.Common(KindIdentification))
	assert.False(t, r.IsCommonRunning(KindAuthentication))

	r.AbortCommon(KindIdentification, false)
	assert.True(t, p.aborted)
	assert.False(t, p.notified)
	assert.False(t, r.IsCommonRunning(KindIdentification))
}

func TestRegistry_AbortCommonNoOpWhenNotRunning(t *testing.T) {
	r := New()
	assert.NotPanics(t, func() {
		r.AbortCommon(KindSecurityModeControl, true)
	})
}
