package context

import (
	"fmt"
	"sync"
)

// ErrDuplicate is returned by Store.Insert when ue_id is already present.
type ErrDuplicate struct{ UEID string }

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("emm context already exists for ue_id %q", e.UEID)
}

// Store is the concurrent EMM Context Store: a map from
// ue_id to EMMContext with secondary indexes by GUTI, IMSI and the eNB
// association key. All three (four) indexes are kept mutually consistent
// by holding a single RWMutex across every mutation — readers therefore
// see either the pre- or the post-update state, never a partial one.
type Store struct {
	mu       sync.RWMutex
	byUEID   map[string]*EMMContext
	byGUTI   map[GUTI]*EMMContext
	byIMSI   map[string]*EMMContext
	byENBKey map[string]*EMMContext
}

// NewStore creates an empty Context Store.
func NewStore() *Store {
	return &Store{
		byUEID:   make(map[string]*EMMContext),
		byGUTI:   make(map[GUTI]*EMMContext),
		byIMSI:   make(map[string]*EMMContext),
		byENBKey: make(map[string]*EMMContext),
	}
}

// Get looks up a context by ue_id.
func (s *Store) Get(ueID string) (*EMMContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byUEID[ueID]
	return c, ok
}

// FindByGUTI looks up a context by its current, valid-or-not GUTI.
func (s *Store) FindByGUTI(g GUTI) (*EMMContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byGUTI[g]
	return c, ok
}

// FindByIMSI looks up a context by IMSI.
func (s *Store) FindByIMSI(imsi string) (*EMMContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byIMSI[imsi]
	return c, ok
}

// FindByENBKey looks up a context by its current eNB association key, the
// last-resort lookup of the Attach ingress classification.
func (s *Store) FindByENBKey(enbKey string) (*EMMContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byENBKey[enbKey]
	return c, ok
}

// Insert adds a brand new context to the store, indexing it by ue_id and,
// if present, by its current eNB key. It fails with *ErrDuplicate if
// ue_id is already present.
func (s *Store) Insert(c *EMMContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUEID[c.UEID]; exists {
		return &ErrDuplicate{UEID: c.UEID}
	}
	s.byUEID[c.UEID] = c
	if c.ENBKey != "" {
		s.byENBKey[c.ENBKey] = c
	}
	if c.IMSI != "" {
		s.byIMSI[c.IMSI] = c
	}
	if c.GUTI != nil {
		s.byGUTI[*c.GUTI] = c
	}
	return nil
}

// UpdateKeys rehashes the secondary indexes for c after its IMSI, GUTI or
// eNB key have changed. The context must already be present in the store
// under its existing ue_id; ue_id itself
// is immutable once inserted. Passing a nil guti or empty imsi/enbKey
// leaves the corresponding index entry untouched (the value has not
// changed), pass the zero GUTI{} / "" explicitly is not how absence is
// represented — callers clear a field on the EMMContext itself and then
// call Reindex.
func (s *Store) UpdateKeys(c *EMMContext, enbKey, imsi string, guti *GUTI) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if enbKey != "" && enbKey != c.ENBKey {
		delete(s.byENBKey, c.ENBKey)
		c.ENBKey = enbKey
		s.byENBKey[enbKey] = c
	}
	if imsi != "" && imsi != c.IMSI {
		delete(s.byIMSI, c.IMSI)
		c.IMSI = imsi
		s.byIMSI[imsi] = c
	}
	if guti != nil {
		if c.GUTI != nil {
			delete(s.byGUTI, *c.GUTI)
		}
		c.GUTI = guti
		s.byGUTI[*guti] = c
	}
}

// Reindex re-derives the secondary index entries from c's current fields,
// for use after a caller has mutated c.IMSI/c.GUTI/c.ENBKey directly under
// c's own lock (e.g. clearing the old GUTI on Attach Complete).
func (s *Store) Reindex(c *EMMContext, oldGUTI *GUTI, oldIMSI, oldENBKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if oldGUTI != nil {
		delete(s.byGUTI, *oldGUTI)
	}
	if c.GUTI != nil {
		s.byGUTI[*c.GUTI] = c
	}

	if oldIMSI != "" && oldIMSI != c.IMSI {
		delete(s.byIMSI, oldIMSI)
	}
	if c.IMSI != "" {
		s.byIMSI[c.IMSI] = c
	}

	if oldENBKey != "" && oldENBKey != c.ENBKey {
		delete(s.byENBKey, oldENBKey)
	}
	if c.ENBKey != "" {
		s.byENBKey[c.ENBKey] = c
	}
}

// Remove deletes c from every index and releases its owned resources.
// Subsequent lookups return none.
func (s *Store) Remove(c *EMMContext) {
	s.mu.Lock()
	delete(s.byUEID, c.UEID)
	if c.GUTI != nil {
		delete(s.byGUTI, *c.GUTI)
	}
	if c.IMSI != "" {
		delete(s.byIMSI, c.IMSI)
	}
	if c.ENBKey != "" {
		delete(s.byENBKey, c.ENBKey)
	}
	s.mu.Unlock()

	c.Release()
}

// Len reports how many contexts are currently tracked, used by the admin
// surface's stats endpoint.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUEID)
}

// All returns a snapshot slice of every tracked context.
func (s *Store) All() []*EMMContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*EMMContext, 0, len(s.byUEID))
	for _, c := range s.byUEID {
		out = append(out, c)
	}
	return out
}
