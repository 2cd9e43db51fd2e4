package adminserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type ueContextView struct {
	UEID             string    `json:"ueId"`
	IMSI             string    `json:"imsi,omitempty"`
	IMEI             string    `json:"imei,omitempty"`
	State            string    `json:"state"`
	GUTIValid        bool      `json:"gutiValid"`
	IsAttached       bool      `json:"isAttached"`
	NumAttachRequest int       `json:"numAttachRequest"`
	CreatedAt        time.Time `json:"createdAt"`
	LastActivityAt   time.Time `json:"lastActivityAt"`
}

func toView(c *emmContextSnapshot) ueContextView {
	return ueContextView{
		UEID:             c.UEID,
		IMSI:             c.IMSI,
		IMEI:             c.IMEI,
		State:            c.State,
		GUTIValid:        c.GUTIValid,
		IsAttached:       c.IsAttached,
		NumAttachRequest: c.NumAttachRequest,
		CreatedAt:        c.CreatedAt,
		LastActivityAt:   c.LastActivityAt,
	}
}

// handleListUEContexts handles GET /ue-contexts.
func (s *Server) handleListUEContexts(w http.ResponseWriter, r *http.Request) {
	contexts := s.store.All()

	views := make([]ueContextView, 0, len(contexts))
	for _, c := range contexts {
		views = append(views, toView(snapshot(c)))
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"total":      len(views),
		"ueContexts": views,
	})
}

// handleGetUEContext handles GET /ue-contexts/{ueId}.
func (s *Server) handleGetUEContext(w http.ResponseWriter, r *http.Request) {
	ueID := chi.URLParam(r, "ueId")

	c, ok := s.store.Get(ueID)
	if !ok {
		s.respondError(w, http.StatusNotFound, "UE context not found", nil)
		return
	}

	s.respondJSON(w, http.StatusOK, toView(snapshot(c)))
}

// handleGetStats handles GET /stats.
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	contexts := s.store.All()

	var attached, inProgress int
	for _, c := range contexts {
		c.Lock()
		if c.IsAttached {
			attached++
		} else {
			inProgress++
		}
		c.Unlock()
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"totalContexts":   len(contexts),
		"attached":        attached,
		"attachInProgress": inProgress,
		"uptimeSeconds":   int(time.Since(s.startedAt).Seconds()),
	})
}
