package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/CookieClicker/internal/events"
)

// maxEventsPage caps a single /api/events response.
const maxEventsPage = 1000

// ReplayEvent is an event as served by /api/events.
type ReplayEvent struct {
	ID        string      `json:"id"`
	Offset    int64       `json:"offset"`
	Timestamp string      `json:"timestamp"`
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	Summary   string      `json:"summary"`
	Details   interface{} `json:"details,omitempty"`
}

// EventsResponse is one page of the journal.
type EventsResponse struct {
	Since       int64         `json:"since"`
	Next        int64         `json:"next"` // Pass as ?since= to continue
	FilteredBy  string        `json:"filtered_by,omitempty"`
	GeneratedAt string        `json:"generated_at"`
	Events      []ReplayEvent `json:"events"`
}

// handleEvents returns retained events from the in-memory log.
// GET /api/events?since=N&type=CLICK&limit=M
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	since, err := intParam(r, "since", 0)
	if err != nil || since < 0 {
		writeError(w, http.StatusBadRequest, "since must be a non-negative integer")
		return
	}
	limit, err := intParam(r, "limit", maxEventsPage)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > maxEventsPage {
		limit = maxEventsPage
	}
	eventType := r.URL.Query().Get("type")

	all := s.eventLog.Since(int64(since))
	resp := EventsResponse{
		Since:       int64(since),
		Next:        int64(since),
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      []ReplayEvent{},
	}
	if eventType != "" {
		resp.FilteredBy = "type " + eventType
	}

	for _, e := range all {
		if len(resp.Events) >= limit {
			break
		}
		resp.Next = e.Offset + 1
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		resp.Events = append(resp.Events, convertToReplayEvent(e))
	}
	if len(all) == 0 {
		resp.Next = s.eventLog.Len()
	}

	writeJSON(w, http.StatusOK, resp)
}

func convertToReplayEvent(e events.GameEvent) ReplayEvent {
	return ReplayEvent{
		ID:        e.ID,
		Offset:    e.Offset,
		Timestamp: e.Timestamp.Format(time.RFC3339Nano),
		Type:      string(e.Type),
		SessionID: e.SessionID,
		Summary:   summarizeEvent(e),
		Details:   e.Payload,
	}
}

func summarizeEvent(e events.GameEvent) string {
	switch p := e.Payload.(type) {
	case events.ClickPayload:
		return fmt.Sprintf("Click for %s (total %s)", humanize.Comma(p.Gained), humanize.Comma(p.ResourceCount))
	case events.UpgradePayload:
		if e.Type == events.EventTypeUpgradeRejected {
			return fmt.Sprintf("Upgrade refused: needs %s, has %s", humanize.Comma(p.Cost), humanize.Comma(p.ResourceCount))
		}
		return fmt.Sprintf("Click power now %s", humanize.Comma(p.ClickPower))
	case events.AutoPayload:
		switch e.Type {
		case events.EventTypeAutoAdvanced:
			return fmt.Sprintf("Auto production Lv%d unlocked", p.TierIndex+1)
		case events.EventTypeAutoMaxed:
			return "Auto production already at max level"
		}
		return fmt.Sprintf("Auto production refused: needs %s", humanize.Comma(p.Cost))
	case events.PayoutPayload:
		return fmt.Sprintf("Auto production paid %s", humanize.Comma(p.Amount))
	case events.SamplePayload:
		return fmt.Sprintf("%.1f clicks per second", p.CPS)
	case events.SessionPayload:
		if e.Type == events.EventTypeSessionEnded {
			return "Session ended"
		}
		return "Session started"
	}
	return string(e.Type)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}
