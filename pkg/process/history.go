package process

import (
	"time"

	"github.com/stagegate/stagegate/pkg/status"
)

// Transition is one recorded state movement for an element.
type Transition struct {
	Timestamp time.Time      `json:"timestamp"`
	FromState status.State   `json:"from_state,omitempty"`
	ToState   status.State   `json:"to_state"`
	Stage     string         `json:"stage,omitempty"`
	Reason    string         `json:"reason"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// History is the append-only state log the process keeps per element id.
// It is created on the element's first evaluation and retained for the
// process's lifetime; an explicit clear is the only deletion path.
type History struct {
	ElementID       string       `json:"element_id"`
	Created         time.Time    `json:"created"`
	Transitions     []Transition `json:"transitions"`
	EvaluationCount int          `json:"evaluation_count"`
	CurrentStage    string       `json:"current_stage,omitempty"`
}

// LastState returns the most recently recorded state, or "" for a fresh
// history.
func (h *History) LastState() status.State {
	if len(h.Transitions) == 0 {
		return ""
	}
	return h.Transitions[len(h.Transitions)-1].ToState
}

// LastStage returns the most recently recorded stage, skipping entries that
// carried none.
func (h *History) LastStage() string {
	for i := len(h.Transitions) - 1; i >= 0; i-- {
		if h.Transitions[i].Stage != "" {
			return h.Transitions[i].Stage
		}
	}
	return ""
}

// CountState reports how many recorded transitions landed in the given state.
func (h *History) CountState(s status.State) int {
	n := 0
	for _, t := range h.Transitions {
		if t.ToState == s {
			n++
		}
	}
	return n
}

func nowUTC() time.Time { return time.Now().UTC() }

// clone returns a deep copy so callers cannot mutate the stored log.
func (h *History) clone() *History {
	out := &History{
		ElementID:       h.ElementID,
		Created:         h.Created,
		EvaluationCount: h.EvaluationCount,
		CurrentStage:    h.CurrentStage,
		Transitions:     make([]Transition, len(h.Transitions)),
	}
	copy(out.Transitions, h.Transitions)
	return out
}
