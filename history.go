package netman

import "container/ring"

const defaultHistorySize = 32

// eventHistory keeps the most recent normalized events in a fixed size ring.
// Stored events are deep copies so the payload lifetime rule for subscriber
// callbacks does not apply to them.
type eventHistory struct {
	r *ring.Ring
}

func newEventHistory(n int) *eventHistory {
	if n <= 0 {
		n = defaultHistorySize
	}
	return &eventHistory{r: ring.New(n)}
}

func (h *eventHistory) add(e Event) {
	h.r.Value = e.Copy()
	h.r = h.r.Next()
}

// list returns up to n events, oldest first.
func (h *eventHistory) list(n int) []Event {
	if n <= 0 || n > h.r.Len() {
		n = h.r.Len()
	}

	out := make([]Event, 0, n)
	h.r.Do(func(v interface{}) {
		if v == nil {
			return
		}
		out = append(out, v.(Event).Copy())
	})

	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
