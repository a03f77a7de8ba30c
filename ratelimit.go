package partnerapi

import (
	"net/http"
	"strconv"
	"time"
)

// RateLimit is the fixed quota the Partner API reports on every response.
type RateLimit struct {
	// Limit is the total number of requests allowed in the current window.
	Limit int
	// Remaining is the number of requests left in the current window.
	Remaining int
	// Reset is when the window rolls over and the quota refills.
	Reset time.Time
}

// Exhausted reports whether the quota is used up and the window has not
// reset yet.
func (rl RateLimit) Exhausted() bool {
	return rl.Limit > 0 && rl.Remaining <= 0 && time.Now().Before(rl.Reset)
}

func parseRateLimit(h http.Header) (RateLimit, bool) {
	limitStr := h.Get("X-RateLimit-Limit")
	if limitStr == "" {
		return RateLimit{}, false
	}

	var rl RateLimit
	var err error
	rl.Limit, err = strconv.Atoi(limitStr)
	if err != nil {
		return RateLimit{}, false
	}
	if v := h.Get("X-RateLimit-Remaining"); v != "" {
		rl.Remaining, _ = strconv.Atoi(v)
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			rl.Reset = time.Unix(epoch, 0)
		}
	}
	return rl, true
}
