package middleware

import (
	"golang.org/x/time/rate"
)

// StreamRateLimiter bounds per-group streaming ingestion using token
// bucket limiters, one per session/group/stream key. Samples over the
// sustained rate (plus burst) are dropped at the boundary, keeping the
// dispatcher responsive under sustained streaming load.
//
// The limiter map is only touched from the dispatcher goroutine, so no
// synchronization is needed.
type StreamRateLimiter struct {
	audioLimit rate.Limit
	videoLimit rate.Limit
	burst      int

	limiters map[string]*rate.Limiter
}

// NewStreamRateLimiter creates a limiter with sustained per-group rates
// for the audio and video streams. Non-positive rates disable limiting
// for that stream.
func NewStreamRateLimiter(audioPerSecond, videoPerSecond float64, burst int) *StreamRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &StreamRateLimiter{
		audioLimit: rate.Limit(audioPerSecond),
		videoLimit: rate.Limit(videoPerSecond),
		burst:      burst,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// Allow reports whether one more sample from the given stream may be
// processed now. Over-limit samples are dropped, never queued.
func (l *StreamRateLimiter) Allow(sessionID, groupID, stream string) bool {
	var limit rate.Limit
	switch stream {
	case "audio":
		limit = l.audioLimit
	case "video":
		limit = l.videoLimit
	}
	if limit <= 0 {
		return true
	}

	key := sessionID + "/" + groupID + "/" + stream
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(limit, l.burst)
		l.limiters[key] = limiter
	}
	return limiter.Allow()
}
