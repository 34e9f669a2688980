package domain

// RecentFrameCapacity is the number of video frames retained per group.
// When a new frame arrives at capacity, the oldest frame is dropped.
const RecentFrameCapacity = 10

// Frame is one retained video frame with its client timestamp.
type Frame struct {
	// Data is the decoded frame payload as received from the client.
	Data []byte

	// Timestamp is the client-supplied capture timestamp.
	Timestamp float64
}

// FrameRing is a fixed-capacity FIFO buffer of recent frames backed by a
// preallocated arena and a cursor, giving predictable memory bounds under
// sustained streaming load.
type FrameRing struct {
	frames []Frame
	head   int // index of the oldest frame
	count  int
}

// NewFrameRing creates an empty ring holding at most capacity frames.
// A non-positive capacity is treated as the standard retention capacity.
func NewFrameRing(capacity int) *FrameRing {
	if capacity <= 0 {
		capacity = RecentFrameCapacity
	}
	return &FrameRing{frames: make([]Frame, capacity)}
}

// Push inserts a frame, evicting the oldest entry when the ring is full.
func (r *FrameRing) Push(f Frame) {
	tail := (r.head + r.count) % len(r.frames)
	r.frames[tail] = f
	if r.count == len(r.frames) {
		r.head = (r.head + 1) % len(r.frames)
		return
	}
	r.count++
}

// Len returns the number of frames currently retained.
func (r *FrameRing) Len() int { return r.count }

// Cap returns the fixed retention capacity.
func (r *FrameRing) Cap() int { return len(r.frames) }

// Snapshot returns the retained frames oldest-first. The returned slice
// is freshly allocated and safe for the caller to hold.
func (r *FrameRing) Snapshot() []Frame {
	out := make([]Frame, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.frames[(r.head+i)%len(r.frames)]
	}
	return out
}
