// Package ports defines the interfaces through which the scoring engine
// talks to its collaborators: the transport layer, the external
// expression detector, and the observability stack.
package ports

import "context"

// FaceRegion is one detected face with its bounding box and the score
// derived for it by the detector.
type FaceRegion struct {
	// X is the left edge of the bounding box in image pixels.
	X int `json:"x"`

	// Y is the top edge of the bounding box in image pixels.
	Y int `json:"y"`

	// Width is the bounding box width in pixels.
	Width int `json:"width"`

	// Height is the bounding box height in pixels.
	Height int `json:"height"`

	// DerivedScore is the per-face arousal score in [0, 100].
	DerivedScore float64 `json:"derived_score"`
}

// DetectionResult is the detector's output for one frame that contained
// at least one face.
type DetectionResult struct {
	// Score is the aggregate (mean across faces) arousal score in [0, 100].
	Score float64 `json:"score"`

	// Faces lists the detected face regions.
	Faces []FaceRegion `json:"faces"`

	// FaceCount is len(Faces), carried explicitly for the wire payload.
	FaceCount int `json:"face_count"`

	// ImageWidth is the analyzed frame width in pixels.
	ImageWidth int `json:"image_width"`

	// ImageHeight is the analyzed frame height in pixels.
	ImageHeight int `json:"image_height"`
}

// ExpressionDetector is the external facial-expression collaborator.
// Its internal model is out of scope; the engine depends only on this
// input/output contract.
type ExpressionDetector interface {
	// DetectFrame analyzes one decoded image frame and returns the
	// arousal score plus detected face regions. A frame in which no
	// faces were detected yields (nil, nil): absence of a data point,
	// not a zero score. A non-nil error means the detector itself
	// failed; callers treat that the same as no result for the frame.
	DetectFrame(ctx context.Context, frame []byte) (*DetectionResult, error)
}
