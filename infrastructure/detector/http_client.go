// Package detector adapts the external facial-expression service to the
// ports.ExpressionDetector contract.
package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"github.com/hypewave/cheermeter/internal/logging"
	"github.com/hypewave/cheermeter/internal/ports"
)

// response is the detector service's wire format.
type response struct {
	Score       float64            `json:"score"`
	Faces       []ports.FaceRegion `json:"faces"`
	FaceCount   int                `json:"face_count"`
	ImageWidth  int                `json:"image_width"`
	ImageHeight int                `json:"image_height"`
}

// HTTPDetector calls the expression-detector service over HTTP. The
// service accepts a raw encoded frame and returns the arousal score plus
// detected face regions, or a zero face count when it saw no faces.
type HTTPDetector struct {
	logger  logging.LoggerAdapter
	url     string
	timeout time.Duration
}

var _ ports.ExpressionDetector = (*HTTPDetector)(nil)

// NewHTTPDetector creates a detector client for the given endpoint.
func NewHTTPDetector(logger logging.LoggerAdapter, url string, timeout time.Duration) (*HTTPDetector, error) {
	if url == "" {
		return nil, fmt.Errorf("detector URL is required")
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPDetector{logger: logger, url: url, timeout: timeout}, nil
}

// DetectFrame implements ports.ExpressionDetector. A frame in which the
// service found no faces yields (nil, nil). The call runs synchronously
// under DoTimeout's deadline: the pooled request and response must not
// outlive this function, so no goroutine may still be touching them
// when the defers release them.
func (d *HTTPDetector) DetectFrame(ctx context.Context, frame []byte) (*ports.DetectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(d.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/octet-stream")
	req.SetBody(frame)

	if err := fasthttp.DoTimeout(req, resp, d.timeout); err != nil {
		return nil, fmt.Errorf("performing detector request: %w", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("unexpected detector status code: %d", resp.StatusCode())
	}

	var parsed response
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("decoding detector response: %w", err)
	}
	return toResult(parsed), nil
}

// toResult converts the wire response, mapping a zero face count onto
// "no result" so a missed frame is an absent data point, not a zero.
func toResult(parsed response) *ports.DetectionResult {
	if parsed.FaceCount == 0 && len(parsed.Faces) == 0 {
		return nil
	}
	if parsed.FaceCount == 0 {
		parsed.FaceCount = len(parsed.Faces)
	}
	return &ports.DetectionResult{
		Score:       parsed.Score,
		Faces:       parsed.Faces,
		FaceCount:   parsed.FaceCount,
		ImageWidth:  parsed.ImageWidth,
		ImageHeight: parsed.ImageHeight,
	}
}
