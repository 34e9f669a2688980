package application

import (
	"context"
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"

	"github.com/hypewave/cheermeter/infrastructure/scoring"
	"github.com/hypewave/cheermeter/internal/domain"
	"github.com/hypewave/cheermeter/internal/ports"
)

// HandleAudioStream scores one frequency-bin sample for a group and
// pushes the point-in-time analysis to the group scope. A scoring
// failure is recovered locally: a zero score is recorded so the score
// and timestamp series stay aligned, and the failure is logged rather
// than surfaced to the client.
func (r *Registry) HandleAudioStream(clientID string, ev AudioStreamEvent) error {
	state, ok := r.sessions[ev.SessionID]
	if !ok {
		// Streams for unknown sessions are dropped, not errored: the
		// client may simply have outlived its event.
		r.logger.Warn("audio stream for unknown session", zap.String("session_id", ev.SessionID))
		return nil
	}
	if r.limiter != nil && !r.limiter.Allow(ev.SessionID, ev.GroupID, "audio") {
		r.logger.Debug("audio sample dropped by rate limit",
			zap.String("session_id", ev.SessionID),
			zap.String("group_id", ev.GroupID),
		)
		r.countDropped("audio")
		return nil
	}

	acc := r.accumulatorFor(state, ev.SessionID, ev.GroupID)

	analysis, err := r.scoreAudioSample(state, ev)
	if err != nil {
		// Recovered: record a zero so series alignment holds.
		r.logger.Error("audio scoring failed, recording zero score", err,
			zap.String("session_id", ev.SessionID),
			zap.String("group_id", ev.GroupID),
		)
		r.countScoringFailure()
		acc.AddAudioSample(0, domain.AudioDetail{}, ev.Timestamp)
		return nil
	}

	acc.AddAudioSample(analysis.FinalScore, domain.AudioDetail{
		DBValue:            analysis.DBValue,
		InitialScore:       analysis.InitialScore,
		HighFreqPercentage: analysis.HighFreqPercentage,
		FinalScore:         analysis.FinalScore,
	}, ev.Timestamp)

	if r.metrics != nil {
		r.metrics.RecordHistogram("audio_final_score", analysis.FinalScore, nil)
	}

	return r.broadcaster.Publish(ports.GroupScope(ev.SessionID, ev.GroupID), EventAudioAnalysisUpdate, AudioAnalysisUpdateEvent{
		GroupID:            ev.GroupID,
		CurrentScore:       analysis.FinalScore,
		DBValue:            analysis.DBValue,
		HighFreqPercentage: analysis.HighFreqPercentage,
		IsNewHigh:          analysis.IsNewHigh,
		HighScore:          analysis.HighScore,
		Timestamp:          ev.Timestamp,
	})
}

// scoreAudioSample decodes the payload and runs the frequency-bin
// scoring path against the session's shared scorer.
func (r *Registry) scoreAudioSample(state *sessionState, ev AudioStreamEvent) (scoring.Analysis, error) {
	bins, err := base64.StdEncoding.DecodeString(ev.AudioData)
	if err != nil {
		return scoring.Analysis{}, fmt.Errorf("decoding audio payload: %w", err)
	}
	return state.scorer.ScoreFrequencyBins(bins)
}

// HandleVideoFrame retains the frame in the group's ring buffer and
// forwards it to the expression detector. Frames without detected faces
// contribute no data point so averages are not dragged down by
// frame-to-frame detector misses.
func (r *Registry) HandleVideoFrame(ctx context.Context, clientID string, ev VideoFrameEvent) error {
	state, ok := r.sessions[ev.SessionID]
	if !ok {
		r.logger.Warn("video frame for unknown session", zap.String("session_id", ev.SessionID))
		return nil
	}
	if r.limiter != nil && !r.limiter.Allow(ev.SessionID, ev.GroupID, "video") {
		r.logger.Debug("video frame dropped by rate limit",
			zap.String("session_id", ev.SessionID),
			zap.String("group_id", ev.GroupID),
		)
		r.countDropped("video")
		return nil
	}

	acc := r.accumulatorFor(state, ev.SessionID, ev.GroupID)

	frame, err := base64.StdEncoding.DecodeString(ev.FrameData)
	if err != nil {
		r.logger.Error("decoding video frame failed", err,
			zap.String("session_id", ev.SessionID),
			zap.String("group_id", ev.GroupID),
		)
		return nil
	}
	acc.RecentFrames.Push(domain.Frame{Data: frame, Timestamp: ev.Timestamp})

	if r.detector == nil {
		return nil
	}

	detection, err := r.detector.DetectFrame(ctx, frame)
	if err != nil {
		// A failing detector call yields no result for this frame.
		r.logger.Error("expression detection failed", err,
			zap.String("session_id", ev.SessionID),
			zap.String("group_id", ev.GroupID),
		)
		return nil
	}
	if detection == nil {
		return nil
	}

	acc.AddExpressionScore(detection.Score)

	return r.broadcaster.Publish(ports.GroupScope(ev.SessionID, ev.GroupID), EventFaceDetection, FaceDetectionEvent{
		GroupID:     ev.GroupID,
		Faces:       detection.Faces,
		FaceCount:   detection.FaceCount,
		Score:       detection.Score,
		ImageWidth:  detection.ImageWidth,
		ImageHeight: detection.ImageHeight,
	})
}

func (r *Registry) countScoringFailure() {
	if r.metrics != nil {
		r.metrics.RecordCounter("scoring_failures_total", 1, nil)
	}
}

func (r *Registry) countDropped(stream string) {
	if r.metrics != nil {
		r.metrics.RecordCounter("stream_samples_dropped_total", 1, map[string]string{"stream": stream})
	}
}
