package domain

import "time"

// AudioSummary aggregates the audio side of one group's performance.
type AudioSummary struct {
	// AvgScore is the mean of the final audio scores.
	AvgScore float64 `json:"avg_score"`

	// MaxScore is the highest final audio score observed.
	MaxScore float64 `json:"max_score"`

	// AvgDB is the mean absolute-scale loudness across samples.
	AvgDB float64 `json:"avg_db"`

	// AvgHighFreqPercentage is the mean high-frequency energy share.
	AvgHighFreqPercentage float64 `json:"avg_high_freq_percentage"`

	// SampleCount is the number of audio samples scored.
	SampleCount int `json:"sample_count"`
}

// ExpressionSummary aggregates the expression side of one group's
// performance.
type ExpressionSummary struct {
	// AvgScore is the mean expression score across frames with faces.
	AvgScore float64 `json:"avg_score"`

	// MaxScore is the highest expression score observed.
	MaxScore float64 `json:"max_score"`
}

// GroupResult is the immutable per-group outcome computed once at
// finalization. Instances are never mutated after creation.
type GroupResult struct {
	// GroupID identifies the group this result belongs to.
	GroupID string `json:"group_id"`

	// GroupName is the display name at finalization time.
	GroupName string `json:"group_name"`

	// AudioScore is min(100, mean of final audio scores), 0 without samples.
	AudioScore float64 `json:"audio_score"`

	// ExpressionScore is the mean expression score, 0 without samples.
	ExpressionScore float64 `json:"expression_score"`

	// TotalScore is the composite 0.6*audio + 0.4*expression.
	TotalScore float64 `json:"total_score"`

	// AudioDetails summarizes the audio series.
	AudioDetails AudioSummary `json:"audio_details"`

	// ExpressionDetails summarizes the expression series.
	ExpressionDetails ExpressionSummary `json:"expression_details"`

	// BestMomentTimestamp is the client timestamp of the loudest sample,
	// nil when the series were empty or misaligned.
	BestMomentTimestamp *float64 `json:"best_moment_timestamp"`
}

// SessionResult is the immutable ranked outcome of one session.
type SessionResult struct {
	// ID uniquely identifies this result snapshot.
	ID string `json:"id"`

	// SessionID identifies the finalized session.
	SessionID string `json:"session_id"`

	// Results lists all group results sorted by TotalScore descending.
	// Groups with equal totals keep their first-join order.
	Results []GroupResult `json:"results"`

	// WinnerGroupID is the top-ranked group, empty when no groups exist.
	WinnerGroupID string `json:"winner_group_id"`

	// CreatedAt records when finalization produced this snapshot.
	CreatedAt time.Time `json:"created_at"`
}
