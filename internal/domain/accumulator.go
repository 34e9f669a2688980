package domain

// AudioDetail records the full breakdown of a single audio scoring pass.
// One detail row is appended per received audio sample, aligned with the
// score and timestamp series.
type AudioDetail struct {
	// DBValue is the absolute-scale loudness estimate for the sample.
	DBValue float64 `json:"db_value"`

	// InitialScore is the step-table score before frequency correction.
	InitialScore float64 `json:"initial_score"`

	// HighFreqPercentage is the share (0-100) of spectral energy at or
	// above the target frequency threshold.
	HighFreqPercentage float64 `json:"high_freq_percentage"`

	// FinalScore is the corrected score actually accumulated.
	FinalScore float64 `json:"final_score"`
}

// GroupAccumulator holds per-group rolling statistics for one session.
// Its three series stay index-aligned: AudioScores[i], AudioDetails[i],
// and Timestamps[i] describe the same sample. Best-moment lookup at
// finalization depends on len(AudioScores) == len(Timestamps).
type GroupAccumulator struct {
	// AudioScores is the ordered series of final audio scores.
	AudioScores []float64

	// AudioDetails is the ordered series of per-sample breakdowns.
	AudioDetails []AudioDetail

	// ExpressionScores is the ordered series of expression scores.
	// Frames with zero detected faces contribute no entry (absence,
	// not a zero), so this series is not aligned with the audio series.
	ExpressionScores []float64

	// Timestamps is the ordered series of client timestamps for the
	// audio samples.
	Timestamps []float64

	// RecentFrames retains the most recent video frames for look-back
	// display. It bounds memory under sustained streaming and is never
	// read by the aggregation engine.
	RecentFrames *FrameRing
}

// NewGroupAccumulator creates an empty accumulator with the standard
// recent-frame retention capacity.
func NewGroupAccumulator() *GroupAccumulator {
	return &GroupAccumulator{RecentFrames: NewFrameRing(RecentFrameCapacity)}
}

// AddAudioSample appends one scored audio sample, keeping the score,
// detail, and timestamp series aligned.
func (a *GroupAccumulator) AddAudioSample(score float64, detail AudioDetail, timestamp float64) {
	a.AudioScores = append(a.AudioScores, score)
	a.AudioDetails = append(a.AudioDetails, detail)
	a.Timestamps = append(a.Timestamps, timestamp)
}

// AddExpressionScore appends one expression score. Callers must only
// invoke this when the detector actually found faces.
func (a *GroupAccumulator) AddExpressionScore(score float64) {
	a.ExpressionScores = append(a.ExpressionScores, score)
}

// BestMomentTimestamp returns the timestamp of the highest audio score,
// or false when either series is empty or the series are misaligned.
func (a *GroupAccumulator) BestMomentTimestamp() (float64, bool) {
	if len(a.AudioScores) == 0 || len(a.AudioScores) != len(a.Timestamps) {
		return 0, false
	}
	best := 0
	for i, s := range a.AudioScores {
		if s > a.AudioScores[best] {
			best = i
		}
	}
	return a.Timestamps[best], true
}
