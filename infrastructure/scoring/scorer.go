package scoring

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Analysis is the outcome of scoring one audio sample. The high-score
// fields are always populated, win or not.
type Analysis struct {
	// DBValue is the absolute-scale loudness estimate.
	DBValue float64

	// InitialScore is the step-table score before frequency correction.
	InitialScore float64

	// HighFreqPercentage is the high-frequency energy share (0-100).
	HighFreqPercentage float64

	// FinalScore is InitialScore multiplied by the correction factor.
	FinalScore float64

	// HighScore is the scorer's running maximum after this sample.
	HighScore float64

	// IsNewHigh is true iff FinalScore strictly exceeded the previous
	// running maximum.
	IsNewHigh bool
}

// Config controls the scoring pipeline's frequency analysis. Configuration
// is immutable after scorer creation and validated for consistency.
type Config struct {
	// TargetFrequencyHz is the threshold above which spectral energy
	// counts as high-frequency in the waveform path.
	TargetFrequencyHz float64 `yaml:"target_frequency_hz" validate:"required,gt=0"`

	// DBOffset converts peak dBFS onto the absolute display scale.
	DBOffset float64 `yaml:"db_offset" validate:"required,gt=0"`

	// BinHighFreqFraction is the bin index fraction at which the
	// high-frequency region starts in the frequency-bin path. With bins
	// ordered low-to-high this approximates the waveform path's
	// target-frequency condition.
	BinHighFreqFraction float64 `yaml:"bin_high_freq_fraction" validate:"gte=0,lt=1"`
}

// DefaultConfig returns the canonical constants used by the live
// streaming pipeline: a 1500 Hz high-frequency threshold, the 120 dB
// display offset, and the top two thirds of bins as the high region.
func DefaultConfig() Config {
	return Config{
		TargetFrequencyHz:   1500,
		DBOffset:            120,
		BinHighFreqFraction: 0.33,
	}
}

// AudioScorer scores audio samples and tracks the running high score.
// The high score is event-wide: every group in a session shares one
// scorer instance, so the running maximum spans the whole event.
//
// AudioScorer is not safe for concurrent use. The dispatcher owns one
// scorer per session and runs handlers to completion, so no external
// synchronization is needed.
type AudioScorer struct {
	// name identifies the scorer instance, typically the session ID.
	name string
	// config contains the validated analysis parameters.
	config Config

	highScore float64
}

// NewAudioScorer creates a scorer with a fresh zero high score.
// Returns ErrEmptyScorerName if name is empty, or a validation error when
// the configuration violates its constraints.
func NewAudioScorer(name string, config Config) (*AudioScorer, error) {
	if name == "" {
		return nil, ErrEmptyScorerName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &AudioScorer{name: name, config: config}, nil
}

// Name returns the identifier for this scorer instance.
func (s *AudioScorer) Name() string { return s.name }

// HighScore returns the running maximum final score.
func (s *AudioScorer) HighScore() float64 { return s.highScore }

// ResetHighScore clears the running maximum. Called when a session
// finalizes so a reused registry starts the next event clean.
func (s *AudioScorer) ResetHighScore() { s.highScore = 0 }

// ScoreWaveform scores a raw PCM sample block: peak level in dBFS mapped
// onto the absolute scale, the initial-score table, then the
// frequency-composition correction from a real FFT of the mono series.
func (s *AudioScorer) ScoreWaveform(w WaveformSample) (Analysis, error) {
	samples, reference, err := decodeMono(w)
	if err != nil {
		return Analysis{}, fmt.Errorf("decoding waveform: %w", err)
	}

	db := peakDB(samples, reference, s.config.DBOffset)
	pct := highFreqPercentageWaveform(samples, w.SampleRate, s.config.TargetFrequencyHz)
	return s.finish(db, pct), nil
}

// ScoreFrequencyBins scores a pre-summarized magnitude spectrum: one
// unsigned byte per FFT bin, ordered low-to-high frequency. This is the
// path exercised by the live streaming pipeline.
func (s *AudioScorer) ScoreFrequencyBins(bins []byte) (Analysis, error) {
	if len(bins) == 0 {
		return Analysis{}, ErrEmptyFrequencyData
	}

	normalized := make([]float64, len(bins))
	for i, b := range bins {
		normalized[i] = float64(b) / 255.0
	}

	db := binDB(normalized)
	pct := highFreqPercentageBins(normalized, s.config.BinHighFreqFraction)
	return s.finish(db, pct), nil
}

// finish applies the shared tail of both input paths: the initial-score
// table, the correction factor, and the high-score comparison.
func (s *AudioScorer) finish(db, pct float64) Analysis {
	initial := ScoreFromDB(db)
	final := initial * CorrectionFactor(pct)

	isNewHigh := final > s.highScore
	if isNewHigh {
		s.highScore = final
	}

	return Analysis{
		DBValue:            db,
		InitialScore:       initial,
		HighFreqPercentage: pct,
		FinalScore:         final,
		HighScore:          s.highScore,
		IsNewHigh:          isNewHigh,
	}
}

// UnmarshalParameters deserializes a YAML parameter block into the
// scorer's configuration with validation. The configuration remains
// unchanged on error.
func (s *AudioScorer) UnmarshalParameters(params yaml.Node) error {
	config := DefaultConfig()
	if err := params.Decode(&config); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	s.config = config
	return nil
}
