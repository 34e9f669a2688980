// Package scoring provides the audio loudness and frequency-composition
// scoring pipeline for the engagement-scoring engine.
package scoring

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Common errors returned by the audio scoring pipeline.
// A scoring error is recoverable: the ingestion path records a zero score
// for the sample so series alignment is preserved, and logs the failure.
var (
	// ErrEmptyFrequencyData is returned when a frequency-bin sample
	// contains no bins.
	ErrEmptyFrequencyData = errors.New("empty frequency data")

	// ErrEmptyWaveform is returned when a waveform sample contains no
	// audio frames.
	ErrEmptyWaveform = errors.New("empty waveform")

	// ErrUnsupportedFormat is returned when a waveform sample declares a
	// representation the scorer cannot interpret. The scorer reports the
	// failure rather than guessing a reference magnitude.
	ErrUnsupportedFormat = errors.New("unsupported sample format")

	// ErrEmptyScorerName is returned when attempting to create a scorer
	// with an empty name.
	ErrEmptyScorerName = errors.New("scorer name cannot be empty")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()
