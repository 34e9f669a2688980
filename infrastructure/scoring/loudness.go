package scoring

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SampleFormat identifies the binary representation of waveform samples.
type SampleFormat string

// Supported waveform sample representations. Anything else fails with
// ErrUnsupportedFormat; the scorer never substitutes a guessed reference.
const (
	// FormatPCM16 is signed 16-bit little-endian PCM. The reference
	// magnitude is the maximum representable integer magnitude.
	FormatPCM16 SampleFormat = "pcm16"

	// FormatFloat32 is IEEE 754 float32 little-endian in [-1, 1]. The
	// reference magnitude is 1.0.
	FormatFloat32 SampleFormat = "float32"
)

// silenceEpsilon is the peak magnitude below which input is treated as
// silence rather than fed to the logarithm.
const silenceEpsilon = 1e-10

// silenceFloorDBFS is the dBFS value assigned to silent input.
const silenceFloorDBFS = -100.0

// WaveformSample is a raw PCM sample block at a known sample rate.
// Multi-channel data is interleaved and converted to mono by averaging
// channels before analysis.
type WaveformSample struct {
	Data       []byte
	Format     SampleFormat
	SampleRate int
	Channels   int
}

// ScoreFromDB maps an absolute-scale dB value onto the initial score via
// the canonical step table. It is a pure, monotonically non-decreasing
// function of dB.
func ScoreFromDB(db float64) float64 {
	switch {
	case db <= 70:
		return 0
	case db <= 80:
		return 10
	case db <= 90:
		return 15
	case db <= 100:
		return 20
	case db <= 110:
		return 25
	case db <= 120:
		return 30
	default:
		return 50
	}
}

// CorrectionFactor returns the frequency-composition multiplier for a
// high-frequency energy percentage p in [0, 100]. The ramp is linear up
// to 80% and flat-capped at 1.4 beyond; the two pieces meet exactly at
// p=80 (1 + 80*0.005 = 1.4).
func CorrectionFactor(p float64) float64 {
	if p < 80 {
		return 1 + p*0.005
	}
	return 1.4
}

// decodeMono converts the interleaved sample block into a mono float64
// series by averaging channels, and returns the reference magnitude for
// the declared format.
func decodeMono(w WaveformSample) (samples []float64, reference float64, err error) {
	channels := w.Channels
	if channels <= 0 {
		channels = 1
	}

	var frameBytes int
	switch w.Format {
	case FormatPCM16:
		frameBytes = 2
		reference = float64(math.MaxInt16)
	case FormatFloat32:
		frameBytes = 4
		reference = 1.0
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, w.Format)
	}

	stride := frameBytes * channels
	frames := len(w.Data) / stride
	if frames == 0 {
		return nil, 0, ErrEmptyWaveform
	}

	samples = make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			off := i*stride + c*frameBytes
			switch w.Format {
			case FormatPCM16:
				sum += float64(int16(binary.LittleEndian.Uint16(w.Data[off:])))
			case FormatFloat32:
				sum += float64(math.Float32frombits(binary.LittleEndian.Uint32(w.Data[off:])))
			}
		}
		samples[i] = sum / float64(channels)
	}
	return samples, reference, nil
}

// peakDB computes the peak-normalized level of the mono series on the
// absolute display scale: dBFS relative to the reference magnitude plus
// the fixed offset. Silence maps to the floor, never an error.
func peakDB(samples []float64, reference, offset float64) float64 {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}

	dbfs := silenceFloorDBFS
	if peak > silenceEpsilon {
		dbfs = 20 * math.Log10(peak/reference)
	}
	return dbfs + offset
}
