package scoring

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// highFreqPercentageWaveform computes the share (0-100) of spectral
// energy located at or above targetHz in the mono sample series. Energy
// is measured as the sum of amplitude-spectrum magnitudes from a real
// FFT. Near-zero total energy yields 0.
func highFreqPercentageWaveform(samples []float64, sampleRate int, targetHz float64) float64 {
	fft := fourier.NewFFT(len(samples))
	coeffs := fft.Coefficients(nil, samples)

	var total, high float64
	for i, c := range coeffs {
		mag := cmplx.Abs(c)
		total += mag
		// Freq returns cycles per sample; scale to Hz.
		if fft.Freq(i)*float64(sampleRate) >= targetHz {
			high += mag
		}
	}

	if total <= silenceEpsilon {
		return 0
	}
	return high / total * 100
}

// highFreqPercentageBins computes the share (0-100) of bin magnitude in
// the top portion of the spectrum. Bins arrive ordered low-to-high
// frequency, so the bins from index startFraction*N upward approximate
// the energy at or above the target frequency.
func highFreqPercentageBins(normalized []float64, startFraction float64) float64 {
	start := int(float64(len(normalized)) * startFraction)

	var total, high float64
	for i, v := range normalized {
		total += v
		if i >= start {
			high += v
		}
	}

	if total <= silenceEpsilon {
		return 0
	}
	return high / total * 100
}

// binDB estimates the absolute-scale loudness from normalized bin
// magnitudes: the maximum bin in [0, 1] maps linearly onto 50-120 dB,
// with near-silence pinned to the 50 dB floor.
func binDB(normalized []float64) float64 {
	var max float64
	for _, v := range normalized {
		max = math.Max(max, v)
	}
	if max <= silenceEpsilon {
		return 50
	}
	return 50 + max*70
}
