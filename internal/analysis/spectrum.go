package analysis

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// PowerSpectrum returns the one-sided magnitude spectrum of a uniformly
// sampled signal, plus the frequency (in cycles per time unit) of each bin.
// dt is the sampling interval the signal was recorded at.
func PowerSpectrum(samples []float64, dt float64) (freqs, power []float64) {
	n := len(samples)
	if n < 2 || dt <= 0 {
		return nil, nil
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, samples)

	freqs = make([]float64, len(coeffs))
	power = make([]float64, len(coeffs))
	for i, c := range coeffs {
		freqs[i] = fft.Freq(i) / dt
		power[i] = cmplx.Abs(c) / float64(n)
	}
	return freqs, power
}

// DominantFrequency returns the frequency of the strongest non-DC spectral
// line, or 0 when the signal is too short to tell.
func DominantFrequency(samples []float64, dt float64) float64 {
	freqs, power := PowerSpectrum(samples, dt)
	if len(power) < 2 {
		return 0
	}
	best := 1
	for i := 2; i < len(power); i++ {
		if power[i] > power[best] {
			best = i
		}
	}
	return freqs[best]
}
