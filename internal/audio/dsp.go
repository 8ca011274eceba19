package audio

import "math"

// PeakNormalize scales samples so the peak amplitude reaches 1.0.
// Silence is returned unchanged.
func PeakNormalize(samples []float32) []float32 {
	var peak float32
	for _, s := range samples {
		if a := float32(math.Abs(float64(s))); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return samples
	}

	out := make([]float32, len(samples))
	scale := 1.0 / peak
	for i, s := range samples {
		out[i] = s * scale
	}
	return out
}

// DCBlock removes DC offset from samples using a single-pole high-pass
// filter.
func DCBlock(samples []float32, sampleRate int) []float32 {
	if len(samples) == 0 || sampleRate < 1 {
		return samples
	}

	// Pole placed for a ~20 Hz cutoff.
	r := float32(1.0 - (2.0 * math.Pi * 20.0 / float64(sampleRate)))
	out := make([]float32, len(samples))

	var prevIn, prevOut float32
	for i, s := range samples {
		out[i] = s - prevIn + r*prevOut
		prevIn = s
		prevOut = out[i]
	}
	return out
}

// FadeIn applies a linear fade-in ramp over the given duration in
// milliseconds.
func FadeIn(samples []float32, sampleRate int, ms float64) []float32 {
	n := rampSamples(len(samples), sampleRate, ms)
	if n == 0 {
		return samples
	}

	out := append([]float32(nil), samples...)
	for i := 0; i < n; i++ {
		out[i] *= float32(i) / float32(n)
	}
	return out
}

// FadeOut applies a linear fade-out ramp over the given duration in
// milliseconds.
func FadeOut(samples []float32, sampleRate int, ms float64) []float32 {
	n := rampSamples(len(samples), sampleRate, ms)
	if n == 0 {
		return samples
	}

	out := append([]float32(nil), samples...)
	last := len(out) - 1
	for i := 0; i < n; i++ {
		out[last-i] *= float32(i) / float32(n)
	}
	return out
}

func rampSamples(total, sampleRate int, ms float64) int {
	if total == 0 || sampleRate < 1 || ms <= 0 {
		return 0
	}
	n := int(float64(sampleRate) * ms / 1000.0)
	if n > total {
		n = total
	}
	return n
}
