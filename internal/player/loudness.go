package player

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Defaults used by the annotator: about -20 dBFS RMS with the peak kept just
// below full scale.
const (
	DefaultTargetRMS   = 0.1
	DefaultPeakCeiling = 0.98
)

// Loudness summarizes a block of PCM samples in [-1, 1].
type Loudness struct {
	RMS  float64
	Peak float64
}

// Measure returns the RMS level and absolute peak of samples.
func Measure(samples []float64) Loudness {
	if len(samples) == 0 {
		return Loudness{}
	}
	rms := math.Sqrt(floats.Dot(samples, samples) / float64(len(samples)))
	peak := math.Max(math.Abs(floats.Max(samples)), math.Abs(floats.Min(samples)))
	return Loudness{RMS: rms, Peak: peak}
}

// Gain returns the linear gain that brings l to targetRMS without pushing the
// peak above peakCeiling. Silence and unmeasured clips get unit gain.
func (l Loudness) Gain(targetRMS, peakCeiling float64) float64 {
	if l.RMS <= 0 || targetRMS <= 0 {
		return 1
	}
	gain := targetRMS / l.RMS
	if peakCeiling > 0 && l.Peak*gain > peakCeiling {
		gain = peakCeiling / l.Peak
	}
	return gain
}

// NormalizationGain measures samples and returns their Gain.
func NormalizationGain(samples []float64, targetRMS, peakCeiling float64) float64 {
	return Measure(samples).Gain(targetRMS, peakCeiling)
}

// Normalize scales samples in place by their normalization gain and returns it.
func Normalize(samples []float64, targetRMS, peakCeiling float64) float64 {
	gain := NormalizationGain(samples, targetRMS, peakCeiling)
	floats.Scale(gain, samples)
	return gain
}

// GainDB converts a linear gain to decibels.
func GainDB(gain float64) float64 {
	return 20 * math.Log10(gain)
}
