package pitch

import "math"

// silenceEpsilon keeps log10 finite for an all-zero frame (about -240 dB)
const silenceEpsilon = 1e-12

// RMS returns the root mean square of samples
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, s := range samples {
		v := float64(s)
		sumSquares += v * v
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}

// SplDB is the frame level in dB relative to full scale: 20*log10(RMS).
func SplDB(samples []float32) float64 {
	return 20 * math.Log10(RMS(samples)+silenceEpsilon)
}

// ThresholdCutoffDB maps a 0..100 noise threshold control to a dB cutoff.
// 0 lets everything through, 100 blocks nearly everything.
func ThresholdCutoffDB(threshold int) float64 {
	threshold = min(max(threshold, 0), 100)
	return -100 + float64(threshold)
}

// BelowNoiseFloor reports whether a level should be treated as silence.
func BelowNoiseFloor(levelDB, cutoffDB float64) bool {
	return levelDB < cutoffDB
}
