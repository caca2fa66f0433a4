package tts

import "math"

const (
	minRate = 80
	maxRate = 450
)

func clampRate(wpm int) int {
	if wpm <= 0 {
		return 175
	}
	return min(max(wpm, minRate), maxRate)
}

// espeakVolume maps [0, 1] onto espeak's 0-100 scale (100 is unamplified).
func espeakVolume(v float64) int {
	v = min(max(v, 0), 1)
	return int(math.Round(v * 100))
}
