package backend

import (
	"bytes"
	"math"
	"net/http"
	"strings"
)

const wavHeaderSize = 44

// SilenceDetector flags recordings whose RMS level is below Threshold. Only
// PCM16 WAV payloads are analysed; compressed formats are never reported silent.
type SilenceDetector struct {
	Threshold float64
}

func NewSilenceDetector(threshold float64) *SilenceDetector {
	return &SilenceDetector{Threshold: threshold}
}

func (d *SilenceDetector) IsSilent(audio []byte) bool {
	if !isWAV(audio) {
		return false
	}

	pcm := audio[wavHeaderSize:]
	var sum float64
	samples := 0
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		sum += float64(sample) * float64(sample)
		samples++
	}
	if samples == 0 {
		return true
	}

	rms := math.Sqrt(sum / float64(samples))
	return rms < d.Threshold
}

func isWAV(audio []byte) bool {
	return len(audio) >= wavHeaderSize &&
		bytes.Equal(audio[0:4], []byte("RIFF")) &&
		bytes.Equal(audio[8:12], []byte("WAVE"))
}

// AudioMIME sniffs the container of a captured recording.
func AudioMIME(audio []byte) string {
	ct := http.DetectContentType(audio)
	switch {
	case strings.HasPrefix(ct, "video/webm"):
		return "audio/webm"
	case ct == "application/ogg":
		return "audio/ogg"
	case strings.HasPrefix(ct, "audio/"):
		return ct
	default:
		return "audio/webm"
	}
}
