// Package audio converts the model service's 16-bit LPCM output into G.711
// µ-law for telephony gateways, which expect 8 kHz narrowband audio.
package audio

import (
	"fmt"

	"github.com/zaf/g711"
)

const (
	// OutputSampleRate is the model service's LPCM output rate.
	OutputSampleRate = 24000
	// ULawSampleRate is the telephony narrowband rate.
	ULawSampleRate = 8000
)

// PCMToULaw8k downsamples 16-bit little-endian LPCM to 8 kHz and encodes it
// as G.711 µ-law. sampleRate must be a whole multiple of 8000.
func PCMToULaw8k(pcm []byte, sampleRate int) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("audio: PCM byte length must be even (16-bit samples)")
	}
	if sampleRate <= 0 || sampleRate%ULawSampleRate != 0 {
		return nil, fmt.Errorf("audio: sample rate %d is not a multiple of %d", sampleRate, ULawSampleRate)
	}

	factor := sampleRate / ULawSampleRate
	if factor > 1 {
		pcm = decimate(pcm, factor)
	}
	return g711.EncodeUlaw(pcm), nil
}

// ULawToPCM decodes G.711 µ-law to 16-bit little-endian LPCM at 8 kHz.
func ULawToPCM(ulaw []byte) []byte {
	return g711.DecodeUlaw(ulaw)
}

// decimate keeps every factor-th 16-bit sample. Plain decimation is enough
// for speech headed to a narrowband channel.
func decimate(pcm []byte, factor int) []byte {
	out := make([]byte, 0, len(pcm)/factor+2)
	for i := 0; i+1 < len(pcm); i += 2 * factor {
		out = append(out, pcm[i], pcm[i+1])
	}
	return out
}
