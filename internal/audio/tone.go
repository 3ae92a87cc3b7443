// Package audio plays the confirmation beep after a successful save.
package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"
)

const (
	SampleRate    = 22050
	ToneFrequency = 440.0
	ToneDuration  = 500 * time.Millisecond
	FadeDuration  = 10 * time.Millisecond
)

// RenderTone returns a mono 16-bit PCM WAV of a sine tone with linear fade in
// and fade out. Volume is clamped to [0, 1].
func RenderTone(freq float64, duration, fade time.Duration, volume float64) []byte {
	volume = math.Max(0, math.Min(1, volume))
	n := int(duration.Seconds() * SampleRate)
	fadeN := int(fade.Seconds() * SampleRate)

	samples := make([]int16, n)
	for i := range samples {
		gain := volume
		switch {
		case fadeN > 0 && i < fadeN:
			gain = volume * float64(i) / float64(fadeN)
		case fadeN > 0 && i >= n-fadeN:
			gain = volume * float64(n-1-i) / float64(fadeN)
		}
		v := math.Sin(2 * math.Pi * freq * float64(i) / SampleRate)
		samples[i] = int16(math.Round(v * gain * math.MaxInt16))
	}

	var buf bytes.Buffer
	dataLen := uint32(len(samples) * 2)
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&buf, binary.LittleEndian, uint32(SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(SampleRate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataLen)
	_ = binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}
