package voice

import "encoding/binary"

// Discord's own audio contract: 48kHz, stereo, 16-bit signed little-endian,
// 20ms frames (960 samples per channel).
const (
	DiscordSampleRate = 48000
	DiscordChannels   = 2
	DiscordFrameSize  = 960 // samples per channel per 20ms frame
)

// ModelInputSampleRate is the mono rate the realtime model's audio-in
// accepts, reached by downmixing Discord's 48k stereo RX audio.
const ModelInputSampleRate = 16000

// ModelOutputSampleRate is the mono rate the realtime model emits audio at.
const ModelOutputSampleRate = 24000

// frameSamples/frameBytes are the framer's fixed chunk size: 100ms worth of
// 16-bit mono samples buffered before being handed to the model.
const (
	frameSamples = ModelInputSampleRate / 10 // 1600 samples = 100ms at 16kHz
	frameBytes   = frameSamples * 2
)

// Downmix converts 48kHz stereo PCM16LE to 16kHz mono PCM16LE by
// nearest-neighbor subsampling at a 3:1 ratio: every third stereo frame is
// kept, its left and right samples averaged into one mono sample.
func Downmix(stereo48k []byte) []byte {
	frames := len(stereo48k) / 4 // 2 channels * 2 bytes per 48k stereo frame
	out := make([]byte, 0, (frames/3)*2)

	for i := 0; i+3 <= frames; i += 3 {
		off := i * 4
		l := int16(binary.LittleEndian.Uint16(stereo48k[off:]))
		r := int16(binary.LittleEndian.Uint16(stereo48k[off+2:]))
		mono := int16((int32(l) + int32(r)) / 2)

		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(mono))
		out = append(out, buf...)
	}
	return out
}

// Upmix converts 24kHz mono PCM16LE to 48kHz stereo PCM16LE via hand-rolled
// linear interpolation (doubling the sample rate) and duplicates the
// interpolated mono sample into both channels. No third-party resampler is
// wired for this: the ratio is a fixed, known 2x, and DESIGN.md records why
// a dependency isn't justified for it.
func Upmix(mono24k []byte) []byte {
	samples := len(mono24k) / 2
	if samples == 0 {
		return nil
	}

	in := make([]int16, samples)
	for i := range in {
		in[i] = int16(binary.LittleEndian.Uint16(mono24k[i*2:]))
	}

	out := make([]byte, 0, samples*2*4) // 2x rate * stereo * 2 bytes
	writeFrame := func(sample int16) {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint16(buf[0:], uint16(sample))
		binary.LittleEndian.PutUint16(buf[2:], uint16(sample))
		out = append(out, buf...)
	}

	for i := 0; i < samples; i++ {
		writeFrame(in[i])

		var next int16
		if i+1 < samples {
			next = in[i+1]
		} else {
			next = in[i]
		}
		mid := int16((int32(in[i]) + int32(next)) / 2)
		writeFrame(mid)
	}
	return out
}

// Framer buffers downmixed bytes until whole 100ms frames are available,
// emitting each as soon as it fills and dropping any trailing partial frame
// on Flush.
type Framer struct {
	buf []byte
}

// Write appends bytes to the framer, returning every complete frame now
// available.
func (f *Framer) Write(b []byte) [][]byte {
	f.buf = append(f.buf, b...)

	var frames [][]byte
	for len(f.buf) >= frameBytes {
		frame := make([]byte, frameBytes)
		copy(frame, f.buf[:frameBytes])
		frames = append(frames, frame)
		f.buf = f.buf[frameBytes:]
	}
	return frames
}

// Flush discards any buffered partial frame, resetting the framer.
func (f *Framer) Flush() {
	f.buf = nil
}
