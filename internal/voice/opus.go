package voice

import (
	"encoding/binary"
	"fmt"

	"layeh.com/gopus"
)

const maxOpusDataBytes = 4000

// codec wraps a gopus encoder/decoder pair sized for Discord's 48k stereo
// contract, grounded on the teacher's opusEncoder field and its
// encodeOpus helper in the voice-manager reference.
type codec struct {
	encoder *gopus.Encoder
	decoder *gopus.Decoder
}

func newCodec() (*codec, error) {
	enc, err := gopus.NewEncoder(DiscordSampleRate, DiscordChannels, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("voice: new opus encoder: %w", err)
	}
	dec, err := gopus.NewDecoder(DiscordSampleRate, DiscordChannels)
	if err != nil {
		return nil, fmt.Errorf("voice: new opus decoder: %w", err)
	}
	return &codec{encoder: enc, decoder: dec}, nil
}

// encode turns a 20ms 48k-stereo PCM16LE byte frame into an Opus packet.
func (c *codec) encode(pcm []byte) ([]byte, error) {
	samples := bytesToSamples(pcm)
	return c.encoder.Encode(samples, DiscordFrameSize, maxOpusDataBytes)
}

// decode turns an Opus packet from Discord into a 20ms 48k-stereo PCM16LE
// byte frame.
func (c *codec) decode(opus []byte) ([]byte, error) {
	samples, err := c.decoder.Decode(opus, DiscordFrameSize, false)
	if err != nil {
		return nil, err
	}
	return samplesToBytes(samples), nil
}

func bytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

func samplesToBytes(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}
