package voice

import (
	"encoding/binary"
	"testing"
)

func pcm16(samples ...int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}

func TestDownmix_AveragesLeftAndRightEveryThirdFrame(t *testing.T) {
	// Three stereo frames: (10,20) (30,40) (50,60) -> keep frame 0 only.
	in := pcm16(10, 20, 30, 40, 50, 60)
	out := Downmix(in)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2 bytes (one sample)", len(out))
	}
	got := int16(binary.LittleEndian.Uint16(out))
	if got != 15 {
		t.Fatalf("Downmix sample = %d, want 15", got)
	}
}

func TestDownmix_DropsTrailingIncompleteFrame(t *testing.T) {
	in := pcm16(10, 20) // one stereo frame, not even one kept-group of three
	out := Downmix(in)
	if len(out) != 0 {
		t.Fatalf("len(out) = %d, want 0", len(out))
	}
}

func TestUpmix_DuplicatesMonoToBothChannels(t *testing.T) {
	in := pcm16(100, 200)
	out := Upmix(in)
	// 2 input samples -> 4 output samples (2x rate) * stereo * 2 bytes = 16 bytes
	if len(out) != 16 {
		t.Fatalf("len(out) = %d, want 16", len(out))
	}
	l0 := int16(binary.LittleEndian.Uint16(out[0:]))
	r0 := int16(binary.LittleEndian.Uint16(out[2:]))
	if l0 != 100 || r0 != 100 {
		t.Fatalf("first frame = (%d,%d), want (100,100)", l0, r0)
	}
}

func TestFramer_EmitsOnlyCompleteFrames(t *testing.T) {
	f := &Framer{}
	half := make([]byte, frameBytes/2)
	if frames := f.Write(half); len(frames) != 0 {
		t.Fatalf("expected no frames from a half-size write, got %d", len(frames))
	}
	if frames := f.Write(half); len(frames) != 1 {
		t.Fatalf("expected exactly one frame once buffered bytes reach frameBytes, got %d", len(frames))
	}
}

func TestFramer_FlushDropsPartialFrame(t *testing.T) {
	f := &Framer{}
	f.Write(make([]byte, frameBytes/3))
	f.Flush()
	if frames := f.Write(make([]byte, frameBytes/3)); len(frames) != 0 {
		t.Fatalf("expected Flush to discard the earlier partial frame, got %d frames", len(frames))
	}
}
