package audio

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/vijay-svsk/call-summarizer/apperr"
)

// wavBytes builds a PCM WAV header followed by n bytes of silence.
func wavBytes(rate, channels, n int) []byte {
	byteRate := rate * channels * 2
	b := make([]byte, 44+n)
	copy(b[0:], "RIFF")
	binary.LittleEndian.PutUint32(b[4:], uint32(36+n))
	copy(b[8:], "WAVE")
	copy(b[12:], "fmt ")
	binary.LittleEndian.PutUint32(b[16:], 16)
	binary.LittleEndian.PutUint16(b[20:], 1)
	binary.LittleEndian.PutUint16(b[22:], uint16(channels))
	binary.LittleEndian.PutUint32(b[24:], uint32(rate))
	binary.LittleEndian.PutUint32(b[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(b[32:], uint16(channels*2))
	binary.LittleEndian.PutUint16(b[34:], 16)
	copy(b[36:], "data")
	binary.LittleEndian.PutUint32(b[40:], uint32(n))
	return b
}

func flacBytes(rate, channels int, total uint64) []byte {
	b := make([]byte, 8+34)
	copy(b[0:], "fLaC")
	b[4] = 0x80 // last block, type STREAMINFO
	b[7] = 34
	packed := uint64(rate)<<44 | uint64(channels-1)<<41 | uint64(15)<<36 | total
	binary.BigEndian.PutUint64(b[8+10:], packed)
	return b
}

func TestFormatFromName(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"call.wav", FormatWAV, false},
		{"CALL.MP3", FormatMP3, false},
		{"a/b/c.flac", FormatFLAC, false},
		{"notes.txt", "", true},
		{"noext", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FormatFromName(tc.name, nil)
			if tc.wantErr {
				if !apperr.Is(err, apperr.KindUnsupportedFormat) {
					t.Errorf("expected UnsupportedFormat, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("expected %s, got %s (%v)", tc.want, got, err)
			}
		})
	}

	if _, err := FormatFromName("call.mp3", []string{"wav"}); err == nil {
		t.Error("expected mp3 to be rejected by a wav-only whitelist")
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want Format
		ok   bool
	}{
		{"wav", wavBytes(8000, 1, 0), FormatWAV, true},
		{"flac", flacBytes(44100, 2, 0), FormatFLAC, true},
		{"id3", []byte("ID3\x04\x00"), FormatMP3, true},
		{"mpeg frame sync", []byte{0xFF, 0xFB, 0x90, 0x00}, FormatMP3, true},
		{"text", []byte("hello world"), "", false},
		{"empty", nil, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Sniff(tc.head)
			if got != tc.want || ok != tc.ok {
				t.Errorf("expected (%q, %v), got (%q, %v)", tc.want, tc.ok, got, ok)
			}
		})
	}
}

func TestProbe_WAV(t *testing.T) {
	info, err := Probe(wavBytes(16000, 1, 32000*3), nil)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if info.Format != FormatWAV || info.SampleRate != 16000 || info.Channels != 1 {
		t.Errorf("unexpected info %+v", info)
	}
	if info.Duration != 3*time.Second {
		t.Errorf("expected 3s, got %v", info.Duration)
	}
}

func TestProbe_FLAC(t *testing.T) {
	info, err := Probe(flacBytes(44100, 2, 44100*2), nil)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if info.SampleRate != 44100 || info.Channels != 2 || info.Duration != 2*time.Second {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestProbe_Rejects(t *testing.T) {
	if _, err := Probe([]byte("definitely not audio"), nil); !apperr.Is(err, apperr.KindUnsupportedFormat) {
		t.Errorf("expected UnsupportedFormat, got %v", err)
	}
	if _, err := Probe(wavBytes(8000, 1, 10), []string{"mp3"}); !apperr.Is(err, apperr.KindUnsupportedFormat) {
		t.Errorf("expected whitelist rejection, got %v", err)
	}
	truncated := wavBytes(8000, 1, 0)[:20]
	if _, err := Probe(truncated, nil); !apperr.Is(err, apperr.KindInvalidInput) {
		t.Errorf("expected InvalidInput for truncated wav, got %v", err)
	}
}

func TestAsset_Bytes(t *testing.T) {
	a := NewAsset("x.wav", []byte("abc"))
	if a.ID == "" {
		t.Error("expected generated ID")
	}
	if b, err := a.Bytes(); err != nil || string(b) != "abc" {
		t.Errorf("unexpected %q %v", b, err)
	}
	if _, err := (&Asset{}).Bytes(); !apperr.Is(err, apperr.KindInvalidInput) {
		t.Errorf("expected InvalidInput, got %v", err)
	}
}
