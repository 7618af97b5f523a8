package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/vijay-svsk/call-summarizer/apperr"
)

// Info is what probing learns about a payload.
type Info struct {
	Format     Format
	SampleRate int
	Channels   int
	Duration   time.Duration
}

// Probe sniffs the container and reads its sample rate and duration. The
// sniffed format must be in the whitelist.
func Probe(data []byte, allowed []string) (Info, error) {
	f, ok := Sniff(data)
	if !ok {
		return Info{}, apperr.New(apperr.KindUnsupportedFormat, "payload is not a recognized wav, mp3 or flac stream")
	}
	if _, err := FormatFromName("x."+string(f), allowed); err != nil {
		return Info{}, err
	}

	var (
		info Info
		err  error
	)
	switch f {
	case FormatWAV:
		info, err = probeWAV(data)
	case FormatMP3:
		info, err = probeMP3(data)
	case FormatFLAC:
		info, err = probeFLAC(data)
	}
	if err != nil {
		return Info{}, apperr.Newf(apperr.KindInvalidInput, "probe %s: %v", f, err).WithCause(err)
	}
	info.Format = f
	return info, nil
}

func seconds(samples int64, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(samples) / float64(rate) * float64(time.Second))
}

// probeWAV walks the RIFF chunks for "fmt " and "data".
func probeWAV(data []byte) (Info, error) {
	var (
		info     Info
		byteRate uint32
		dataLen  int64 = -1
	)
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int64(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		switch id {
		case "fmt ":
			if body+16 > len(data) {
				return Info{}, fmt.Errorf("truncated fmt chunk")
			}
			info.Channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			info.SampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			byteRate = binary.LittleEndian.Uint32(data[body+8:])
		case "data":
			dataLen = size
			if avail := int64(len(data) - body); dataLen > avail {
				dataLen = avail
			}
		}
		next := int64(body) + size + size%2
		if next > int64(len(data)) {
			break
		}
		off = int(next)
	}
	if info.SampleRate == 0 || byteRate == 0 {
		return Info{}, fmt.Errorf("missing fmt chunk")
	}
	if dataLen < 0 {
		return Info{}, fmt.Errorf("missing data chunk")
	}
	info.Duration = time.Duration(float64(dataLen) / float64(byteRate) * float64(time.Second))
	return info, nil
}

func probeMP3(data []byte) (Info, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return Info{}, err
	}
	info := Info{SampleRate: dec.SampleRate(), Channels: 2}
	// The decoder always yields 16-bit stereo: 4 bytes per sample frame.
	if n := dec.Length(); n > 0 {
		info.Duration = seconds(n/4, info.SampleRate)
	}
	return info, nil
}

// probeFLAC reads the mandatory STREAMINFO block that follows "fLaC".
func probeFLAC(data []byte) (Info, error) {
	if len(data) < 4+4+18 {
		return Info{}, fmt.Errorf("truncated header")
	}
	if data[4]&0x7F != 0 {
		return Info{}, fmt.Errorf("first metadata block is not STREAMINFO")
	}
	si := data[8:]
	// Bytes 10..17: 20-bit sample rate, 3-bit channels-1, 5-bit bps-1, 36-bit total samples.
	packed := binary.BigEndian.Uint64(si[10:18])
	rate := int(packed >> 44)
	channels := int((packed>>41)&0x7) + 1
	total := int64(packed & 0xFFFFFFFFF)
	if rate == 0 {
		return Info{}, fmt.Errorf("invalid sample rate")
	}
	return Info{SampleRate: rate, Channels: channels, Duration: seconds(total, rate)}, nil
}
