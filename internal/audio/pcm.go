package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	wavHeaderBytes = 44
	pcm16Max       = 32767
)

var ErrInvalidWAV = errors.New("invalid wav data")

func PCM16LEToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(b[i*2:]))
		out[i] = float32(v) / 32768
	}
	return out
}

func Float32ToPCM16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(clampSample(s)))
	}
	return out
}

// Float32LEBytes decodes little-endian IEEE-754 float32 frames.
func Float32LEBytes(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func clampSample(s float32) int16 {
	if s > 1 {
		s = 1
	}
	if s < -1 {
		s = -1
	}
	return int16(s * pcm16Max)
}

func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Downmix averages interleaved frames into a mono signal.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	out := make([]float32, len(interleaved)/channels)
	for i := range out {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// Decimate keeps every factor-th sample after averaging each group.
func Decimate(samples []float32, factor int) []float32 {
	if factor <= 1 {
		return samples
	}
	out := make([]float32, len(samples)/factor)
	for i := range out {
		var sum float32
		for j := 0; j < factor; j++ {
			sum += samples[i*factor+j]
		}
		out[i] = sum / float32(factor)
	}
	return out
}

// EncodeWAV wraps mono samples in a 16-bit PCM RIFF container.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	data := Float32ToPCM16LE(samples)
	var buf bytes.Buffer
	buf.Grow(wavHeaderBytes + len(data))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

type WAVInfo struct {
	SampleRate int
	Channels   int
	PCM        []byte
}

// DecodeWAV extracts 16-bit PCM from a RIFF container, skipping unknown chunks.
func DecodeWAV(b []byte) (WAVInfo, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return WAVInfo{}, ErrInvalidWAV
	}
	var info WAVInfo
	var sawFormat bool
	pos := 12
	for pos+8 <= len(b) {
		id := string(b[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(b[pos+4:]))
		body := pos + 8
		if body+size > len(b) {
			size = len(b) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return WAVInfo{}, ErrInvalidWAV
			}
			format := binary.LittleEndian.Uint16(b[body:])
			bits := binary.LittleEndian.Uint16(b[body+14:])
			if format != 1 || bits != 16 {
				return WAVInfo{}, fmt.Errorf("%w: format %d with %d bits", ErrInvalidWAV, format, bits)
			}
			info.Channels = int(binary.LittleEndian.Uint16(b[body+2:]))
			info.SampleRate = int(binary.LittleEndian.Uint32(b[body+4:]))
			sawFormat = true
		case "data":
			if !sawFormat {
				return WAVInfo{}, ErrInvalidWAV
			}
			info.PCM = b[body : body+size]
			return info, nil
		}
		pos = body + size + size%2
	}
	return WAVInfo{}, ErrInvalidWAV
}
