package audio

// PacketDecoder turns one compressed voice packet into mono samples at the
// decoder's output rate.
type PacketDecoder interface {
	Decode(packet []byte) ([]float32, error)
	SampleRate() int
	Close()
}

type PacketDecoderFactory func() (PacketDecoder, error)
