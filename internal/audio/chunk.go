package audio

// Chunk is a fixed-length block of mono samples normalized to [-1, 1].
type Chunk struct {
	Seq     uint64
	Samples []float32
}

// Message is the element type of the chunk queue: either a Chunk or the
// end-of-stream marker.
type Message struct {
	chunk Chunk
	eos   bool
}

func ChunkMessage(c Chunk) Message {
	return Message{chunk: c}
}

func EndOfStream() Message {
	return Message{eos: true}
}

func (m Message) IsEndOfStream() bool {
	return m.eos
}

func (m Message) Chunk() (Chunk, bool) {
	if m.eos {
		return Chunk{}, false
	}
	return m.chunk, true
}
