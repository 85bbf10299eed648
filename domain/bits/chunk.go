package bits

// Chunk is a contiguous fixed-length slice of a sequence, together with
// its 0-based position in the chunking pass that produced it. Chunks are
// independent: no chunk's verdict may depend on another chunk.
type Chunk struct {
	Index int
	Bits  Sequence
}

// Split cuts a sequence into floor(len/size) chunks of exactly size bits,
// in original order. The trailing len%size bits are dropped. Zero chunks
// is a valid outcome when the sequence is shorter than one chunk.
func Split(seq Sequence, size int) []Chunk {
	if size <= 0 {
		return nil
	}
	count := len(seq) / size
	chunks := make([]Chunk, 0, count)
	for i := 0; i < count; i++ {
		chunks = append(chunks, Chunk{
			Index: i,
			Bits:  seq[i*size : (i+1)*size],
		})
	}
	return chunks
}
