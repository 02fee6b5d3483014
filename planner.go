package sajmqtt

// Chunk is one sub-range of a logical register read, sized to respect the
// per-request register limit.
type Chunk struct {
	Start uint16
	Count uint16
}

// Plan partitions [start, start+count) into consecutive chunks of at most
// maxPerRequest registers, in address order. The last chunk may be shorter.
// Each chunk becomes one request frame.
func Plan(start, count, maxPerRequest uint16) []Chunk {
	chunks := make([]Chunk, 0, (count+maxPerRequest-1)/maxPerRequest)
	for count > 0 {
		n := min(count, maxPerRequest)
		chunks = append(chunks, Chunk{Start: start, Count: n})
		start += n
		count -= n
	}
	return chunks
}
