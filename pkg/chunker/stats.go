package chunker

type TypeStats struct {
	Count   int     `json:"count"`
	AvgSize float64 `json:"avg_size"`
	MinSize int     `json:"min_size"`
	MaxSize int     `json:"max_size"`
}

type Stats struct {
	TotalChunks   int                        `json:"total_chunks"`
	AvgChunkSize  float64                    `json:"avg_chunk_size"`
	ByContentType map[ContentType]*TypeStats `json:"by_content_type"`
}

// ComputeStats summarizes chunk sizes (in characters) overall and per content type.
func ComputeStats(chunks []Chunk) Stats {
	stats := Stats{
		TotalChunks:   len(chunks),
		ByContentType: make(map[ContentType]*TypeStats),
	}
	if len(chunks) == 0 {
		return stats
	}

	total := 0
	sums := make(map[ContentType]int)
	for _, c := range chunks {
		size := runeLen(c.Text)
		total += size
		sums[c.ContentType] += size

		ts, ok := stats.ByContentType[c.ContentType]
		if !ok {
			ts = &TypeStats{MinSize: size, MaxSize: size}
			stats.ByContentType[c.ContentType] = ts
		}
		ts.Count++
		if size < ts.MinSize {
			ts.MinSize = size
		}
		if size > ts.MaxSize {
			ts.MaxSize = size
		}
	}

	stats.AvgChunkSize = float64(total) / float64(len(chunks))
	for ct, ts := range stats.ByContentType {
		ts.AvgSize = float64(sums[ct]) / float64(ts.Count)
	}
	return stats
}
