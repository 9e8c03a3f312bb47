package chunking

import (
	"strconv"
	"strings"
)

// Splitter cuts text into overlapping segments. Cut points prefer the
// coarsest boundary available inside the size window: paragraph break,
// then line break, sentence punctuation, word break, and finally a bare
// character boundary. Chunk n+1 starts overlap runes before chunk n's
// cut, so adjacent chunks share that span verbatim.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, len(runes)/s.ChunkSize+1)
	start := 0
	for {
		end := start + s.ChunkSize
		if end >= len(runes) {
			out = append(out, string(runes[start:]))
			return out
		}

		cut := boundary(runes, start, end)
		out = append(out, string(runes[start:cut]))

		next := cut - s.Overlap
		if next <= start {
			// Window too small to share context; move on without overlap.
			next = cut
		}
		start = next
	}
}

// boundary returns the cut position in (start, end] closest to end on the
// coarsest boundary class present in the window.
func boundary(runes []rune, start, end int) int {
	for i := end - 1; i > start; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i > start; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i > start; i-- {
		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' {
			return i + 1
		}
	}
	for i := end - 1; i > start; i-- {
		if runes[i] == ' ' {
			return i + 1
		}
	}
	return end
}

// PageNumber recovers the first extractor-emitted "Page <N>:" marker line
// inside a chunk.
func (s *Splitter) PageNumber(chunk string) (int, bool) {
	for _, line := range strings.Split(chunk, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, "Page ")
		if !ok {
			continue
		}
		numText, _, ok := strings.Cut(rest, ":")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(numText))
		if err != nil || n <= 0 {
			continue
		}
		return n, true
	}
	return 0, false
}
