package ingest

import (
	"strings"
	"unicode"
)

// ChunkConfig controls chunking for guideline embeddings.
type ChunkConfig struct {
	MaxChars int
	MinChars int
	Overlap  int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars: 1200,
		MinChars: 400,
		Overlap:  200,
	}
}

// PageChunk is one chunk of a single page, ordered by Index.
type PageChunk struct {
	Index        int
	SectionTitle string
	Content      string
}

// ChunkPage splits one page's text into overlapping chunks. Chunks never
// cross page boundaries so every chunk carries an exact page number.
func ChunkPage(page PageText, cfg ChunkConfig) []PageChunk {
	pieces := chunkText(page.Text, cfg)
	if len(pieces) == 0 {
		return nil
	}

	title := sectionTitle(page.Text)
	chunks := make([]PageChunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, PageChunk{
			Index:        i,
			SectionTitle: title,
			Content:      piece,
		})
	}
	return chunks
}

// sectionTitle returns the first meaningful line of a page, used as a
// human-readable locator in citations.
func sectionTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) <= 3 {
			continue
		}
		runes := []rune(line)
		if len(runes) > 100 {
			return strings.TrimSpace(string(runes[:100]))
		}
		return line
	}
	return ""
}

func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	runes := []rune(clean)
	if len(runes) <= cfg.MaxChars {
		return []string{clean}
	}

	chunks := make([]string, 0, 8)
	start := 0
	for start < len(runes) {
		end := start + cfg.MaxChars
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			cut := end
			minCut := start + cfg.MinChars
			if minCut > end {
				minCut = start
			}
			for i := end; i > minCut; i-- {
				if unicode.IsSpace(runes[i-1]) {
					cut = i
					break
				}
			}
			end = cut
		}

		if end <= start {
			break
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		nextStart := end
		if cfg.Overlap > 0 {
			if end-start > cfg.Overlap {
				nextStart = end - cfg.Overlap
			}
		}
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}
