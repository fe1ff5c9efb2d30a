package usecases

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/localdocs/docchat/internal/domain/entities"
)

// Segmenter splits document text into overlapping chunks. Chunk size and
// overlap are explicit configuration, not forked code paths.
type Segmenter struct {
	chunkSize int
	overlap   int
}

// NewSegmenter creates a segmenter. Defaults: 500-character chunks with
// 100 characters of overlap.
func NewSegmenter(chunkSize, overlap int) *Segmenter {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 100
		if overlap >= chunkSize {
			overlap = chunkSize / 5
		}
	}
	return &Segmenter{chunkSize: chunkSize, overlap: overlap}
}

// Segment splits document content into overlapping chunks, breaking at word
// boundaries where possible. Empty documents produce no chunks.
func (s *Segmenter) Segment(doc *entities.Document) []entities.Chunk {
	content := strings.TrimSpace(doc.Content)
	if len(content) == 0 {
		return nil
	}

	var chunks []entities.Chunk
	start := 0
	index := 0

	for start < len(content) {
		end := start + s.chunkSize
		if end > len(content) {
			end = len(content)
		}

		// Break at a word boundary, but only when the shortened window still
		// reaches past the overlap; otherwise the next start would not
		// advance and the loop would re-chunk the same window forever.
		if end < len(content) {
			lastSpace := strings.LastIndex(content[start:end], " ")
			if lastSpace > s.overlap {
				end = start + lastSpace
			}
		}

		chunkContent := strings.TrimSpace(content[start:end])
		if len(chunkContent) > 0 {
			chunks = append(chunks, entities.Chunk{
				ID:         chunkID(doc.ID, index),
				DocumentID: doc.ID,
				SourceName: doc.Name,
				Content:    chunkContent,
				Index:      index,
				Metadata:   chunkMetadata(doc, index),
			})
			index++
		}

		if end == len(content) {
			break
		}
		start = end - s.overlap
		if start < 0 {
			start = 0
		}
	}

	return chunks
}

func chunkMetadata(doc *entities.Document, index int) map[string]string {
	md := map[string]string{
		"filename": doc.Name,
		"position": fmt.Sprintf("%d", index),
	}
	for k, v := range doc.Metadata {
		md[k] = v
	}
	return md
}

// chunkID creates a deterministic ID for a chunk.
func chunkID(docID string, index int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", docID, index)))
	return hex.EncodeToString(hash[:8])
}
