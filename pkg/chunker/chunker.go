package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"bangla-rag-be/internal/pkg/logger"
)

type ContentType string

const (
	ContentMCQ      ContentType = "mcq"
	ContentCreative ContentType = "creative"
	ContentTable    ContentType = "table"
	ContentGeneral  ContentType = "general"
)

// ParseContentType maps a label to a known type. Unknown labels fall back to general.
func ParseContentType(label string) (ContentType, bool) {
	switch ContentType(strings.ToLower(strings.TrimSpace(label))) {
	case ContentMCQ:
		return ContentMCQ, true
	case ContentCreative:
		return ContentCreative, true
	case ContentTable:
		return ContentTable, true
	case ContentGeneral:
		return ContentGeneral, true
	default:
		return ContentGeneral, false
	}
}

// Profile holds the size budget and overlap for one content type, in characters.
type Profile struct {
	Size    int
	Overlap int
}

// Profiles are fixed per content type.
var Profiles = map[ContentType]Profile{
	ContentMCQ:      {Size: 800, Overlap: 50},
	ContentCreative: {Size: 1500, Overlap: 150},
	ContentTable:    {Size: 1200, Overlap: 100},
	ContentGeneral:  {Size: 1000, Overlap: 100},
}

const (
	minMCQLength      = 30
	minCreativeLength = 50
	tableOverlapRows  = 2
	creativeDelimiter = "---"
)

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	questionNumber = regexp.MustCompile(`(?m)^[ \t]*[0-9০-৯]+[.।]`)
	leadingNumber  = regexp.MustCompile(`^[0-9০-৯]+`)
	sentenceEnd    = regexp.MustCompile(`[।৺]|[.!?](?:\s|$)`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
	boldMarkup     = regexp.MustCompile(`\*\*.*?\*\*`)
	decorations    = strings.NewReplacer("📖", "", "🎯", "", "✓", "")
)

// Chunk is one retrieval unit. It is never modified after Split returns it.
type Chunk struct {
	ID            string                 `json:"id"`
	Text          string                 `json:"text"`
	ContentType   ContentType            `json:"content_type"`
	SourceRef     string                 `json:"source_ref"`
	SequenceIndex int                    `json:"sequence_index"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// ChunkID derives a stable identifier so re-indexing the same content overwrites instead of duplicating.
func ChunkID(contentType ContentType, sequenceIndex int, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s_%d_%s", contentType, sequenceIndex, hex.EncodeToString(sum[:8]))
}

type Chunker struct {
	logger logger.ILogger
}

func NewChunker(logger logger.ILogger) *Chunker {
	return &Chunker{logger: logger}
}

// Split turns one labeled source document into chunks using the strategy for its content type.
func (c *Chunker) Split(content string, contentType ContentType, sourceRef string) []Chunk {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var pieces []piece
	switch contentType {
	case ContentMCQ:
		pieces = splitMCQ(content)
	case ContentCreative:
		pieces = splitCreative(content)
	case ContentTable:
		pieces = splitTable(content, Profiles[ContentTable].Size)
	default:
		contentType = ContentGeneral
		profile := Profiles[ContentGeneral]
		pieces = splitGeneral(content, profile.Size, profile.Overlap)
	}

	chunks := make([]Chunk, 0, len(pieces))
	for _, p := range pieces {
		idx := len(chunks)
		meta := map[string]interface{}{
			"content_type": string(contentType),
			"source_file":  sourceRef,
			"chunk_index":  idx,
		}
		for k, v := range p.meta {
			meta[k] = v
		}
		chunks = append(chunks, Chunk{
			ID:            ChunkID(contentType, idx, p.text),
			Text:          p.text,
			ContentType:   contentType,
			SourceRef:     sourceRef,
			SequenceIndex: idx,
			Metadata:      meta,
		})
	}

	if c.logger != nil {
		c.logger.Info("Chunker", "Document chunked", map[string]interface{}{
			"source":       sourceRef,
			"content_type": string(contentType),
			"chunks":       len(chunks),
		})
	}
	return chunks
}

type piece struct {
	text string
	meta map[string]interface{}
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func splitMCQ(content string) []piece {
	var out []piece
	for _, para := range paragraphBreak.Split(content, -1) {
		for _, block := range splitBeforeNumbers(para) {
			block = strings.TrimSpace(block)
			if runeLen(block) < minMCQLength {
				continue
			}
			cleaned := cleanText(block)
			if cleaned == "" {
				continue
			}
			number := "unknown"
			if m := leadingNumber.FindString(cleaned); m != "" {
				number = m
			}
			out = append(out, piece{
				text: cleaned,
				meta: map[string]interface{}{"question_number": number},
			})
		}
	}
	return out
}

// splitBeforeNumbers cuts a paragraph in front of every line that opens with a question number.
func splitBeforeNumbers(para string) []string {
	locs := questionNumber.FindAllStringIndex(para, -1)
	if len(locs) == 0 {
		return []string{para}
	}
	var blocks []string
	start := 0
	for _, loc := range locs {
		if loc[0] > start {
			blocks = append(blocks, para[start:loc[0]])
		}
		start = loc[0]
	}
	return append(blocks, para[start:])
}

func cleanText(text string) string {
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = boldMarkup.ReplaceAllString(text, "")
	text = decorations.Replace(text)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

func splitCreative(content string) []piece {
	var out []piece
	for _, section := range strings.Split(content, creativeDelimiter) {
		section = strings.TrimSpace(section)
		if runeLen(section) < minCreativeLength {
			continue
		}
		out = append(out, piece{
			text: section,
			meta: map[string]interface{}{"question_set": fmt.Sprintf("Question %d", len(out)+1)},
		})
	}
	return out
}

func splitTable(content string, size int) []piece {
	var out []piece
	for sectionIdx, section := range paragraphBreak.Split(content, -1) {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		meta := func() map[string]interface{} {
			return map[string]interface{}{"table_section": sectionIdx + 1}
		}
		if runeLen(section) <= size {
			out = append(out, piece{text: section, meta: meta()})
			continue
		}

		var rows []string
		length := 0
		flush := func() {
			text := strings.TrimSpace(strings.Join(rows, "\n"))
			if text != "" {
				out = append(out, piece{text: text, meta: meta()})
			}
		}
		for _, row := range strings.Split(section, "\n") {
			if strings.TrimSpace(row) == "" {
				continue
			}
			rowLen := runeLen(row) + 1
			if length+rowLen <= size || len(rows) == 0 {
				rows = append(rows, row)
				length += rowLen
				continue
			}
			flush()
			carried := rows
			if len(carried) > tableOverlapRows {
				carried = carried[len(carried)-tableOverlapRows:]
			}
			rows = append(append([]string{}, carried...), row)
			length = 0
			for _, r := range rows {
				length += runeLen(r) + 1
			}
		}
		flush()
	}
	return out
}

func splitGeneral(content string, size, overlap int) []piece {
	var out []piece
	var current []rune
	emit := func() {
		text := strings.TrimSpace(string(current))
		if text != "" {
			out = append(out, piece{text: text})
		}
	}
	for _, s := range units(splitSentences(content), size) {
		if len(current)+len(s) <= size || strings.TrimSpace(string(current)) == "" {
			current = append(current, s...)
			current = append(current, ' ')
			continue
		}
		emit()
		var tail []rune
		if len(current) > overlap {
			tail = append(tail, current[len(current)-overlap:]...)
		}
		current = append(tail, s...)
		current = append(current, ' ')
	}
	emit()
	return out
}

// units hard-splits any sentence longer than size, preferring the last space inside the window.
func units(sentences []string, size int) [][]rune {
	out := make([][]rune, 0, len(sentences))
	for _, sentence := range sentences {
		s := []rune(sentence)
		for len(s) > size {
			cut := size
			for i := size; i > size/2; i-- {
				if s[i] == ' ' {
					cut = i
					break
				}
			}
			out = append(out, []rune(strings.TrimSpace(string(s[:cut]))))
			s = []rune(strings.TrimSpace(string(s[cut:])))
		}
		if len(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// splitSentences breaks prose on Bengali and Latin sentence terminators and blank lines, keeping the terminator.
func splitSentences(text string) []string {
	var sentences []string
	for _, para := range paragraphBreak.Split(text, -1) {
		start := 0
		for _, loc := range sentenceEnd.FindAllStringIndex(para, -1) {
			sentences = appendTrimmed(sentences, para[start:loc[1]])
			start = loc[1]
		}
		sentences = appendTrimmed(sentences, para[start:])
	}
	return sentences
}

func appendTrimmed(list []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		return append(list, s)
	}
	return list
}
