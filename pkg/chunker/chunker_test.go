package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentType(t *testing.T) {
	tests := []struct {
		label  string
		want   ContentType
		wantOk bool
	}{
		{"mcq", ContentMCQ, true},
		{" Creative ", ContentCreative, true},
		{"TABLE", ContentTable, true},
		{"general", ContentGeneral, true},
		{"raw", ContentGeneral, false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := ParseContentType(tt.label)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOk, ok)
		})
	}
}

func TestSplitMCQ(t *testing.T) {
	content := "1. অনুপমের বাবা কী করে জীবিকা নির্বাহ করতেন? (ক) ওকালতি (খ) ডাক্তারি\n" +
		"2. **নোট** কাকে অনুপমের ভাগ্য দেবতা বলে উল্লেখ করা হয়েছে? (ক) মামা 🎯\n\n" +
		"short block\n\n" +
		"3. Which option is correct for the marriage age of Kalyani?"

	c := NewChunker(nil)
	chunks := c.Split(content, ContentMCQ, "mcq_content.txt")

	require.Len(t, chunks, 3)
	assert.Equal(t, "1", chunks[0].Metadata["question_number"])
	assert.Equal(t, "2", chunks[1].Metadata["question_number"])
	assert.NotContains(t, chunks[1].Text, "**")
	assert.NotContains(t, chunks[1].Text, "🎯")
	assert.NotContains(t, chunks[0].Text, "\n")
	for i, ch := range chunks {
		assert.Equal(t, ContentMCQ, ch.ContentType)
		assert.Equal(t, i, ch.SequenceIndex)
		assert.Equal(t, "mcq_content.txt", ch.Metadata["source_file"])
	}
}

func TestSplitCreative(t *testing.T) {
	long := strings.Repeat("উদ্দীপকটি পড়ে প্রশ্নের উত্তর দাও। ", 3)
	content := long + "\n---\ntoo short\n---\n" + long

	chunks := NewChunker(nil).Split(content, ContentCreative, "creative.txt")

	require.Len(t, chunks, 2)
	assert.Equal(t, strings.TrimSpace(long), chunks[0].Text)
	assert.Equal(t, "Question 2", chunks[1].Metadata["question_set"])
}

func TestSplitTableSmallSectionIsOneChunk(t *testing.T) {
	content := "শব্দ | অর্থ\nপিসতুতো | পিসির ছেলে\n\nrow a | row b"

	chunks := NewChunker(nil).Split(content, ContentTable, "table.txt")

	require.Len(t, chunks, 2)
	assert.Equal(t, "শব্দ | অর্থ\nপিসতুতো | পিসির ছেলে", chunks[0].Text)
	assert.Equal(t, 2, chunks[1].Metadata["table_section"])
}

func TestSplitTableOversizedSectionCarriesTwoRows(t *testing.T) {
	var rows []string
	for i := 0; i < 40; i++ {
		rows = append(rows, "row "+strings.Repeat("x", 50)+string(rune('A'+i%26)))
	}
	content := strings.Join(rows, "\n")

	chunks := NewChunker(nil).Split(content, ContentTable, "table.txt")

	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		prevRows := strings.Split(chunks[i-1].Text, "\n")
		nextRows := strings.Split(chunks[i].Text, "\n")
		assert.Equal(t, prevRows[len(prevRows)-2:], nextRows[:2], "chunk %d should start with the last two rows of chunk %d", i, i-1)
	}
	for _, ch := range chunks {
		assert.LessOrEqual(t, runeLen(ch.Text), Profiles[ContentTable].Size)
	}
}

func TestSplitGeneralAccumulatesWithOverlap(t *testing.T) {
	sentence := strings.Repeat("ক", 90) + "।"
	content := strings.Repeat(sentence, 30)

	chunks := NewChunker(nil).Split(content, ContentGeneral, "rest.txt")

	require.Greater(t, len(chunks), 1)
	overlap := Profiles[ContentGeneral].Overlap
	for i, ch := range chunks {
		assert.LessOrEqual(t, runeLen(ch.Text), Profiles[ContentGeneral].Size+overlap)
		if i == 0 {
			continue
		}
		prev := []rune(chunks[i-1].Text + " ")
		tail := strings.TrimSpace(string(prev[len(prev)-overlap:]))
		assert.True(t, strings.HasPrefix(chunks[i].Text, tail), "chunk %d should begin with the tail of the previous chunk", i)
	}
}

func TestSplitGeneralRespectsBudgetForLatinProse(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"english sentences", strings.Repeat("Anupam's uncle handled every decision about the wedding arrangements. ", 70)},
		{"mixed terminators", strings.Repeat("Was Kalyani's father insulted? He was! অনুপম চুপ করে ছিল। ", 40)},
		{"no terminators", strings.Repeat("word ", 700)},
	}
	size := Profiles[ContentGeneral].Size
	overlap := Profiles[ContentGeneral].Overlap
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := NewChunker(nil).Split(tt.content, ContentGeneral, "story.txt")

			require.Greater(t, len(chunks), 1)
			for _, ch := range chunks {
				assert.LessOrEqual(t, runeLen(ch.Text), size+overlap)
			}
		})
	}
}

func TestSplitSentencesKeepsDecimalsTogether(t *testing.T) {
	got := splitSentences("The ratio was 3.5 to one. Next sentence")
	assert.Equal(t, []string{"The ratio was 3.5 to one.", "Next sentence"}, got)
}

func TestUnknownTypeUsesGeneral(t *testing.T) {
	chunks := NewChunker(nil).Split("একটি বাক্য। আরেকটি বাক্য।", ContentType("raw"), "raw.txt")
	require.Len(t, chunks, 1)
	assert.Equal(t, ContentGeneral, chunks[0].ContentType)
	assert.Equal(t, "একটি বাক্য। আরেকটি বাক্য।", chunks[0].Text)
}

func TestChunksAreNonEmptyAndIdsStable(t *testing.T) {
	inputs := map[ContentType]string{
		ContentMCQ:      "1. প্রথম প্রশ্নটি যথেষ্ট লম্বা হতে হবে যাতে রাখা হয়?\n2. দ্বিতীয় প্রশ্নটিও যথেষ্ট লম্বা হতে হবে এখানে?",
		ContentCreative: strings.Repeat("সৃজনশীল প্রশ্ন ", 10) + "---" + strings.Repeat("আরও একটি অংশ ", 10),
		ContentTable:    "a | b\nc | d\n\ne | f",
		ContentGeneral:  strings.Repeat("এটি একটি সাধারণ বাক্য। ", 100),
	}

	c := NewChunker(nil)
	for ct, content := range inputs {
		t.Run(string(ct), func(t *testing.T) {
			first := c.Split(content, ct, "src")
			second := c.Split(content, ct, "src")
			require.NotEmpty(t, first)
			require.Equal(t, len(first), len(second))
			for i := range first {
				assert.NotEmpty(t, strings.TrimSpace(first[i].Text))
				assert.Equal(t, first[i].ID, second[i].ID)
				assert.Equal(t, ChunkID(ct, i, first[i].Text), first[i].ID)
			}
		})
	}
}

func TestComputeStats(t *testing.T) {
	chunks := []Chunk{
		{Text: "abcd", ContentType: ContentMCQ},
		{Text: "ab", ContentType: ContentMCQ},
		{Text: "কখগ", ContentType: ContentTable},
	}

	stats := ComputeStats(chunks)

	assert.Equal(t, 3, stats.TotalChunks)
	assert.InDelta(t, 3.0, stats.AvgChunkSize, 0.001)
	require.Contains(t, stats.ByContentType, ContentMCQ)
	assert.Equal(t, 2, stats.ByContentType[ContentMCQ].Count)
	assert.Equal(t, 2, stats.ByContentType[ContentMCQ].MinSize)
	assert.Equal(t, 4, stats.ByContentType[ContentMCQ].MaxSize)
	assert.InDelta(t, 3.0, stats.ByContentType[ContentMCQ].AvgSize, 0.001)
	assert.Equal(t, 3, stats.ByContentType[ContentTable].MinSize)

	empty := ComputeStats(nil)
	assert.Equal(t, 0, empty.TotalChunks)
}
