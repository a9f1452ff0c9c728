package query

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	LangBengali = "bn"
	LangEnglish = "en"
	LangUnknown = "unknown"
)

type Type string

const (
	TypeMCQ     Type = "mcq"
	TypeFactual Type = "factual"
	TypeGeneral Type = "general"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Everything except the Bengali block, letters, digits, underscore, whitespace, '?' and the dari.
	disallowedRe = regexp.MustCompile(`[^\x{0980}-\x{09FF}\p{L}\p{N}_\s?।]`)

	bengaliQuestionWords = []string{"কী", "কি", "কে", "কোন", "কার", "কেন", "কিভাবে", "কখন", "কোথায়"}
	englishQuestionWords = []string{"what", "who", "when", "where", "why", "how", "which"}
	mcqTerms             = []string{"অপশন", "সঠিক উত্তর", "option", "correct answer", "choose", "select"}
)

// ClassifiedQuery is the output of the classification stage.
type ClassifiedQuery struct {
	Original string
	Cleaned  string
	Language string
	Type     Type
}

// Processor cleans and classifies incoming queries.
type Processor struct {
	bengaliRatio float64
}

// NewProcessor returns a processor that calls a query Bengali when more than ratio
// of its non-space characters fall in the Bengali block.
func NewProcessor(bengaliRatio float64) *Processor {
	if bengaliRatio <= 0 {
		bengaliRatio = 0.3
	}
	return &Processor{bengaliRatio: bengaliRatio}
}

func (p *Processor) Process(raw string) *ClassifiedQuery {
	cleaned := Clean(raw)
	lang := p.DetectLanguage(cleaned)
	return &ClassifiedQuery{
		Original: raw,
		Cleaned:  cleaned,
		Language: lang,
		Type:     Classify(cleaned, lang),
	}
}

// Clean collapses whitespace and blanks out punctuation other than '?' and '।'.
func Clean(raw string) string {
	q := whitespaceRe.ReplaceAllString(strings.TrimSpace(raw), " ")
	return disallowedRe.ReplaceAllString(q, " ")
}

func (p *Processor) DetectLanguage(text string) string {
	var bengali, total int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if IsBengali(r) {
			bengali++
		}
	}
	if total == 0 {
		return LangEnglish
	}
	if float64(bengali)/float64(total) > p.bengaliRatio {
		return LangBengali
	}
	return LangEnglish
}

func IsBengali(r rune) bool {
	return r >= 0x0980 && r <= 0x09FF
}

// Classify checks mcq terms first, then question words of the detected language.
func Classify(text, language string) Type {
	lower := strings.ToLower(text)
	for _, term := range mcqTerms {
		if strings.Contains(lower, term) {
			return TypeMCQ
		}
	}

	words := englishQuestionWords
	if language == LangBengali {
		words = bengaliQuestionWords
	}
	for _, w := range words {
		if strings.Contains(lower, w) {
			return TypeFactual
		}
	}
	return TypeGeneral
}
