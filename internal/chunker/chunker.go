package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"document-indexer/internal/models"
)

var (
	ErrUnknownStrategy = errors.New("unknown chunking strategy")
	ErrInvalidParams   = errors.New("invalid chunking parameters")
)

var (
	sentenceBoundaryRe  = regexp.MustCompile(models.SentenceBoundaryRegex)
	paragraphBoundaryRe = regexp.MustCompile(models.ParagraphBoundaryRegex)
)

// Strategy is one of Fixed, Sentence or Paragraph. The set is closed: the
// marker method is unexported, so Chunk's type switch covers every variant.
type Strategy interface {
	Name() string
	strategy()
}

// Fixed cuts the text into windows of Size code points, each starting
// Size-Overlap code points after the previous one.
type Fixed struct {
	Size    int
	Overlap int
}

// Sentence breaks after '.', '!' or '?' when whitespace follows.
type Sentence struct{}

// Paragraph breaks on blank lines.
type Paragraph struct{}

func (Fixed) Name() string     { return models.StrategyFixed }
func (Sentence) Name() string  { return models.StrategySentence }
func (Paragraph) Name() string { return models.StrategyParagraph }

func (Fixed) strategy()     {}
func (Sentence) strategy()  {}
func (Paragraph) strategy() {}

// DefaultFixed returns the fixed-size strategy with the default window.
func DefaultFixed() Fixed {
	return Fixed{Size: models.DefaultChunkSize, Overlap: models.DefaultChunkOverlap}
}

// Validate rejects window settings that would never advance.
func (f Fixed) Validate() error {
	if f.Size <= 0 {
		return fmt.Errorf("%w: chunk size %d must be greater than zero", ErrInvalidParams, f.Size)
	}
	if f.Overlap < 0 {
		return fmt.Errorf("%w: overlap %d cannot be negative", ErrInvalidParams, f.Overlap)
	}
	if f.Overlap >= f.Size {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidParams, f.Overlap, f.Size)
	}
	return nil
}

// Parse maps a strategy name to a Strategy. size and overlap only apply to
// the fixed strategy and are validated here so callers fail before chunking.
func Parse(name string, size, overlap int) (Strategy, error) {
	switch name {
	case models.StrategyFixed:
		f := Fixed{Size: size, Overlap: overlap}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		return f, nil
	case models.StrategySentence:
		return Sentence{}, nil
	case models.StrategyParagraph:
		return Paragraph{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (use %s)", ErrUnknownStrategy, name, strings.Join(models.ValidStrategies, ", "))
	}
}

// Chunk splits text with the given strategy. The result is never nil and
// holds only trimmed, non-empty segments in source order.
func Chunk(text string, s Strategy) ([]string, error) {
	switch s := s.(type) {
	case Fixed:
		return chunkFixed(text, s)
	case Sentence:
		return chunkSentences(text), nil
	case Paragraph:
		return chunkParagraphs(text), nil
	case nil:
		return nil, fmt.Errorf("%w: no strategy given", ErrUnknownStrategy)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s.Name())
	}
}

func chunkFixed(text string, f Fixed) ([]string, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	chunks := make([]string, 0)
	runes := []rune(text)
	step := f.Size - f.Overlap
	for start := 0; start < len(runes); start += step {
		end := min(start+f.Size, len(runes))
		chunks = appendTrimmed(chunks, string(runes[start:end]))
	}
	return chunks, nil
}

func chunkSentences(text string) []string {
	chunks := make([]string, 0)
	prev := 0
	for _, m := range sentenceBoundaryRe.FindAllStringIndex(text, -1) {
		// keep the punctuation mark, drop the whitespace after it
		chunks = appendTrimmed(chunks, text[prev:m[0]+1])
		prev = m[1]
	}
	return appendTrimmed(chunks, text[prev:])
}

func chunkParagraphs(text string) []string {
	chunks := make([]string, 0)
	for _, p := range paragraphBoundaryRe.Split(text, -1) {
		chunks = appendTrimmed(chunks, p)
	}
	return chunks
}

func appendTrimmed(chunks []string, s string) []string {
	if s = strings.TrimFunc(s, models.IsSpace); s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}
