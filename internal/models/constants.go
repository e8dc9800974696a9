package models

import "unicode"

// whitespaceClass matches the characters Unicode treats as spacing, which is
// wider than RE2's ASCII-only \s. IsSpace accepts the same set.
const whitespaceClass = `\s\x{0B}\x{1C}-\x{1F}\x{85}\p{Z}`

// IsSpace reports whether r belongs to whitespaceClass. The file, group, record
// and unit separators are spacing here, which unicode.IsSpace does not accept.
func IsSpace(r rune) bool {
	return unicode.IsSpace(r) || unicode.Is(unicode.Z, r) || (r >= 0x1C && r <= 0x1F)
}

const (
	// SentenceBoundaryRegex matches a terminal punctuation mark followed by the
	// whitespace run that ends the sentence. Only the whitespace is a boundary.
	SentenceBoundaryRegex = `[.!?][` + whitespaceClass + `]+`
	// ParagraphBoundaryRegex matches a blank-line run between paragraphs.
	ParagraphBoundaryRegex = `\n[` + whitespaceClass + `]*\n`
)

const (
	DefaultChunkSize    = 500 // code points
	DefaultChunkOverlap = 50  // code points

	VectorSize = 768

	DefaultEmbeddingProvider = "vertex"
	DefaultEmbeddingModel    = "text-embedding-004"
	DefaultLocation          = "us-central1"

	DefaultTable      = "document_chunks"
	DefaultCollection = "document_chunks"
)

const (
	StrategyFixed     = "fixed"
	StrategySentence  = "sentence"
	StrategyParagraph = "paragraph"
)

// ValidStrategies lists the strategy names accepted on the command line.
var ValidStrategies = []string{StrategyFixed, StrategySentence, StrategyParagraph}
