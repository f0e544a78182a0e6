package report

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Lllllllleong/reportprinter/internal/models"
)

// MinBulletLength is the rune count a trimmed fragment must exceed to become
// a bullet.
const MinBulletLength = 16

// Tokenizer splits summary text into candidate bullet fragments.
type Tokenizer interface {
	Fragments(text string) []string
}

// TerminatorSplitter splits on a single terminator string. It does not try to
// recognize abbreviations or decimal numbers.
type TerminatorSplitter struct {
	Terminator string
}

// Fragments implements Tokenizer.
func (s TerminatorSplitter) Fragments(text string) []string {
	term := s.Terminator
	if term == "" {
		term = "."
	}
	return strings.Split(text, term)
}

// Composer turns raw summary text into a StructuredDocument.
type Composer struct {
	tokenizer Tokenizer
	minLength int
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithTokenizer replaces the default TerminatorSplitter.
func WithTokenizer(t Tokenizer) ComposerOption {
	return func(c *Composer) {
		if t != nil {
			c.tokenizer = t
		}
	}
}

// NewComposer creates a Composer splitting on ".".
func NewComposer(opts ...ComposerOption) *Composer {
	c := &Composer{
		tokenizer: TerminatorSplitter{Terminator: "."},
		minLength: MinBulletLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose extracts the bullet list from summary and keeps the text verbatim
// as the full summary.
func (c *Composer) Compose(topic, summary string) models.StructuredDocument {
	bullets := []string{}
	for _, fragment := range c.tokenizer.Fragments(summary) {
		point := TrimBullet(fragment)
		if utf8.RuneCountInString(point) > c.minLength {
			bullets = append(bullets, point)
		}
	}
	return models.StructuredDocument{
		Topic:    topic,
		Bullets:  bullets,
		FullText: summary,
	}
}

// TrimBullet strips bullet glyphs and whitespace from both ends of s.
func TrimBullet(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == '•' || r == '-' || r == '*' || unicode.IsSpace(r)
	})
}
