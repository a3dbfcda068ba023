package lemma

import (
	"strings"
	"unicode"
)

// Tokenizer splits text into word and punctuation tokens.
// Whitespace separates tokens and is never emitted. Every other rune that
// cannot be part of a word becomes a token of its own, so callers can decide
// what to drop.
type Tokenizer struct{}

// NewTokenizer creates a tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// Tokenize returns the tokens of text in order. Words are lower-cased;
// curly apostrophes are folded to ASCII.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		raw := current.String()
		current.Reset()
		if word := cleanToken(raw); word != "" {
			tokens = append(tokens, word)
			return
		}
		// Only joiners were collected ("--", "'"): keep them as punctuation.
		tokens = append(tokens, raw)
	}

	for _, r := range text {
		switch {
		case isWordRune(r):
			current.WriteRune(unicode.ToLower(r))
		case isJoiner(r):
			if r == '’' {
				r = '\''
			}
			current.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()

	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r)
}

// isJoiner reports runes that may sit inside a word ("e-commerce", "didn't").
func isJoiner(r rune) bool {
	return r == '-' || r == '\'' || r == '’'
}

// cleanToken strips leading/trailing joiners and collapses repeated hyphens.
func cleanToken(token string) string {
	token = strings.Trim(token, "-'")

	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}

	return token
}
