package utils

import "fmt"

// CountTokens estimates the number of tokens in text, at roughly four
// characters per token. Any non-empty text counts as at least one token.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TokenBudgetError reports a prompt larger than the configured budget.
type TokenBudgetError struct {
	Tokens int
	Limit  int
}

func (e *TokenBudgetError) Error() string {
	return fmt.Sprintf("prompt is ~%d tokens, over the limit of %d", e.Tokens, e.Limit)
}

// CheckTokenBudget returns a *TokenBudgetError when text exceeds limit.
// A limit <= 0 disables the check.
func CheckTokenBudget(text string, limit int) error {
	if limit <= 0 {
		return nil
	}
	if n := CountTokens(text); n > limit {
		return &TokenBudgetError{Tokens: n, Limit: limit}
	}
	return nil
}

// TruncateToTokenLimit truncates text to roughly fit within a token limit.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	charLimit := limit * 4
	if charLimit >= len(runes) {
		return text
	}
	return string(runes[:charLimit])
}
