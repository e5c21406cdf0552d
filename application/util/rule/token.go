package rule

import "strings"

// Symbols allowed in a token besides letters and digits.
// https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.2
const tokenSymbols = "!#$%&'*+-.^_`|~"

func IsTokenChar(c rune) bool {
	return IsAlpha(c) || IsDigit(c) || strings.ContainsRune(tokenSymbols, c)
}

// IsValidToken reports whether s is a non-empty token, such as a method name.
func IsValidToken(s string) bool {
	return s != "" && strings.IndexFunc(s, func(c rune) bool { return !IsTokenChar(c) }) < 0
}
