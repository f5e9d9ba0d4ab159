package repo

import (
	"strings"
	"unicode/utf8"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds a LIKE pattern matching q as a literal substring.
func ContainsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

type likeToken struct {
	r   rune
	any bool // %
	one bool // _
}

func tokenizeLike(pattern string) []likeToken {
	tokens := make([]likeToken, 0, utf8.RuneCountInString(pattern))
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch c := runes[i]; {
		case c == '\\' && i+1 < len(runes):
			i++
			tokens = append(tokens, likeToken{r: runes[i]})
		case c == '%':
			tokens = append(tokens, likeToken{any: true})
		case c == '_':
			tokens = append(tokens, likeToken{one: true})
		default:
			tokens = append(tokens, likeToken{r: c})
		}
	}
	return tokens
}

// MatchLike reports whether s matches the LIKE pattern, ignoring case.
// Stores without native LIKE use it to honour FindByKeyword.
func MatchLike(pattern, s string) bool {
	p := tokenizeLike(strings.ToLower(pattern))
	in := []rune(strings.ToLower(s))

	pi, si := 0, 0
	star, mark := -1, 0
	for si < len(in) {
		switch {
		case pi < len(p) && p[pi].any:
			star, mark = pi, si
			pi++
		case pi < len(p) && (p[pi].one || p[pi].r == in[si]):
			pi++
			si++
		case star != -1:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi].any {
		pi++
	}
	return pi == len(p)
}
