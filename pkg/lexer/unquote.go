package lexer

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// unquote decodes a JavaScript string literal or a template literal without
// substitutions. It reports false for anything it cannot decode.
func unquote(lit string) (string, bool) {
	if len(lit) < 2 {
		return "", false
	}
	q := lit[0]
	if (q != '"' && q != '\'' && q != '`') || lit[len(lit)-1] != q {
		return "", false
	}
	body := lit[1 : len(lit)-1]
	if !strings.ContainsRune(body, '\\') {
		return body, true
	}

	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", false
		}
		switch c = body[i]; c {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case '\r':
			// line continuation, optionally \r\n
			if i+1 < len(body) && body[i+1] == '\n' {
				i++
			}
		case '\n':
		case 'x':
			if i+3 > len(body) {
				return "", false
			}
			r, ok := hex(body[i+1 : i+3])
			if !ok {
				return "", false
			}
			sb.WriteRune(r)
			i += 2
		case 'u':
			r, n, ok := unicodeEscape(body[i+1:])
			if !ok {
				return "", false
			}
			i += n
			// \uD83D\uDE00 is one code point.
			if utf16.IsSurrogate(r) && strings.HasPrefix(body[i+1:], `\u`) {
				if lo, m, ok := unicodeEscape(body[i+3:]); ok {
					if pair := utf16.DecodeRune(r, lo); pair != utf8.RuneError {
						r = pair
						i += m + 2
					}
				}
			}
			sb.WriteRune(r)
		default:
			r, size := utf8.DecodeRuneInString(body[i:])
			// U+2028 and U+2029 are line continuations too.
			if r != '\u2028' && r != '\u2029' {
				sb.WriteRune(r)
			}
			i += size - 1
		}
	}
	return sb.String(), true
}

// unicodeEscape decodes the part after `\u`: either XXXX or {X...}. It
// returns the rune and the number of bytes consumed.
func unicodeEscape(s string) (rune, int, bool) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 2 {
			return 0, 0, false
		}
		r, ok := hex(s[1:end])
		if !ok || r > utf8.MaxRune {
			return 0, 0, false
		}
		return r, end + 1, true
	}
	if len(s) < 4 {
		return 0, 0, false
	}
	r, ok := hex(s[:4])
	return r, 4, ok
}

func hex(s string) (rune, bool) {
	if s == "" || len(s) > 6 {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(n), true
}
