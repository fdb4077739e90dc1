package synth

import (
	"strconv"
	"strings"
)

// idPrefixes are the tokens that mark a pattern as an identifier template.
var idPrefixes = []string{"CUST", "PROD", "ORD"}

func hasIDPrefix(pattern string) bool {
	upper := strings.ToUpper(pattern)
	for _, p := range idPrefixes {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}

// slot kinds produced by the pattern tokenizer
const (
	slotLiteral = iota
	slotDigit
	slotLetter
	slotLower
	slotAlnum
)

type slot struct {
	kind int
	lit  byte
}

// ExpandPattern fills a simple alphanumeric template. Supported tokens are
// `#` and `\d` (digit), `?` and `[A-Z]` (upper-case letter), `[a-z]`
// (lower-case letter), `\w` (letter or digit) and a `{n}` repeat suffix.
// Anchors are ignored; everything else is copied literally.
func ExpandPattern(src *Source, pattern string) string {
	pattern = strings.TrimPrefix(pattern, "^")
	pattern = strings.TrimSuffix(pattern, "$")

	var slots []slot
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			i++
			switch pattern[i] {
			case 'd':
				slots = append(slots, slot{kind: slotDigit})
			case 'w':
				slots = append(slots, slot{kind: slotAlnum})
			default:
				slots = append(slots, slot{kind: slotLiteral, lit: pattern[i]})
			}
		case c == '#':
			slots = append(slots, slot{kind: slotDigit})
		case c == '?':
			slots = append(slots, slot{kind: slotLetter})
		case strings.HasPrefix(pattern[i:], "[A-Z]"):
			slots = append(slots, slot{kind: slotLetter})
			i += len("[A-Z]") - 1
		case strings.HasPrefix(pattern[i:], "[a-z]"):
			slots = append(slots, slot{kind: slotLower})
			i += len("[a-z]") - 1
		case strings.HasPrefix(pattern[i:], "[0-9]"):
			slots = append(slots, slot{kind: slotDigit})
			i += len("[0-9]") - 1
		case c == '{' && len(slots) > 0:
			end := strings.IndexByte(pattern[i:], '}')
			if end < 0 {
				slots = append(slots, slot{kind: slotLiteral, lit: c})
				continue
			}
			n, err := strconv.Atoi(pattern[i+1 : i+end])
			if err != nil || n < 1 {
				slots = append(slots, slot{kind: slotLiteral, lit: c})
				continue
			}
			last := slots[len(slots)-1]
			for k := 1; k < n; k++ {
				slots = append(slots, last)
			}
			i += end
		default:
			slots = append(slots, slot{kind: slotLiteral, lit: c})
		}
	}

	out := make([]byte, len(slots))
	for i, s := range slots {
		switch s.kind {
		case slotDigit:
			out[i] = src.digit()
		case slotLetter:
			out[i] = src.letter()
		case slotLower:
			out[i] = src.letter() + ('a' - 'A')
		case slotAlnum:
			out[i] = src.alnum()
		default:
			out[i] = s.lit
		}
	}
	return string(out)
}
