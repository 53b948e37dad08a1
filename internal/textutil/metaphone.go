package textutil

import "strings"

// Metaphone computes a compact phonetic code for a single word. The encoding
// follows the classic metaphone consonant rules closely enough that common
// label misspellings ("cabernet" / "cabernay") collapse to the same code.
func Metaphone(word string) string {
	word = strings.ToUpper(strings.TrimSpace(FoldDiacritics(word)))
	runes := make([]rune, 0, len(word))
	for _, r := range word {
		if r >= 'A' && r <= 'Z' {
			runes = append(runes, r)
		}
	}
	if len(runes) == 0 {
		return ""
	}

	// Initial-cluster exceptions.
	switch {
	case hasPrefix(runes, "KN"), hasPrefix(runes, "GN"), hasPrefix(runes, "PN"), hasPrefix(runes, "AE"), hasPrefix(runes, "WR"):
		runes = runes[1:]
	case runes[0] == 'X':
		runes[0] = 'S'
	case hasPrefix(runes, "WH"):
		runes = append([]rune{'W'}, runes[2:]...)
	}

	var out []rune
	emit := func(r rune) {
		if len(out) == 0 || out[len(out)-1] != r {
			out = append(out, r)
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		var next, prev rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		if i > 0 {
			prev = runes[i-1]
		}

		// Skip duplicate adjacent letters except C.
		if r == prev && r != 'C' {
			continue
		}

		switch r {
		case 'A', 'E', 'I', 'O', 'U':
			if i == 0 {
				emit(r)
			}
		case 'B':
			if !(i == len(runes)-1 && prev == 'M') {
				emit('B')
			}
		case 'C':
			switch {
			case next == 'H':
				emit('X')
				i++
			case next == 'I' && i+2 < len(runes) && runes[i+2] == 'A':
				emit('X')
			case next == 'I' || next == 'E' || next == 'Y':
				emit('S')
			default:
				emit('K')
			}
		case 'D':
			if next == 'G' && i+2 < len(runes) && (runes[i+2] == 'E' || runes[i+2] == 'I' || runes[i+2] == 'Y') {
				emit('J')
				i++
			} else {
				emit('T')
			}
		case 'G':
			switch {
			case next == 'H' && !isVowelAt(runes, i+2):
				// silent
			case next == 'N':
				// silent
			case next == 'I' || next == 'E' || next == 'Y':
				emit('J')
			default:
				emit('K')
			}
		case 'H':
			if isVowel(prev) && !isVowel(next) {
				// silent
			} else {
				emit('H')
			}
		case 'K':
			if prev != 'C' {
				emit('K')
			}
		case 'P':
			if next == 'H' {
				emit('F')
				i++
			} else {
				emit('P')
			}
		case 'Q':
			emit('K')
		case 'S':
			if next == 'H' {
				emit('X')
				i++
			} else if next == 'I' && i+2 < len(runes) && (runes[i+2] == 'O' || runes[i+2] == 'A') {
				emit('X')
			} else {
				emit('S')
			}
		case 'T':
			if next == 'H' {
				emit('0')
				i++
			} else if next == 'I' && i+2 < len(runes) && (runes[i+2] == 'O' || runes[i+2] == 'A') {
				emit('X')
			} else {
				emit('T')
			}
		case 'V':
			emit('F')
		case 'W', 'Y':
			if isVowel(next) {
				emit(r)
			}
		case 'X':
			emit('K')
			emit('S')
		case 'Z':
			emit('S')
		default:
			emit(r)
		}
	}
	return string(out)
}

// MetaphoneKey encodes every token of a phrase and joins the codes, giving a
// phonetic key for whole wine names.
func MetaphoneKey(phrase string) string {
	tokens := strings.Fields(phrase)
	codes := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if code := Metaphone(token); code != "" {
			codes = append(codes, code)
		}
	}
	return strings.Join(codes, " ")
}

func hasPrefix(runes []rune, prefix string) bool {
	if len(runes) < len(prefix) {
		return false
	}
	for i, r := range prefix {
		if runes[i] != r {
			return false
		}
	}
	return true
}

func isVowel(r rune) bool {
	switch r {
	case 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}

func isVowelAt(runes []rune, i int) bool {
	return i < len(runes) && isVowel(runes[i])
}
