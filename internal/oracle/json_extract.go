package oracle

import "strings"

// ExtractFirstObject devuelve el primer objeto JSON balanceado dentro del texto,
// o "" si no hay ninguno.
func ExtractFirstObject(input string) string {
	return extractBalanced(input, '{', '}')
}

// ExtractFirstArray devuelve el primer array JSON balanceado dentro del texto.
func ExtractFirstArray(input string) string {
	return extractBalanced(input, '[', ']')
}

func extractBalanced(input string, open, close byte) string {
	start := strings.IndexByte(input, open)
	if start == -1 {
		return ""
	}

	inString := false
	escape := false
	depth := 0

	for i := start; i < len(input); i++ {
		ch := input[i]

		if inString {
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
			if depth < 0 {
				return ""
			}
		}
	}

	return ""
}
