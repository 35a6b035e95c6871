package parser

import (
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// numericOperand peels unary +/- off a numeric literal and returns the literal
// node together with the accumulated sign.
func numericOperand(node *sitter.Node, source []byte) (*sitter.Node, bool, error) {
	negative := false
	for node != nil && node.Kind() == "unary_operator" {
		op := sliceContent(node.ChildByFieldName("operator"), source)
		switch op {
		case "-":
			negative = !negative
		case "+":
		default:
			return nil, false, syntaxErrorAt(node, "unsupported unary operator %s in literal", op)
		}
		node = node.ChildByFieldName("argument")
	}
	for node != nil && node.Kind() == "parenthesized_expression" {
		node = firstNamedChild(node)
	}
	if node == nil {
		return nil, false, syntaxErrorAt(nil, "missing literal")
	}
	return node, negative, nil
}

func (l *lowerer) integerLiteral(arg *sitter.Node) (*big.Int, error) {
	node, negative, err := numericOperand(arg, l.source)
	if err != nil {
		return nil, err
	}
	if node.Kind() != "integer" {
		return nil, syntaxErrorAt(arg, "IntegerLiteral expects an integer, got %s", node.Kind())
	}
	value, ok := parseInteger(sliceContent(node, l.source))
	if !ok {
		return nil, syntaxErrorAt(node, "invalid integer literal %s", sliceContent(node, l.source))
	}
	if negative {
		value.Neg(value)
	}
	return value, nil
}

func (l *lowerer) floatLiteral(arg *sitter.Node) (float64, error) {
	node, negative, err := numericOperand(arg, l.source)
	if err != nil {
		return 0, err
	}
	text := sliceContent(node, l.source)
	var value float64
	switch node.Kind() {
	case "float":
		f, ok := parseFloat(text)
		if !ok {
			return 0, syntaxErrorAt(node, "invalid float literal %s", text)
		}
		value = f
	case "integer":
		bi, ok := parseInteger(text)
		if !ok {
			return 0, syntaxErrorAt(node, "invalid integer literal %s", text)
		}
		value, _ = new(big.Float).SetInt(bi).Float64()
	default:
		return 0, syntaxErrorAt(arg, "FloatLiteral expects a number, got %s", node.Kind())
	}
	if negative {
		value = -value
	}
	return value, nil
}

func (l *lowerer) stringLiteral(arg *sitter.Node) (string, error) {
	switch arg.Kind() {
	case "string":
		return decodeString(arg, l.source)
	case "concatenated_string":
		var b strings.Builder
		for _, part := range namedChildren(arg) {
			s, err := decodeString(part, l.source)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		}
		return b.String(), nil
	default:
		return "", syntaxErrorAt(arg, "expected a string literal, got %s", arg.Kind())
	}
}

// parseInteger accepts Python integer syntax: decimal, 0x/0o/0b prefixes and
// underscores between digits.
func parseInteger(text string) (*big.Int, bool) {
	if text == "" || strings.HasSuffix(text, "_") || strings.Contains(text, "__") {
		return nil, false
	}
	if last := text[len(text)-1]; last == 'j' || last == 'J' || last == 'l' || last == 'L' {
		return nil, false
	}
	digits := strings.ReplaceAll(text, "_", "")
	// Python rejects leading zeros on non-zero decimals.
	if len(digits) > 1 && digits[0] == '0' && isDecimal(digits) && strings.Trim(digits, "0") != "" {
		return nil, false
	}
	base := 10
	if len(digits) > 1 && digits[0] == '0' {
		switch digits[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 10 {
			digits = digits[2:]
		}
	}
	if digits == "" {
		return nil, false
	}
	return new(big.Int).SetString(digits, base)
}

func isDecimal(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return false
		}
	}
	return true
}

func parseFloat(text string) (float64, bool) {
	if text == "" || strings.HasSuffix(text, "_") || strings.ContainsAny(text, "jJ") {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
	if err != nil {
		// Overflow still yields ±Inf, which Python also produces for such literals.
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return f, true
		}
		return 0, false
	}
	return f, true
}

func decodeString(node *sitter.Node, source []byte) (string, error) {
	text := sliceContent(node, source)
	prefixEnd := strings.IndexAny(text, `'"`)
	if prefixEnd < 0 {
		return "", syntaxErrorAt(node, "malformed string literal")
	}
	prefix := strings.ToLower(text[:prefixEnd])
	raw := false
	for _, c := range prefix {
		switch c {
		case 'r':
			raw = true
		case 'u':
		default:
			return "", syntaxErrorAt(node, "string prefix %q is not supported", text[:prefixEnd])
		}
	}
	body := text[prefixEnd:]
	quote := body[:1]
	if strings.HasPrefix(body, strings.Repeat(quote, 3)) && len(body) >= 6 {
		quote = strings.Repeat(quote, 3)
	}
	if !strings.HasSuffix(body, quote) || len(body) < 2*len(quote) {
		return "", syntaxErrorAt(node, "unterminated string literal")
	}
	body = body[len(quote) : len(body)-len(quote)]
	if raw {
		return body, nil
	}
	decoded, ok := unescape(body)
	if !ok {
		return "", syntaxErrorAt(node, "invalid escape sequence in string literal")
	}
	return decoded, nil
}

var simpleEscapes = map[byte]string{
	'\\': `\`, '\'': `'`, '"': `"`,
	'a': "\a", 'b': "\b", 'f': "\f", 'n': "\n", 'r': "\r", 't': "\t", 'v': "\v",
	'\n': "",
}

// unescape decodes Python escape sequences. Unknown escapes are kept verbatim,
// as Python does.
func unescape(s string) (string, bool) {
	if !strings.ContainsRune(s, '\\') {
		return s, true
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(s) {
			return "", false
		}
		next := s[i+1]
		if rep, ok := simpleEscapes[next]; ok {
			b.WriteString(rep)
			i += 2
			continue
		}
		switch {
		case next >= '0' && next <= '7':
			j := i + 1
			for j < len(s) && j < i+4 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint(s[i+1:j], 8, 32)
			b.WriteRune(rune(n))
			i = j
		case next == 'x' || next == 'u' || next == 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[next]
			if i+2+width > len(s) {
				return "", false
			}
			n, err := strconv.ParseUint(s[i+2:i+2+width], 16, 32)
			if err != nil || n > utf8.MaxRune {
				return "", false
			}
			b.WriteRune(rune(n))
			i += 2 + width
		case next == 'N':
			return "", false
		default:
			b.WriteByte('\\')
			b.WriteByte(next)
			i += 2
		}
	}
	return b.String(), true
}
