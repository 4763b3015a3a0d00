package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// evalLiteralArray evaluates a JS-style literal array containing only
// numbers, single- or double-quoted strings, and nested arrays. Anything
// else (identifiers, calls, objects) is rejected, so a hostile response
// body can never execute or reference code.
func evalLiteralArray(src string) ([]any, error) {
	p := &literalParser{src: src}
	p.skipSpace()
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("literal: trailing data at offset %d", p.pos)
	}
	arr, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("literal: top-level value is not an array")
	}
	return arr, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) parseValue() (any, error) {
	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("literal: unexpected end of input")
	}
	switch c := p.src[p.pos]; {
	case c == '[':
		return p.parseArray()
	case c == '"' || c == '\'':
		return p.parseString(c)
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return nil, fmt.Errorf("literal: unexpected character %q at offset %d", c, p.pos)
	}
}

func (p *literalParser) parseArray() ([]any, error) {
	p.pos++ // consume '['
	items := []any{}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("literal: unterminated array")
		}
		if p.src[p.pos] == ']' {
			p.pos++
			return items, nil
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		items = append(items, value)
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.pos < len(p.src) && p.src[p.pos] == ']' {
			p.pos++
			return items, nil
		}
		return nil, fmt.Errorf("literal: expected ',' or ']' at offset %d", p.pos)
	}
}

func (p *literalParser) parseString(quote byte) (string, error) {
	p.pos++ // consume opening quote
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case quote:
			p.pos++
			return b.String(), nil
		case '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return "", fmt.Errorf("literal: unterminated escape")
			}
			esc := p.src[p.pos]
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'u':
				if p.pos+4 >= len(p.src) {
					return "", fmt.Errorf("literal: truncated \\u escape")
				}
				code, err := strconv.ParseUint(p.src[p.pos+1:p.pos+5], 16, 32)
				if err != nil {
					return "", fmt.Errorf("literal: bad \\u escape: %w", err)
				}
				b.WriteRune(rune(code))
				p.pos += 4
			default:
				b.WriteByte(esc)
			}
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", fmt.Errorf("literal: unterminated string")
}

func (p *literalParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' || (c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	n, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("literal: bad number %q", p.src[start:p.pos])
	}
	return n, nil
}
