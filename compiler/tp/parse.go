package tp

import (
	"strconv"
	"strings"

	"tlog.app/go/errors"
)

// Parse reads a type in the textual form produced by String.
func Parse(s string) (Type, error) {
	t, i, err := parse(s, skip(s, 0))
	if err != nil {
		return nil, err
	}

	if i = skip(s, i); i != len(s) {
		return nil, errors.New("unexpected %q after type at pos %d", s[i:], i)
	}

	return t, nil
}

func parse(s string, i int) (Type, int, error) {
	if i >= len(s) {
		return nil, i, errors.New("type expected at pos %d", i)
	}

	switch {
	case strings.HasPrefix(s[i:], "<{"):
		t, i, err := parseStruct(s, i+1)
		if err != nil {
			return nil, i, err
		}

		if i >= len(s) || s[i] != '>' {
			return nil, i, errors.New("packed struct: '>' expected at pos %d", i)
		}

		t.Packed = true

		return t, i + 1, nil
	case s[i] == '{':
		return parseStruct(s, i)
	case s[i] == '[':
		n, x, i, err := parseSeq(s, i, ']')
		if err != nil {
			return nil, i, errors.Wrap(err, "array")
		}

		return Array{X: x, Len: n}, i, nil
	case s[i] == '<':
		n, x, i, err := parseSeq(s, i, '>')
		if err != nil {
			return nil, i, errors.Wrap(err, "vector")
		}

		return Vector{X: x, Len: n}, i, nil
	}

	st := i
	for i < len(s) && (isLetter(s[i]) || isDigit(s[i])) {
		i++
	}

	w := s[st:i]

	switch w {
	case "void":
		return Void{}, i, nil
	case "label":
		return Label{}, i, nil
	case "ptr":
		return Ptr{}, i, nil
	case "half":
		return Float{Bits: 16}, i, nil
	case "float":
		return Float{Bits: 32}, i, nil
	case "double":
		return Float{Bits: 64}, i, nil
	}

	if len(w) > 1 && w[0] == 'i' {
		bits, err := strconv.ParseInt(w[1:], 10, 16)
		if err == nil && bits > 0 {
			return Int{Bits: int16(bits)}, i, nil
		}
	}

	return nil, st, errors.New("unknown type %q at pos %d", w, st)
}

func parseStruct(s string, i int) (Struct, int, error) {
	var x Struct

	i = skip(s, i+1)

	if i < len(s) && s[i] == '}' {
		return x, i + 1, nil
	}

	for {
		f, j, err := parse(s, i)
		if err != nil {
			return x, j, errors.Wrap(err, "struct field %d", len(x.Fields))
		}

		x.Fields = append(x.Fields, f)

		i = skip(s, j)

		if i >= len(s) {
			return x, i, errors.New("struct: unexpected end")
		}

		switch s[i] {
		case ',':
			i = skip(s, i+1)
		case '}':
			return x, i + 1, nil
		default:
			return x, i, errors.New("struct: unexpected %q at pos %d", s[i], i)
		}
	}
}

func parseSeq(s string, i int, end byte) (n int, x Type, _ int, err error) {
	i = skip(s, i+1)

	st := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}

	n, err = strconv.Atoi(s[st:i])
	if err != nil {
		return 0, nil, i, errors.Wrap(err, "length")
	}

	i = skip(s, i)

	if !strings.HasPrefix(s[i:], "x") {
		return 0, nil, i, errors.New("'x' expected at pos %d", i)
	}

	x, i, err = parse(s, skip(s, i+1))
	if err != nil {
		return 0, nil, i, errors.Wrap(err, "element")
	}

	i = skip(s, i)

	if i >= len(s) || s[i] != end {
		return 0, nil, i, errors.New("%q expected at pos %d", end, i)
	}

	return n, x, i + 1, nil
}

func skip(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}

	return i
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
