package store

import (
	"fmt"
	"strconv"
	"strings"
)

// encodeVector converts a []float64 into pgvector's text literal,
// e.g. [0.1,-0.2,0.3]. The literal is bound as a parameter and cast with
// ::vector in SQL.
func encodeVector(v []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}

// decodeVector parses a vector column value. Depending on driver and column
// type the value arrives as pgvector text ("[0.1,0.2]"), a Postgres float
// array ("{0.1,0.2}") or nil for pending rows. nil decodes to a nil slice,
// not an error; a null embedding is a defined state.
func decodeVector(src any) ([]float64, error) {
	var s string
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return nil, fmt.Errorf("unsupported vector column type %T", src)
	}

	s = strings.TrimSpace(s)
	if s == "" || s == "[]" || s == "{}" {
		return nil, nil
	}
	if len(s) < 2 {
		return nil, fmt.Errorf("malformed vector literal %q", s)
	}
	switch {
	case s[0] == '[' && s[len(s)-1] == ']':
		s = s[1 : len(s)-1]
	case s[0] == '{' && s[len(s)-1] == '}':
		s = s[1 : len(s)-1]
	default:
		return nil, fmt.Errorf("malformed vector literal %q", s)
	}

	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed vector element %q: %w", p, err)
		}
		out[i] = f
	}
	return out, nil
}
