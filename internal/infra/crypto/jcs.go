package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Canonical JSON (RFC 8785 profile) is the byte form every golden-thread
// hash and status-response signature is computed over: object keys sorted,
// no insignificant whitespace, numbers in their shortest ES6 form. Two
// encodings of the same document always canonicalize to identical bytes.

// CanonicalizeJSON re-encodes a JSON document into its canonical form.
func CanonicalizeJSON(input []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, errors.New("invalid JSON: trailing data")
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var b bytes.Buffer
	if err := encodeValue(&b, doc); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// CanonicalizeAny canonicalizes any JSON-marshalable value. Raw JSON passes
// straight through re-encoding; everything else is marshaled first.
func CanonicalizeAny(v any) ([]byte, error) {
	switch raw := v.(type) {
	case json.RawMessage:
		return CanonicalizeJSON(raw)
	case []byte:
		return CanonicalizeJSON(raw)
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return CanonicalizeJSON(encoded)
}

// encodeValue handles exactly the types a UseNumber decoder produces.
func encodeValue(b *bytes.Buffer, v any) error {
	switch value := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(value))
	case string:
		encodeString(b, value)
	case json.Number:
		formatted, err := formatNumber(value)
		if err != nil {
			return err
		}
		b.WriteString(formatted)
	case map[string]any:
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			encodeString(b, key)
			b.WriteByte(':')
			if err := encodeValue(b, value[key]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range value {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encodeValue(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	default:
		return fmt.Errorf("unsupported JSON value of type %T", v)
	}
	return nil
}

func encodeString(b *bytes.Buffer, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\b':
			b.WriteString(`\b`)
		case r == '\f':
			b.WriteString(`\f`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}

// formatNumber prints the shortest ES6 representation: positional notation
// inside [1e-6, 1e21), exponent form outside it, integral values without a
// fraction (10.0 encodes as 10).
func formatNumber(n json.Number) (string, error) {
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return "", fmt.Errorf("invalid JSON number %q: %w", n, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite JSON number %q", n)
	}
	if f == 0 {
		return "0", nil
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	out := strconv.FormatFloat(f, 'e', -1, 64)
	out = strings.Replace(out, "e+0", "e", 1)
	out = strings.Replace(out, "e+", "e", 1)
	out = strings.Replace(out, "e-0", "e-", 1)
	return out, nil
}
