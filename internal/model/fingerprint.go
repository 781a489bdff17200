package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// DomainScan is the domain prefix for scan fingerprints. The version suffix
// leaves room to migrate the hashing scheme without colliding with old values.
const DomainScan = "scanflow/scan/v1"

// ScanFingerprint computes a content hash identifying "the same physical scan":
// the same operator applying the same action to the same package. The queue
// uses it to coalesce an offline double-tap into a single pending action.
//
// Metadata timestamps are intentionally excluded; two taps milliseconds apart
// are still one scan. Geolocation is excluded for the same reason.
func ScanFingerprint(code string, action ActionType, op Operator) (string, error) {
	canonical, err := marshalCanonical(map[string]any{
		"code":     code,
		"action":   string(action),
		"operator": op.ID,
		"role":     string(op.Role),
	})
	if err != nil {
		return "", fmt.Errorf("scan fingerprint: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DomainScan))
	h.Write([]byte{0x00}) // null separator removes domain/payload boundary ambiguity
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// marshalCanonical produces deterministic JSON for hashing: object keys are
// sorted, strings are NFC normalized, HTML characters are not escaped, and
// floats and nulls are rejected so the encoding never depends on formatting.
func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalCanonicalString(val)
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case int:
		return []byte(strconv.FormatInt(int64(val), 10)), nil
	case int64:
		return []byte(strconv.FormatInt(val, 10)), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalCanonical(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := marshalCanonicalString(k)
			if err != nil {
				return nil, fmt.Errorf("object key %q: %w", k, err)
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := marshalCanonical(val[k])
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalString encodes an NFC-normalized JSON string without HTML
// escaping, so the bytes depend only on the content.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder appends a trailing newline; strip it.
	result := buf.Bytes()
	if n := len(result); n > 0 && result[n-1] == '\n' {
		result = result[:n-1]
	}
	return result, nil
}
