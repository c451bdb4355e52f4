package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// NumericalPrecision is the fixed decimal precision applied to every float
// before hashing. Platforms disagree about double formatting near the 15th
// decimal place; rounding to 12 keeps the digest identical across OS and
// architecture.
const NumericalPrecision = 12

// CanonicalHash computes the deterministic SHA-256 digest of any value:
// map keys are ordered lexicographically, floats are rounded to
// NumericalPrecision and rendered as fixed-point strings, negative zero is
// neutralized, and non-finite values become the literals "NaN",
// "Infinity" and "-Infinity". Two semantically equal values always hash to
// the same 64-character lowercase hex digest.
func CanonicalHash(v any) (string, error) {
	b, err := CanonicalSerialize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalSerialize returns the canonical JSON byte representation of a
// value, the input to CanonicalHash.
func CanonicalSerialize(v any) ([]byte, error) {
	tree, err := normalize(v)
	if err != nil {
		return nil, err
	}
	// encoding/json writes map keys in sorted order and emits no
	// insignificant whitespace, which is exactly the canonical form.
	b, err := json.Marshal(tree)
	if err != nil {
		return nil, errors.Wrap(err, "canonical serialization failed")
	}
	return b, nil
}

func normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return t, nil
	case string:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case float32:
		return normalizeFloat(float64(t)), nil
	case float64:
		return normalizeFloat(t), nil
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano), nil
	case []float64:
		out := make([]any, len(t))
		for i, f := range t {
			out[i] = normalizeFloat(f)
		}
		return out, nil
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(t))
		for _, k := range keys {
			n, err := normalize(t[k])
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	default:
		// Structs and other composites go through a JSON round trip so
		// their tagged fields are normalized like plain maps.
		b, err := json.Marshal(t)
		if err != nil {
			return nil, errors.Wrapf(err, "value of type %T cannot be canonically serialized", v)
		}
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			return nil, errors.Wrapf(err, "value of type %T cannot be canonically serialized", v)
		}
		return normalize(generic)
	}
}

func normalizeFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'f', NumericalPrecision, 64)
	// Neutralize negative zero after rounding.
	if s == negativeZero {
		s = s[1:]
	}
	return s
}

var negativeZero = "-0." + strings.Repeat("0", NumericalPrecision)
