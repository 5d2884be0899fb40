package cache

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Keyer derives identity strings from request keys.
//
// Contract:
//   - Determinism: equivalent keys must produce the same string, regardless
//     of page-number order or map iteration order.
//   - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(key RequestKey) (string, error)
}

// DefaultKeyer implements the storyId|kind|pages:..|params:.. format.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key derives the identity string for key.
func (k *DefaultKeyer) Key(key RequestKey) (string, error) {
	return DeriveKey(key)
}

var _ Keyer = (*DefaultKeyer)(nil)

// DeriveKey derives the identity string for key.
//
// Format: <storyId>|<kind>[|pages:<n,...>][|params:<hash>]
//
// Page numbers are de-duplicated and sorted numerically. Modified parameters
// are serialized as canonical JSON (object keys sorted at every depth) and
// reduced with HashString. The hash is not collision resistant.
func DeriveKey(key RequestKey) (string, error) {
	parts := []string{key.StoryID, string(key.Kind)}

	if len(key.PageNumbers) > 0 {
		pages := slices.Clone(key.PageNumbers)
		slices.Sort(pages)
		pages = slices.Compact(pages)
		nums := make([]string, len(pages))
		for i, n := range pages {
			nums[i] = strconv.Itoa(n)
		}
		parts = append(parts, "pages:"+strings.Join(nums, ","))
	}

	if len(key.ModifiedParams) > 0 {
		canonical, err := canonicalize(map[string]any(key.ModifiedParams))
		if err != nil {
			return "", fmt.Errorf("cache: failed to canonicalize params: %w", err)
		}
		parts = append(parts, "params:"+HashString(string(canonical)))
	}

	return strings.Join(parts, "|"), nil
}

// HashString is a 32-bit polynomial hash (h = h*31 + c) over the UTF-16 code
// units of s, rendered as the base-36 absolute value.
func HashString(s string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return strconv.FormatInt(abs, 36)
}

// canonicalize produces a deterministic JSON representation of v. Values
// are first normalized through encoding/json so that structs and maps with
// the same fields hash identically.
func canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return canonicalizeValue(generic)
}

func canonicalizeValue(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalizeValue(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}
		valBytes, err := canonicalizeValue(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, ']'), nil
}
