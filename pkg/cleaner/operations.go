// pkg/cleaner/operations.go
package cleaner

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/David-Botos/unenrolled-users/pkg/model"
)

// Canonical derives the canonical identifier of a raw value.
// The second return is false when the value is null or canonicalizes to the empty
// string; callers must drop such values rather than compare them.
func Canonical(value interface{}) (string, bool) {
	// Nulls are rejected before any string coercion so they can never turn into
	// placeholder text such as "<nil>" or "NaN".
	if model.IsNull(value) {
		return "", false
	}

	canonical := canonicalString(toString(value))
	if canonical == "" {
		return "", false
	}
	return canonical, true
}

// canonicalString lower-cases s and removes every Unicode whitespace rune,
// including non-breaking spaces and tabs, not just ASCII spaces.
func canonicalString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// toString converts an interface to string
func toString(v interface{}) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case fmt.Stringer:
		return val.String()
	default:
		// Use Sprint as a fallback
		return fmt.Sprintf("%v", val)
	}
}
