package reconcile

import (
	"strings"
	"unicode"

	"github.com/David-Botos/unenrolled-users/pkg/model"
)

// DefaultJoinPatterns is the priority list for join column detection
var DefaultJoinPatterns = []string{"email"}

// ResolveJoinColumn picks the join column from columns.
// Patterns are tried in priority order; within a pattern, columns are tried in the
// order given, and the first match wins. With no patterns, DefaultJoinPatterns is used.
//
// A column matches when its folded name contains the folded pattern. Folding
// lower-cases and drops everything but letters and digits, so "E-MAIL" and
// "e_mail_aluno" both match "email".
func ResolveJoinColumn(columns []string, patterns ...string) (string, error) {
	if len(patterns) == 0 {
		patterns = DefaultJoinPatterns
	}

	folded := make([]string, len(columns))
	for i, col := range columns {
		folded[i] = foldColumnName(col)
	}

	for _, pattern := range patterns {
		p := foldColumnName(pattern)
		if p == "" {
			continue
		}
		for i, col := range columns {
			if strings.Contains(folded[i], p) {
				return col, nil
			}
		}
	}

	return "", model.Errorf(model.KindColumnNotFound, "resolve_join_column",
		"no column matching %v found in columns: %v", patterns, columns)
}

func foldColumnName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
