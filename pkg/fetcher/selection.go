package fetcher

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/unenrolled-users/pkg/config"
)

// candidate is a file that may hold a client's roster
type candidate struct {
	ID       string // Drive file ID or FTP path
	Name     string
	Modified time.Time
	MimeType string
}

// matches reports whether name satisfies the pattern, case-insensitively
func matches(name string, pattern config.FilePattern) bool {
	lower := strings.ToLower(name)
	for _, inc := range pattern.Include {
		if !strings.Contains(lower, strings.ToLower(inc)) {
			return false
		}
	}
	for _, exc := range pattern.Exclude {
		if strings.Contains(lower, strings.ToLower(exc)) {
			return false
		}
	}
	return true
}

// selectNewest picks the most recently modified candidate; ties go to the name that
// sorts last. Several candidates are never merged, but the choice is logged.
func selectNewest(candidates []candidate, logger *zap.Logger) (candidate, bool) {
	if len(candidates) == 0 {
		return candidate{}, false
	}

	sorted := append([]candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Modified.Equal(sorted[j].Modified) {
			return sorted[i].Modified.After(sorted[j].Modified)
		}
		return sorted[i].Name > sorted[j].Name
	})

	chosen := sorted[0]
	if len(sorted) > 1 {
		names := make([]string, len(sorted))
		for i, c := range sorted {
			names[i] = c.Name
		}
		logger.Warn("Several files match, using the most recent",
			zap.String("chosen", chosen.Name),
			zap.Strings("candidates", names))
	}

	return chosen, true
}
