package reconcile

import (
	"fmt"

	"github.com/David-Botos/unenrolled-users/pkg/cleaner"
	"github.com/David-Botos/unenrolled-users/pkg/model"
)

// JoinResult holds the output of AntiJoin
type JoinResult struct {
	Unenrolled model.Dataset          // External rows with no enrollment match
	External   cleaner.NormalizeStats // Normalization of the external side
	Enrollment cleaner.NormalizeStats // Normalization of the enrollment side
}

// AntiJoin returns every external row whose canonical identifier in externalCol does
// not occur in enrollment's canonical identifiers under enrollmentCol. Rows keep all
// their external columns and come out in post-normalization order.
func AntiJoin(external, enrollment model.Dataset, externalCol, enrollmentCol string) (JoinResult, error) {
	var result JoinResult

	cleanExternal, extStats, err := cleaner.Normalize(external, externalCol)
	if err != nil {
		return result, fmt.Errorf("normalize external data: %w", err)
	}
	result.External = extStats

	cleanEnrollment, enrStats, err := cleaner.Normalize(enrollment, enrollmentCol)
	if err != nil {
		return result, fmt.Errorf("normalize enrollment data: %w", err)
	}
	result.Enrollment = enrStats

	// Only the join column of the enrollment side takes part in the join
	enrolled := cleaner.CanonicalSet(cleanEnrollment.Project(enrollmentCol), enrollmentCol)

	unenrolled := model.Dataset{
		Columns: append([]string(nil), cleanExternal.Columns...),
		Rows:    make([]model.Row, 0),
	}
	for _, row := range cleanExternal.Rows {
		id, _ := row[externalCol].(string)
		if _, ok := enrolled[id]; !ok {
			unenrolled.Rows = append(unenrolled.Rows, row)
		}
	}

	result.Unenrolled = unenrolled
	return result, nil
}
