package reconcile

import "math"

// Summary holds the headline numbers of a reconciliation run
type Summary struct {
	TotalExternalRecords int     `json:"total_external_records"`
	TotalEnrolledRecords int     `json:"total_enrolled_records"`
	TotalUnenrolledUsers int     `json:"total_unenrolled_users"`
	EnrollmentRate       float64 `json:"enrollment_rate"`   // Percent of external records that are enrolled
	UnenrollmentRate     float64 `json:"unenrollment_rate"` // Percent of external records that are not
}

// Summarize computes rates from dataset sizes. Rates are percentages rounded to two
// decimals and are zero when there are no external records.
func Summarize(external, enrolled, unenrolled int) Summary {
	s := Summary{
		TotalExternalRecords: external,
		TotalEnrolledRecords: enrolled,
		TotalUnenrolledUsers: unenrolled,
	}
	if external > 0 {
		s.EnrollmentRate = round2(float64(external-unenrolled) / float64(external) * 100)
		s.UnenrollmentRate = round2(float64(unenrolled) / float64(external) * 100)
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
