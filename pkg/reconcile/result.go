package reconcile

import (
	"encoding/json"
	"time"

	"github.com/David-Botos/unenrolled-users/pkg/model"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metadata describes the inputs of a reconciliation run
type Metadata struct {
	Client               string
	DataType             string
	ExternalRecordsTotal int
	EnrolledRecordsTotal int
	JoinColumnExternal   string
	JoinColumnEnrollment string
	Company              string
}

// Result is the response of a reconciliation run. Its JSON form depends on Status:
// success carries counts and rows, error carries a message.
type Result struct {
	Status          string
	UnenrolledUsers []map[string]interface{}
	Message         string
	Timestamp       time.Time
	Metadata        Metadata

	// Err is the failure behind an error result; it is not serialized
	Err error
}

// TotalUnenrolledUsers returns the number of unenrolled rows
func (r Result) TotalUnenrolledUsers() int {
	return len(r.UnenrolledUsers)
}

// ErrorKind returns the kind of the failure behind an error result
func (r Result) ErrorKind() model.ErrorKind {
	return model.KindOf(r.Err)
}

type successMetadata struct {
	Client               string `json:"client"`
	DataType             string `json:"data_type"`
	ExternalRecordsTotal int    `json:"external_records_total"`
	EnrolledRecordsTotal int    `json:"enrolled_records_total"`
	JoinColumnExternal   string `json:"join_column_external"`
	JoinColumnEnrollment string `json:"join_column_enrollment"`
	SnowflakeCompany     string `json:"snowflake_company"`
}

type successBody struct {
	Status               string                   `json:"status"`
	TotalUnenrolledUsers int                      `json:"total_unenrolled_users"`
	UnenrolledUsers      []map[string]interface{} `json:"unenrolled_users"`
	Timestamp            string                   `json:"timestamp"`
	Metadata             successMetadata          `json:"metadata"`
}

type errorMetadata struct {
	Client           string `json:"client"`
	DataType         string `json:"data_type"`
	SnowflakeCompany string `json:"snowflake_company,omitempty"`
}

type errorBody struct {
	Status    string        `json:"status"`
	Message   string        `json:"message"`
	Timestamp string        `json:"timestamp"`
	Metadata  errorMetadata `json:"metadata"`
}

// MarshalJSON renders the response contract
func (r Result) MarshalJSON() ([]byte, error) {
	ts := r.Timestamp.Format(time.RFC3339Nano)

	if r.Status != StatusSuccess {
		return json.Marshal(errorBody{
			Status:    StatusError,
			Message:   r.Message,
			Timestamp: ts,
			Metadata: errorMetadata{
				Client:           r.Metadata.Client,
				DataType:         r.Metadata.DataType,
				SnowflakeCompany: r.Metadata.Company,
			},
		})
	}

	users := r.UnenrolledUsers
	if users == nil {
		users = []map[string]interface{}{}
	}
	return json.Marshal(successBody{
		Status:               StatusSuccess,
		TotalUnenrolledUsers: len(users),
		UnenrolledUsers:      users,
		Timestamp:            ts,
		Metadata: successMetadata{
			Client:               r.Metadata.Client,
			DataType:             r.Metadata.DataType,
			ExternalRecordsTotal: r.Metadata.ExternalRecordsTotal,
			EnrolledRecordsTotal: r.Metadata.EnrolledRecordsTotal,
			JoinColumnExternal:   r.Metadata.JoinColumnExternal,
			JoinColumnEnrollment: r.Metadata.JoinColumnEnrollment,
			SnowflakeCompany:     r.Metadata.Company,
		},
	})
}

// AssembleInput gathers everything a success result is built from
type AssembleInput struct {
	Client               string
	DataType             string
	Company              string
	External             model.Dataset // External data after pre-filtering
	Enrollment           model.Dataset // The client's enrollment data
	Unenrolled           model.Dataset
	JoinColumnExternal   string
	JoinColumnEnrollment string
}

// Assemble builds a success result
func Assemble(in AssembleInput, now time.Time) Result {
	return Result{
		Status:          StatusSuccess,
		UnenrolledUsers: in.Unenrolled.Records(),
		Timestamp:       now,
		Metadata: Metadata{
			Client:               in.Client,
			DataType:             in.DataType,
			ExternalRecordsTotal: in.External.Len(),
			EnrolledRecordsTotal: in.Enrollment.Len(),
			JoinColumnExternal:   in.JoinColumnExternal,
			JoinColumnEnrollment: in.JoinColumnEnrollment,
			Company:              in.Company,
		},
	}
}

// AssembleError builds an error result. company may be empty when it could not be
// resolved.
func AssembleError(client, dataType, company string, err error, now time.Time) Result {
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}

	return Result{
		Status:    StatusError,
		Message:   message,
		Timestamp: now,
		Metadata: Metadata{
			Client:   client,
			DataType: dataType,
			Company:  company,
		},
		Err: err,
	}
}
