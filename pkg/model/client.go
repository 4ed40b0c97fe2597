// pkg/model/client.go
package model

// SourceKind identifies where a client's external roster comes from
type SourceKind string

const (
	SourceGoogleSheets SourceKind = "google_sheets"
	SourceGoogleDrive  SourceKind = "google_drive"
	SourceFTP          SourceKind = "ftp"
)

// Valid reports whether the kind is one of the supported sources
func (k SourceKind) Valid() bool {
	switch k {
	case SourceGoogleSheets, SourceGoogleDrive, SourceFTP:
		return true
	}
	return false
}

// ClientDescriptor describes a client tenant
type ClientDescriptor struct {
	ID        string     // Unique client identifier (e.g. "goias")
	Source    SourceKind // External roster source
	DataTypes []string   // Supported data types, e.g. ["students", "teachers"]
	Company   string     // Company value used to filter enrollment rows in the warehouse
}

// SupportsDataType reports whether dataType is in the client's catalog
func (c ClientDescriptor) SupportsDataType(dataType string) bool {
	for _, dt := range c.DataTypes {
		if dt == dataType {
			return true
		}
	}
	return false
}
