// pkg/config/clients.go
package config

import (
	"os"

	"github.com/David-Botos/unenrolled-users/pkg/model"
)

// SheetsConfig maps each data type to a spreadsheet ID
type SheetsConfig struct {
	SheetIDs map[string]string
}

// DriveConfig locates a client's files in a Drive folder
type DriveConfig struct {
	FolderID string
	Patterns map[string]string // Data type to file name substring
}

// FilePattern selects files whose names contain every Include substring and no
// Exclude substring, case-insensitively
type FilePattern struct {
	Include []string
	Exclude []string
}

// FTPSourceConfig locates a client's files on the FTP server
type FTPSourceConfig struct {
	Folder   string
	Patterns map[string]FilePattern
}

// ClientConfig describes one client and where its roster lives. Exactly one of
// Sheets, Drive and FTP is set, matching Source.
type ClientConfig struct {
	ID        string
	Source    model.SourceKind
	DataTypes []string
	Company   string

	Sheets *SheetsConfig
	Drive  *DriveConfig
	FTP    *FTPSourceConfig
}

// Descriptor returns the source-independent description of the client
func (c ClientConfig) Descriptor() model.ClientDescriptor {
	return model.ClientDescriptor{
		ID:        c.ID,
		Source:    c.Source,
		DataTypes: append([]string(nil), c.DataTypes...),
		Company:   c.Company,
	}
}

// LoadClientConfigs returns the built-in clients, with source locations read from
// environment variables
func LoadClientConfigs() []ClientConfig {
	return []ClientConfig{
		{
			ID:        "mato_grosso",
			Source:    model.SourceGoogleSheets,
			DataTypes: []string{"students", "teachers"},
			Company:   "SEDUC-MT: Mato Grosso",
			Sheets: &SheetsConfig{
				SheetIDs: map[string]string{
					"students": os.Getenv("MATO_GROSSO_STUDENTS_SHEET_ID"),
					"teachers": os.Getenv("MATO_GROSSO_TEACHERS_SHEET_ID"),
				},
			},
		},
		{
			ID:        "parana",
			Source:    model.SourceGoogleDrive,
			DataTypes: []string{"students", "teachers"},
			Company:   "SEED-PR: Parana",
			Drive: &DriveConfig{
				FolderID: os.Getenv("PARANA_DRIVE_FOLDER_ID"),
				Patterns: map[string]string{
					"students": "CARGA_ESTUDANTES",
					"teachers": "CARGA_PROFESSORES",
				},
			},
		},
		{
			ID:        "goias",
			Source:    model.SourceFTP,
			DataTypes: []string{"students", "teachers", "teachers_tec", "teachers_with_gls", "other_components"},
			Company:   "SEDUC-GO: Goias",
			FTP: &FTPSourceConfig{
				Folder: getEnv("GOIAS_FTP_FOLDER", "ftp_goenglish"),
				Patterns: map[string]FilePattern{
					"students":         {Include: []string{"relatorio_go_english_alunos"}},
					"teachers":         {Include: []string{"relatorio_go_english_professores_sem_aula_ao_vivo"}},
					"teachers_tec":     {Include: []string{"relatorio_go_english_goias_tec_ao_vivo"}},
					"other_components": {Include: []string{"relatorio_go_english_servidores"}},
					"teachers_with_gls": {
						Include: []string{"relatorio_go_english_professores"},
						Exclude: []string{"sem_aula_ao_vivo"},
					},
				},
			},
		},
	}
}

// Descriptors returns the descriptors of the configured clients
func (c *Config) Descriptors() []model.ClientDescriptor {
	descriptors := make([]model.ClientDescriptor, 0, len(c.Clients))
	for _, client := range c.Clients {
		descriptors = append(descriptors, client.Descriptor())
	}
	return descriptors
}
