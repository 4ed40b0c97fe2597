package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/David-Botos/unenrolled-users/pkg/config"
	"github.com/David-Botos/unenrolled-users/pkg/model"
)

const googleSheetMimeType = "application/vnd.google-apps.spreadsheet"

// DriveSource reads rosters from CSV files in a Google Drive folder. The file for a
// data type is the newest one whose name contains the data type's pattern.
type DriveSource struct {
	service *drive.Service
	cfg     *config.DriveConfig
	logger  *zap.Logger
}

// NewDriveSource creates a Drive source
func NewDriveSource(ctx context.Context, cfg *config.DriveConfig, logger *zap.Logger, opts ...option.ClientOption) (*DriveSource, error) {
	if cfg == nil {
		return nil, errors.New("drive configuration is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive client: %w", err)
	}

	return &DriveSource{
		service: service,
		cfg:     cfg,
		logger:  logger.Named("drive"),
	}, nil
}

// Kind implements Source
func (s *DriveSource) Kind() model.SourceKind {
	return model.SourceGoogleDrive
}

// Fetch implements Source
func (s *DriveSource) Fetch(ctx context.Context, dataType string) (model.Dataset, error) {
	pattern := s.cfg.Patterns[dataType]
	if s.cfg.FolderID == "" || pattern == "" {
		return model.Dataset{}, fmt.Errorf("no Drive configuration for data type %s", dataType)
	}

	s.logger.Info("Searching Drive folder",
		zap.String("data_type", dataType),
		zap.String("pattern", pattern))

	query := fmt.Sprintf("'%s' in parents and name contains '%s' and trashed = false",
		escapeQueryValue(s.cfg.FolderID), escapeQueryValue(pattern))

	list, err := s.service.Files.List().
		Q(query).
		OrderBy("modifiedTime desc").
		Fields("files(id, name, mimeType, modifiedTime)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to list Drive folder: %w", err)
	}

	candidates := make([]candidate, 0, len(list.Files))
	for _, f := range list.Files {
		modified, _ := time.Parse(time.RFC3339, f.ModifiedTime)
		candidates = append(candidates, candidate{
			ID:       f.Id,
			Name:     f.Name,
			Modified: modified,
			MimeType: f.MimeType,
		})
	}

	file, ok := selectNewest(candidates, s.logger)
	if !ok {
		return model.Dataset{}, fmt.Errorf("no files found matching pattern '%s' in folder %s", pattern, s.cfg.FolderID)
	}
	s.logger.Info("Downloading Drive file", zap.String("name", file.Name), zap.String("id", file.ID))

	resp, err := s.download(ctx, file)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to download %s: %w", file.Name, err)
	}
	defer resp.Body.Close()

	ds, err := ParseCSV(resp.Body, UTF8CSV)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to parse %s: %w", file.Name, err)
	}

	s.logger.Info("Fetched Drive file", zap.String("name", file.Name), zap.Int("rows", ds.Len()))
	return ds, nil
}

// download fetches a file's content, exporting native spreadsheets as CSV
func (s *DriveSource) download(ctx context.Context, file candidate) (*http.Response, error) {
	if file.MimeType == googleSheetMimeType {
		return s.service.Files.Export(file.ID, "text/csv").Context(ctx).Download()
	}
	return s.service.Files.Get(file.ID).SupportsAllDrives(true).Context(ctx).Download()
}

func escapeQueryValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}
