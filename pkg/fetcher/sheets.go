package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/David-Botos/unenrolled-users/pkg/config"
	"github.com/David-Botos/unenrolled-users/pkg/model"
)

// SheetsSource reads rosters from Google Sheets, one spreadsheet per data type.
// The first worksheet is read and its first row is the header.
type SheetsSource struct {
	service *sheets.Service
	cfg     *config.SheetsConfig
	logger  *zap.Logger
}

// NewSheetsSource creates a Sheets source
func NewSheetsSource(ctx context.Context, cfg *config.SheetsConfig, logger *zap.Logger, opts ...option.ClientOption) (*SheetsSource, error) {
	if cfg == nil {
		return nil, errors.New("sheets configuration is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets client: %w", err)
	}

	return &SheetsSource{
		service: service,
		cfg:     cfg,
		logger:  logger.Named("sheets"),
	}, nil
}

// Kind implements Source
func (s *SheetsSource) Kind() model.SourceKind {
	return model.SourceGoogleSheets
}

// Fetch implements Source
func (s *SheetsSource) Fetch(ctx context.Context, dataType string) (model.Dataset, error) {
	sheetID := s.cfg.SheetIDs[dataType]
	if sheetID == "" {
		return model.Dataset{}, fmt.Errorf("no sheet ID configured for data type %s", dataType)
	}

	s.logger.Info("Fetching Google Sheet",
		zap.String("data_type", dataType),
		zap.String("sheet_id", sheetID))

	spreadsheet, err := s.service.Spreadsheets.Get(sheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to open spreadsheet %s: %w", sheetID, err)
	}
	if len(spreadsheet.Sheets) == 0 || spreadsheet.Sheets[0].Properties == nil {
		return model.Dataset{}, fmt.Errorf("spreadsheet %s has no worksheets", sheetID)
	}
	title := spreadsheet.Sheets[0].Properties.Title

	values, err := s.service.Spreadsheets.Values.Get(sheetID, quoteSheetTitle(title)).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to read worksheet %q: %w", title, err)
	}

	ds := datasetFromValues(values.Values)
	s.logger.Info("Fetched Google Sheet",
		zap.String("worksheet", title),
		zap.Int("rows", ds.Len()))

	return ds, nil
}

// quoteSheetTitle renders a worksheet title as an A1 range covering the whole sheet
func quoteSheetTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// datasetFromValues turns a grid whose first row is the header into a Dataset.
// Missing and empty cells are null; blank rows are skipped.
func datasetFromValues(grid [][]interface{}) model.Dataset {
	if len(grid) == 0 {
		return model.NewDataset()
	}

	header := make([]string, len(grid[0]))
	for i, v := range grid[0] {
		header[i] = fmt.Sprint(v)
	}
	ds := model.NewDataset(uniqueColumns(header)...)

	for _, values := range grid[1:] {
		row := make(model.Row, len(ds.Columns))
		blank := true
		for i, col := range ds.Columns {
			var v interface{}
			if i < len(values) {
				v = values[i]
			}
			if s, ok := v.(string); ok && s == "" {
				v = nil
			}
			if v != nil {
				blank = false
			}
			row[col] = v
		}
		if !blank {
			ds.Rows = append(ds.Rows, row)
		}
	}

	return ds
}
