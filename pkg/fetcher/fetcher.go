// Package fetcher retrieves client rosters from their external systems.
//
// Each client is bound once, at startup, to a Source for its kind of system
// (spreadsheet, file store or FTP). The Router dispatches by client ID and reports
// every failure as a fetch error.
package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/David-Botos/unenrolled-users/pkg/config"
	"github.com/David-Botos/unenrolled-users/pkg/model"
)

// Source fetches one client's roster for a data type
type Source interface {
	Kind() model.SourceKind
	Fetch(ctx context.Context, dataType string) (model.Dataset, error)
}

// Router maps client IDs to their sources
type Router struct {
	mu      sync.RWMutex
	sources map[string]Source
	logger  *zap.Logger
}

// NewRouter creates an empty router
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		sources: make(map[string]Source),
		logger:  logger.Named("fetcher"),
	}
}

// Register binds a client to its source
func (r *Router) Register(clientID string, source Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[clientID] = source
}

// FetchExternal fetches the client's roster for dataType
func (r *Router) FetchExternal(ctx context.Context, clientID, dataType string) (model.Dataset, error) {
	r.mu.RLock()
	source, ok := r.sources[clientID]
	r.mu.RUnlock()

	if !ok {
		return model.Dataset{}, model.Errorf(model.KindFetch, "fetch_external",
			"no external source configured for client %s", clientID)
	}

	start := time.Now()
	ds, err := source.Fetch(ctx, dataType)
	if err != nil {
		r.logger.Error("Failed to fetch external data",
			zap.String("client", clientID),
			zap.String("data_type", dataType),
			zap.String("source", string(source.Kind())),
			zap.Error(err))
		return model.Dataset{}, model.NewError(model.KindFetch, "fetch_external",
			fmt.Errorf("%s %s from %s: %w", clientID, dataType, source.Kind(), err))
	}

	r.logger.Info("Fetched external data",
		zap.String("client", clientID),
		zap.String("data_type", dataType),
		zap.String("source", string(source.Kind())),
		zap.Int("rows", ds.Len()),
		zap.Duration("duration", time.Since(start)))

	return ds, nil
}

// BuildRouter creates a source for every configured client. Google services share
// one service-account token source; extra options are passed to them as well.
func BuildRouter(ctx context.Context, cfg *config.Config, logger *zap.Logger, googleOpts ...option.ClientOption) (*Router, error) {
	router := NewRouter(logger)

	var googleAuth []option.ClientOption
	googleOptions := func() []option.ClientOption {
		if googleAuth == nil {
			googleAuth = append([]option.ClientOption{
				option.WithTokenSource(GoogleTokenSource(ctx, cfg.Google, GoogleScopes...)),
			}, googleOpts...)
		}
		return googleAuth
	}

	for _, client := range cfg.Clients {
		var (
			source Source
			err    error
		)

		switch client.Source {
		case model.SourceGoogleSheets:
			source, err = NewSheetsSource(ctx, client.Sheets, logger, googleOptions()...)
		case model.SourceGoogleDrive:
			source, err = NewDriveSource(ctx, client.Drive, logger, googleOptions()...)
		case model.SourceFTP:
			source, err = NewFTPSource(cfg.FTP, client.FTP, logger)
		default:
			err = fmt.Errorf("unsupported source type: %s", client.Source)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create source for client %s: %w", client.ID, err)
		}

		router.Register(client.ID, source)
	}

	return router, nil
}
