package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"

	"github.com/jlaffaye/ftp"
	"go.uber.org/zap"

	"github.com/David-Botos/unenrolled-users/pkg/config"
	"github.com/David-Botos/unenrolled-users/pkg/model"
)

// ftpConn is the part of an FTP session the source uses
type ftpConn interface {
	ChangeDir(path string) error
	List(path string) ([]*ftp.Entry, error)
	Retr(path string) (io.ReadCloser, error)
	Quit() error
}

type ftpDialer func(ctx context.Context) (ftpConn, error)

// serverConn adapts *ftp.ServerConn to ftpConn
type serverConn struct {
	*ftp.ServerConn
}

func (c serverConn) Retr(path string) (io.ReadCloser, error) {
	resp, err := c.ServerConn.Retr(path)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// FTPSource reads rosters from semicolon-separated Latin-1 CSV files on an FTP server.
// Each fetch opens its own session.
type FTPSource struct {
	cfg    *config.FTPSourceConfig
	dial   ftpDialer
	logger *zap.Logger
}

// NewFTPSource creates an FTP source for one client
func NewFTPSource(server *config.FTPConfig, cfg *config.FTPSourceConfig, logger *zap.Logger) (*FTPSource, error) {
	if server == nil || cfg == nil {
		return nil, errors.New("FTP server and client configuration are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FTPSource{
		cfg:    cfg,
		dial:   dialServer(server),
		logger: logger.Named("ftp"),
	}, nil
}

func dialServer(server *config.FTPConfig) ftpDialer {
	return func(ctx context.Context) (ftpConn, error) {
		if missing := server.Missing(); len(missing) > 0 {
			return nil, fmt.Errorf("missing FTP configuration: %v", missing)
		}

		addr := net.JoinHostPort(server.Host, strconv.Itoa(server.Port))
		opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
		if server.Timeout > 0 {
			opts = append(opts, ftp.DialWithTimeout(server.Timeout))
		}

		conn, err := ftp.Dial(addr, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		if err := conn.Login(server.User, server.Password); err != nil {
			conn.Quit()
			return nil, fmt.Errorf("FTP login failed: %w", err)
		}
		return serverConn{conn}, nil
	}
}

// Kind implements Source
func (s *FTPSource) Kind() model.SourceKind {
	return model.SourceFTP
}

// Fetch implements Source
func (s *FTPSource) Fetch(ctx context.Context, dataType string) (model.Dataset, error) {
	pattern, ok := s.cfg.Patterns[dataType]
	if !ok || len(pattern.Include) == 0 {
		return model.Dataset{}, fmt.Errorf("no FTP file pattern configured for data type %s", dataType)
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return model.Dataset{}, err
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			s.logger.Debug("FTP quit failed", zap.Error(err))
		}
	}()

	if s.cfg.Folder != "" {
		if err := conn.ChangeDir(s.cfg.Folder); err != nil {
			return model.Dataset{}, fmt.Errorf("failed to change to folder %s: %w", s.cfg.Folder, err)
		}
		s.logger.Info("Changed to FTP folder", zap.String("folder", s.cfg.Folder))
	}

	entries, err := conn.List("")
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to list FTP folder: %w", err)
	}
	s.logger.Info("Listed FTP folder", zap.Int("entries", len(entries)))

	var candidates []candidate
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		name := path.Base(e.Name)
		if matches(name, pattern) {
			candidates = append(candidates, candidate{ID: name, Name: name, Modified: e.Time})
		}
	}

	file, ok := selectNewest(candidates, s.logger)
	if !ok {
		return model.Dataset{}, fmt.Errorf("no files found matching pattern for %s", dataType)
	}
	s.logger.Info("Downloading FTP file", zap.String("name", file.Name))

	body, err := conn.Retr(file.ID)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to download %s: %w", file.Name, err)
	}
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to read %s: %w", file.Name, err)
	}

	ds, err := ParseCSV(bytes.NewReader(data), Latin1CSV)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to parse %s: %w", file.Name, err)
	}

	s.logger.Info("Fetched FTP file", zap.String("name", file.Name), zap.Int("rows", ds.Len()))
	return ds, nil
}
