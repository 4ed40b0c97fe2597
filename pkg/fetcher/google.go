package fetcher

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"

	"github.com/David-Botos/unenrolled-users/pkg/config"
)

// GoogleScopes are the read-only scopes the Sheets and Drive sources need
var GoogleScopes = []string{
	sheets.SpreadsheetsReadonlyScope,
	drive.DriveReadonlyScope,
}

// GoogleTokenSource returns a service-account token source built from cfg. Tokens
// are fetched lazily and refreshed for as long as the process runs, so ctx only
// contributes its values.
func GoogleTokenSource(ctx context.Context, cfg *config.GoogleConfig, scopes ...string) oauth2.TokenSource {
	if cfg == nil {
		cfg = &config.GoogleConfig{}
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = config.DefaultGoogleTokenURL
	}

	conf := &jwt.Config{
		Email:        cfg.ClientEmail,
		PrivateKey:   []byte(cfg.PrivateKey),
		PrivateKeyID: cfg.PrivateKeyID,
		Scopes:       scopes,
		TokenURL:     tokenURL,
	}
	return conf.TokenSource(context.WithoutCancel(ctx))
}
