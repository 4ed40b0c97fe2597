// pkg/config/sources.go
package config

import (
	"strings"
	"time"
)

// Google service account defaults
const (
	DefaultGoogleTokenURL = "https://oauth2.googleapis.com/token"
)

// GoogleConfig holds the service account used for Sheets and Drive
type GoogleConfig struct {
	ProjectID         string
	PrivateKeyID      string
	PrivateKey        string // PEM, with escaped newlines already expanded
	ClientEmail       string
	ClientID          string
	ClientX509CertURL string
	TokenURL          string
}

// FTPConfig holds the FTP server connection parameters
type FTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Timeout  time.Duration
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoadGoogleConfig loads the Google service account from environment variables
func LoadGoogleConfig() *GoogleConfig {
	return &GoogleConfig{
		ProjectID:         getEnv("GOOGLE_PROJECT_ID", ""),
		PrivateKeyID:      getEnv("GOOGLE_PRIVATE_KEY_ID", ""),
		PrivateKey:        strings.ReplaceAll(getEnv("GOOGLE_PRIVATE_KEY", ""), `\n`, "\n"),
		ClientEmail:       getEnv("GOOGLE_CLIENT_EMAIL", ""),
		ClientID:          getEnv("GOOGLE_CLIENT_ID", ""),
		ClientX509CertURL: getEnv("GOOGLE_CLIENT_X509_CERT_URL", ""),
		TokenURL:          getEnv("GOOGLE_TOKEN_URI", DefaultGoogleTokenURL),
	}
}

// Missing returns the required Google variables that are not set
func (c *GoogleConfig) Missing() []string {
	return missingVars(
		[2]string{"GOOGLE_PRIVATE_KEY_ID", c.PrivateKeyID},
		[2]string{"GOOGLE_PRIVATE_KEY", c.PrivateKey},
		[2]string{"GOOGLE_CLIENT_EMAIL", c.ClientEmail},
		[2]string{"GOOGLE_CLIENT_ID", c.ClientID},
		[2]string{"GOOGLE_CLIENT_X509_CERT_URL", c.ClientX509CertURL},
	)
}

// LoadFTPConfig loads the FTP server settings from environment variables
func LoadFTPConfig() *FTPConfig {
	return &FTPConfig{
		Host:     getEnv("FTP_HOST", ""),
		Port:     getEnvAsInt("FTP_PORT", 21),
		User:     getEnv("FTP_USER", ""),
		Password: getEnv("FTP_PASSWORD", ""),
		Timeout:  getEnvAsSeconds("FTP_TIMEOUT_SECONDS", 30),
	}
}

// Missing returns the required FTP variables that are not set
func (c *FTPConfig) Missing() []string {
	return missingVars(
		[2]string{"FTP_HOST", c.Host},
		[2]string{"FTP_USER", c.User},
		[2]string{"FTP_PASSWORD", c.Password},
	)
}

// LoadServerConfig loads HTTP server settings from environment variables
func LoadServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            getEnv("HOST", "0.0.0.0"),
		Port:            getEnvAsInt("PORT", 8000),
		ReadTimeout:     getEnvAsSeconds("SERVER_READ_TIMEOUT_SECONDS", 30),
		WriteTimeout:    getEnvAsSeconds("SERVER_WRITE_TIMEOUT_SECONDS", 300),
		ShutdownTimeout: getEnvAsSeconds("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 15),
	}
}
