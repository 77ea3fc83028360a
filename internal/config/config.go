// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON file and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Duration is a time.Duration that reads as "30m" style strings in JSON.
type Duration struct {
	time.Duration
}

// UnmarshalJSON accepts a Go duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		d.Duration = v
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds: %w", err)
	}
	d.Duration = time.Duration(secs * float64(time.Second))
	return nil
}

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"server_address"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// SessionTTL is how long a login token stays valid.
	SessionTTL Duration `json:"session_ttl"`

	// SessionCleanInterval is how often expired tokens are purged. Zero disables purging.
	SessionCleanInterval Duration `json:"session_clean_interval"`

	// ThumbnailSize is the longest edge of generated thumbnails, in pixels.
	ThumbnailSize int `json:"thumbnail_size"`

	// MaxUploadBytes limits the size of an image upload request.
	MaxUploadBytes int64 `json:"max_upload_bytes"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// DBConnectAttempts is how many times the database connection is tried at startup.
	DBConnectAttempts int `json:"db_connect_attempts"`
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	options, err := parse(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return options
}

func parse(fs *flag.FlagSet, args []string, getenv func(string) string) (*Options, error) {
	options := &Options{}

	fs.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	fs.DurationVar(&options.SessionTTL.Duration, "session-ttl", 30*time.Minute, "session token lifetime")
	fs.DurationVar(&options.SessionCleanInterval.Duration, "session-clean", 0, "expired session purge interval (0 disables)")
	fs.IntVar(&options.ThumbnailSize, "thumb", 64, "thumbnail longest edge in pixels")
	fs.Int64Var(&options.MaxUploadBytes, "max-upload", 32<<20, "maximum upload size in bytes")
	fs.StringVar(&options.TLSCert, "tls-cert", "", "TLS certificate file")
	fs.StringVar(&options.TLSKey, "tls-key", "", "TLS key file")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")
	fs.IntVar(&options.DBConnectAttempts, "db-attempts", 5, "database connection attempts at startup")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Override flags with environment variables if set
	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if serverAddress := getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if dsn := getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if ttl := getenv("SESSION_TTL"); ttl != "" {
		v, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
		options.SessionTTL.Duration = v
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		options.LogLevel = level
	}
	if size := getenv("THUMBNAIL_SIZE"); size != "" {
		v, err := strconv.Atoi(size)
		if err != nil {
			return nil, fmt.Errorf("invalid THUMBNAIL_SIZE: %w", err)
		}
		options.ThumbnailSize = v
	}

	return options, nil
}
