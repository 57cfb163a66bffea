// Package config loads venueadmin settings from VENUEADMIN_* environment
// variables, optionally seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every variable name.
const Prefix = "VENUEADMIN_"

// Config is the validated runtime configuration shared by the CLI and the
// API server.
type Config struct {
	StorageDriver string `validate:"oneof=memory sqlite postgres remote"`
	SQLitePath    string
	PostgresDSN   string
	RemoteURL     string `validate:"omitempty,url"`
	RemoteToken   string

	BlobDriver string `validate:"oneof=none fs s3 memory"`
	BlobFSRoot string
	S3         S3Config

	CommitConcurrency int    `validate:"min=1,max=64"`
	APIAddr           string `validate:"required"`
	JWTSecret         string `validate:"omitempty,min=16"`
	LogLevel          string `validate:"oneof=debug info warn error"`
}

// S3Config holds the archive bucket coordinates.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string `validate:"omitempty,url"`
	AccessKeyID     string
	SecretAccessKey string `validate:"required_with=AccessKeyID"`
	PathStyle       bool
}

// Defaults returns the configuration used for unset variables.
func Defaults() Config {
	return Config{
		StorageDriver:     "sqlite",
		SQLitePath:        "venueadmin.db",
		BlobDriver:        "none",
		BlobFSRoot:        "archive",
		S3:                S3Config{Region: "us-east-1"},
		CommitConcurrency: 1,
		APIAddr:           ":8080",
		LogLevel:          "info",
	}
}

// Load reads the given env files (".env" when none are named) into the
// process environment without overriding variables already set, then builds
// the configuration from the environment. Missing files are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds and validates a configuration from a variable lookup.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Defaults()
	r := reader{lookup: lookup}
	r.str("STORAGE_DRIVER", &cfg.StorageDriver)
	r.str("SQLITE_PATH", &cfg.SQLitePath)
	r.str("POSTGRES_DSN", &cfg.PostgresDSN)
	r.str("REMOTE_URL", &cfg.RemoteURL)
	r.str("REMOTE_TOKEN", &cfg.RemoteToken)
	r.str("BLOB_DRIVER", &cfg.BlobDriver)
	r.str("BLOB_FS_ROOT", &cfg.BlobFSRoot)
	r.str("BLOB_S3_BUCKET", &cfg.S3.Bucket)
	r.str("BLOB_S3_REGION", &cfg.S3.Region)
	r.str("BLOB_S3_ENDPOINT", &cfg.S3.Endpoint)
	r.str("BLOB_S3_ACCESS_KEY_ID", &cfg.S3.AccessKeyID)
	r.str("BLOB_S3_SECRET_ACCESS_KEY", &cfg.S3.SecretAccessKey)
	r.boolean("BLOB_S3_PATH_STYLE", &cfg.S3.PathStyle)
	r.integer("COMMIT_CONCURRENCY", &cfg.CommitConcurrency)
	r.str("API_ADDR", &cfg.APIAddr)
	r.str("JWT_SECRET", &cfg.JWTSecret)
	r.str("LOG_LEVEL", &cfg.LogLevel)
	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	cfg.BlobDriver = strings.ToLower(cfg.BlobDriver)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if len(r.errs) > 0 {
		return Config{}, errors.Join(r.errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(driverRequirements, Config{})
	return v
}

// driverRequirements enforces settings that only matter for the selected
// drivers.
func driverRequirements(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	if cfg.StorageDriver == "postgres" && cfg.PostgresDSN == "" {
		sl.ReportError(cfg.PostgresDSN, "PostgresDSN", "PostgresDSN", "required_for_postgres", "")
	}
	if cfg.StorageDriver == "remote" && cfg.RemoteURL == "" {
		sl.ReportError(cfg.RemoteURL, "RemoteURL", "RemoteURL", "required_for_remote", "")
	}
	if cfg.BlobDriver == "s3" && cfg.S3.Bucket == "" {
		sl.ReportError(cfg.S3.Bucket, "Bucket", "Bucket", "required_for_s3", "")
	}
}

// Validate checks field constraints and driver requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) get(name string) (string, bool) {
	v, ok := r.lookup(Prefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *reader) str(name string, dst *string) {
	if v, ok := r.get(name); ok {
		*dst = v
	}
}

func (r *reader) integer(name string, dst *int) {
	v, ok := r.get(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %q is not an integer", Prefix, name, v))
		return
	}
	*dst = n
}

func (r *reader) boolean(name string, dst *bool) {
	v, ok := r.get(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %q is not a boolean", Prefix, name, v))
		return
	}
	*dst = b
}
