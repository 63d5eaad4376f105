package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Loader modes. CopyMode pushes the load into the warehouse with a COPY
// statement; StreamMode pulls the objects client-side and bulk-inserts,
// for targets that cannot reach the object store themselves.
const (
	CopyMode   = "copy"
	StreamMode = "stream"
)

// Warehouse dialects.
const (
	DialectRedshift = "redshift"
	DialectPostgres = "postgres"
)

// Config is the top-level pipeline configuration. It is loaded once in
// main and passed into constructors; nothing reads it through a global.
type Config struct {
	Warehouse WarehouseConfig `koanf:"warehouse"`
	S3        S3Config        `koanf:"s3"`
	IAMRole   IAMRoleConfig   `koanf:"iam_role"`
	Loader    LoaderConfig    `koanf:"loader"`
	Server    ServerConfig    `koanf:"server"`
}

type WarehouseConfig struct {
	DSN          string `koanf:"dsn"`
	Dialect      string `koanf:"dialect"` // redshift | postgres
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// S3Config names the two input streams and, for the activity log, the
// jsonpaths mapping object that declares its field-to-column paths.
type S3Config struct {
	LogData     string `koanf:"log_data"`
	LogJSONPath string `koanf:"log_jsonpath"`
	SongData    string `koanf:"song_data"`
	Region      string `koanf:"region"`
}

// IAMRoleConfig carries the externally-issued role granting read access
// to the input locations. Passed through to the loader unmodified.
type IAMRoleConfig struct {
	ARN string `koanf:"arn"`
}

type LoaderConfig struct {
	Mode      string `koanf:"mode"` // copy | stream
	MaxErrors int    `koanf:"max_errors"`
}

type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // debug | release
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Warehouse.DSN) == "" {
		return fmt.Errorf("warehouse.dsn is required")
	}
	if c.Warehouse.Dialect != DialectRedshift && c.Warehouse.Dialect != DialectPostgres {
		return fmt.Errorf("invalid warehouse.dialect %q (must be redshift or postgres)", c.Warehouse.Dialect)
	}
	if c.Warehouse.MaxOpenConns <= 0 {
		return fmt.Errorf("warehouse.max_open_conns must be > 0")
	}
	if c.Warehouse.MaxIdleConns <= 0 {
		return fmt.Errorf("warehouse.max_idle_conns must be > 0")
	}

	locations := []struct {
		name  string
		value string
	}{
		{"s3.log_data", c.S3.LogData},
		{"s3.log_jsonpath", c.S3.LogJSONPath},
		{"s3.song_data", c.S3.SongData},
	}
	for _, loc := range locations {
		if strings.TrimSpace(loc.value) == "" {
			return fmt.Errorf("%s is required", loc.name)
		}
		if !strings.HasPrefix(loc.value, "s3://") {
			return fmt.Errorf("%s %q must be an s3:// location", loc.name, loc.value)
		}
	}
	if strings.TrimSpace(c.S3.Region) == "" {
		return fmt.Errorf("s3.region is required")
	}

	switch c.Loader.Mode {
	case CopyMode:
		if strings.TrimSpace(c.IAMRole.ARN) == "" {
			return fmt.Errorf("iam_role.arn is required when loader.mode is %q", CopyMode)
		}
	case StreamMode:
		if c.Warehouse.Dialect != DialectPostgres {
			return fmt.Errorf("loader.mode %q requires warehouse.dialect %q (COPY FROM STDIN is not available on redshift)", StreamMode, DialectPostgres)
		}
	default:
		return fmt.Errorf("invalid loader.mode %q (must be copy or stream)", c.Loader.Mode)
	}
	if c.Loader.MaxErrors < 0 {
		return fmt.Errorf("loader.max_errors must be >= 0")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	return nil
}

// Load parses config from file + env and validates it.
// Environment variables use the SPARKIFY_ prefix with "__" as the
// section separator, e.g. SPARKIFY_WAREHOUSE__DSN.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"warehouse.dialect":        DialectRedshift,
		"warehouse.max_open_conns": 5,
		"warehouse.max_idle_conns": 5,
		"warehouse.auto_migrate":   true,
		"s3.region":                "us-west-2",
		"loader.mode":              CopyMode,
		"loader.max_errors":        10,
		"server.port":              8080,
		"server.host":              "0.0.0.0",
		"server.mode":              "release",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("SPARKIFY_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "SPARKIFY_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
