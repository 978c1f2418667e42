package cli

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/halftone"
	"github.com/gogpu/halftone/ledger"
	"github.com/gogpu/halftone/suggest"
)

// Ledger backends.
const (
	backendMemory = "memory"
	backendRedis  = "redis"
)

// Config is the contents of a preset file. Every table is optional.
//
//	[settings]
//	shape = "diamante"
//	grid_size = 8.0
//
//	[server]
//	addr = ":8080"
//
//	[ledger]
//	backend = "redis"
//	redis_addr = "localhost:6379"
type Config struct {
	Settings halftone.Settings `toml:"settings"`
	Server   ServerConfig      `toml:"server"`
	Ledger   LedgerConfig      `toml:"ledger"`
	Advisor  AdvisorConfig     `toml:"advisor"`
}

// AdvisorConfig selects the settings advisor. With an empty URL the local
// pixel heuristic is used.
type AdvisorConfig struct {
	// URL receives the image as a PNG POST and answers with the
	// suggestion JSON.
	URL string `toml:"url"`
	// Timeout bounds one remote call.
	Timeout duration `toml:"timeout"`
}

// duration is a time.Duration written as a string such as "20s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// advisor builds the configured advisor. Failures fall back to the
// default suggestion.
func (c Config) advisor() suggest.Advisor {
	if c.Advisor.URL == "" {
		return suggest.Fallback(suggest.Heuristic{BlackThreshold: c.Settings.BlackThreshold})
	}
	return suggest.Fallback(suggest.Remote{
		URL:    c.Advisor.URL,
		Client: &http.Client{Timeout: c.Advisor.Timeout.Duration},
	})
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `toml:"addr"`
	// PreviewMaxDim downscales the rendered preview so neither side
	// exceeds it. Rendering always runs at full size so the stamp mesh
	// matches the export. Zero disables scaling.
	PreviewMaxDim int `toml:"preview_max_dim"`
	// PreviewCacheBytes bounds the memory used by cached previews. Zero
	// disables the cache.
	PreviewCacheBytes int64 `toml:"preview_cache_bytes"`
	// MaxUploadBytes limits request bodies.
	MaxUploadBytes int64 `toml:"max_upload_bytes"`
}

// LedgerConfig selects and configures the credit ledger.
type LedgerConfig struct {
	Backend    string `toml:"backend"`
	RedisAddr  string `toml:"redis_addr"`
	RedisDB    int    `toml:"redis_db"`
	KeyPrefix  string `toml:"key_prefix"`
	ExportCost int    `toml:"export_cost"`
	// Users are stored in the ledger at startup. Existing records with the
	// same ID are replaced.
	Users []SeedUser `toml:"users"`
}

// SeedUser is a ledger record declared in the config file.
type SeedUser struct {
	ID      string `toml:"id"`
	Email   string `toml:"email"`
	Name    string `toml:"name"`
	Role    string `toml:"role"`
	Status  string `toml:"status"`
	Credits int    `toml:"credits"`
}

// user converts the seed into a ledger record, defaulting role and status.
func (su SeedUser) user() ledger.User {
	u := ledger.NewUser(su.ID, su.Email, su.Name)
	if su.Role != "" {
		u.Role = ledger.Role(su.Role)
	}
	if su.Status != "" {
		u.Status = ledger.Status(su.Status)
	}
	u.Credits = su.Credits
	return u
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Settings: halftone.DefaultSettings(),
		Server: ServerConfig{
			Addr:              ":8080",
			PreviewMaxDim:     1600,
			PreviewCacheBytes: 64 << 20,
			MaxUploadBytes:    32 << 20,
		},
		Ledger: LedgerConfig{
			Backend:    backendMemory,
			RedisAddr:  "localhost:6379",
			KeyPrefix:  "halftone:",
			ExportCost: 1,
		},
		Advisor: AdvisorConfig{
			Timeout: duration{20 * time.Second},
		},
	}
}

// LoadConfig reads a TOML preset on top of DefaultConfig. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

// DecodeConfig is LoadConfig for an in-memory document.
func DecodeConfig(doc string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(doc, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.validate()
}

func checkUndecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(names, ", "))
}

func (c Config) validate() error {
	switch c.Ledger.Backend {
	case backendMemory, backendRedis:
	default:
		return fmt.Errorf("ledger backend %q: want %q or %q", c.Ledger.Backend, backendMemory, backendRedis)
	}
	if c.Ledger.ExportCost < 1 {
		return fmt.Errorf("ledger export_cost must be at least 1, got %d", c.Ledger.ExportCost)
	}
	for _, su := range c.Ledger.Users {
		if su.ID == "" {
			return errors.New("ledger user without id")
		}
		u := su.user()
		if !u.Status.Valid() {
			return fmt.Errorf("ledger user %s: invalid status %q", su.ID, su.Status)
		}
		if !u.Role.Valid() {
			return fmt.Errorf("ledger user %s: invalid role %q", su.ID, su.Role)
		}
	}
	return nil
}

// writeSettings encodes s as a [settings] table.
func writeSettings(w io.Writer, s halftone.Settings) error {
	doc := struct {
		Settings halftone.Settings `toml:"settings"`
	}{s}
	return toml.NewEncoder(w).Encode(doc)
}
