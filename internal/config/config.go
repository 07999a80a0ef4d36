// Package config loads and validates actgraph configuration.
//
// Files are YAML (.yaml, .yml) or CUE (.cue). Both are checked against the
// embedded CUE schema, which also supplies defaults for CUE files.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/actgraph/internal/store"
)

//go:embed schema.cue
var schemaCUE string

// Config is the process-wide configuration.
type Config struct {
	Store       StoreConfig      `yaml:"store" json:"store"`
	Compression bool             `yaml:"compression" json:"compression"`
	MaxSteps    int              `yaml:"max_steps" json:"max_steps"`
	Suspension  SuspensionConfig `yaml:"suspension" json:"suspension"`
	LogLevel    string           `yaml:"log_level" json:"log_level"`
}

// StoreConfig selects the suspension hook backend.
type StoreConfig struct {
	Kind   string `yaml:"kind" json:"kind"`
	Path   string `yaml:"path,omitempty" json:"path,omitempty"`
	Driver string `yaml:"driver,omitempty" json:"driver,omitempty"`
	DSN    string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
}

// SuspensionConfig controls automatic suspension.
type SuspensionConfig struct {
	KeepDocuments int `yaml:"keep_documents" json:"keep_documents"`
}

// Error is a configuration error with an optional source position.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the configuration used when no file is given:
// an in-memory store, no compression, no step limit.
func Default() Config {
	return Config{
		Store:    StoreConfig{Kind: store.KindMemory},
		LogLevel: "info",
	}
}

// Load reads a configuration file. The format is chosen by extension.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return ParseCUE(path, data)
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// ParseYAML decodes YAML over Default() and validates the result.
// Unknown fields are rejected.
func ParseYAML(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseCUE compiles a CUE document, unifies it with the schema and decodes
// it. Fields the document leaves out take the schema defaults.
func ParseCUE(filename string, data []byte) (Config, error) {
	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return Config{}, err
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	merged := schema.Unify(v)
	if err := merged.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var cfg Config
	if err := merged.Decode(&cfg); err != nil {
		return Config{}, formatCUEError(err)
	}
	return cfg, nil
}

// Validate checks cfg against the schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return err
	}

	v := ctx.Encode(c)
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}
	if err := schema.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean Info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
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

// StoreOptions converts the store section for store.NewHook.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Kind:   c.Store.Kind,
		Path:   c.Store.Path,
		Driver: c.Store.Driver,
		DSN:    c.Store.DSN,
	}
}

func compileSchema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v.LookupPath(cue.ParsePath("#Config")), nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	field := strings.Join(first.Path(), ".")
	if field == "" {
		field = "config"
	}
	cfgErr := &Error{Field: field, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		cfgErr.Pos = positions[0]
	}
	return cfgErr
}
