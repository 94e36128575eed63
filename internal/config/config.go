// Package config loads runtime settings from an optional HCL file, a .env
// file and MME_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/agentic-research/mme/internal/scene"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/joho/godotenv"
)

// Config holds everything the CLI needs before a session starts.
type Config struct {
	LogLevel    string `hcl:"log_level,optional" validate:"required,oneof=debug info warn error"`
	LogFormat   string `hcl:"log_format,optional" validate:"required,oneof=json console"`
	Stage       string `hcl:"stage,optional"`
	DefaultPrim string `hcl:"default_prim,optional" validate:"required,primname"`
	ViewportUI  bool   `hcl:"viewport_ui,optional"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("primname", func(fl validator.FieldLevel) bool {
		p, err := scene.ParsePath("/" + fl.Field().String())
		return err == nil && p.Depth() == 1
	})
	return v
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:    "warn",
		LogFormat:   "console",
		Stage:       "stage.sdf",
		DefaultPrim: "World",
	}
}

// Load reads path (skipped when empty or absent) over the defaults, then
// applies .env and environment overrides and validates the result.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := hclsimple.DecodeFile(path, nil, &c); err != nil {
				return nil, fmt.Errorf("config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	// .env is optional.
	_ = godotenv.Load()

	if err := applyEnv(&c); err != nil {
		return nil, err
	}
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &c, nil
}

func applyEnv(c *Config) error {
	for key, dst := range map[string]*string{
		"MME_LOG_LEVEL":    &c.LogLevel,
		"MME_LOG_FORMAT":   &c.LogFormat,
		"MME_STAGE":        &c.Stage,
		"MME_DEFAULT_PRIM": &c.DefaultPrim,
	} {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("MME_VIEWPORT_UI"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MME_VIEWPORT_UI: %w", err)
		}
		c.ViewportUI = b
	}
	return nil
}
