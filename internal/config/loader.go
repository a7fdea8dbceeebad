package config

import (
	"context"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if UNIRANK_CONFIG is set
//  3. env (prefix UNIRANK_)
func Load(ctx context.Context) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := New()

	k := koanf.New(".")

	if path := os.Getenv("UNIRANK_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, WrapLoad(err)
		}
	}

	// Environment variables: UNIRANK_ADDR, UNIRANK_DATA_FILE, ...
	// Map env keys like UNIRANK_LOCK_TIMEOUT_MS -> lock_timeout_ms (flat
	// keys); underscores are preserved to match the koanf struct tags.
	envProvider := env.Provider("UNIRANK_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "unirank_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, WrapLoad(err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, WrapLoad(err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, WrapInvalid(err)
	}
	return &cfg, nil
}
