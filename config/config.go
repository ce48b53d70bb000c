// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/poiesic/docingest"
	"github.com/poiesic/docingest/ai"
	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/ingestion"
	"github.com/poiesic/docingest/storage"
	"github.com/poiesic/docingest/storage/badger"
	"github.com/poiesic/docingest/storage/elastic"
)

// Store backends.
const (
	BackendBadger  = "badger"
	BackendElastic = "elastic"
)

// Config is the top-level configuration file.
type Config struct {
	Index                   string        `toml:"index"`
	DeleteIndexOnInit       bool          `toml:"delete_index_on_init"`
	StrictDoctypes          bool          `toml:"strict_doctypes"`
	RejectDuplicateDoctypes bool          `toml:"reject_duplicate_doctypes"`
	Workers                 int           `toml:"workers"` // 0 means one per CPU
	ConnectAttempts         int           `toml:"connect_attempts"`
	ConnectDelay            time.Duration `toml:"connect_delay"`

	Store    StoreConfig                    `toml:"store"`
	AI       AIConfig                       `toml:"ai"`
	Doctypes map[string]map[string]FieldDef `toml:"doctypes"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Backend  string        `toml:"backend"`
	Path     string        `toml:"path"`
	InMemory bool          `toml:"in_memory"`
	Elastic  ElasticConfig `toml:"elastic"`
}

// ElasticConfig holds Elasticsearch connection settings.
type ElasticConfig struct {
	Addresses    []string `toml:"addresses"`
	Username     string   `toml:"username"`
	Password     string   `toml:"password"`
	APIKey       string   `toml:"api_key"`
	DoctypeField string   `toml:"doctype_field"`
}

// AIConfig configures the language model used by the llm parser.
type AIConfig struct {
	Host        string `toml:"host"`
	Model       string `toml:"model"`
	Token       string `toml:"token"`
	MaxAttempts int    `toml:"max_attempts"`
}

// FieldDef declares one doctype field. Indexed defaults to true.
type FieldDef struct {
	Type    string `toml:"type"`
	Indexed *bool  `toml:"indexed"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Index:           "docingest",
		ConnectAttempts: 1,
		ConnectDelay:    time.Second,
		Store: StoreConfig{
			Backend: BackendBadger,
			Path:    "docingest-data",
		},
		AI: AIConfig{
			Host:        aiDefaults.Host,
			Model:       aiDefaults.Model,
			Token:       aiDefaults.Token,
			MaxAttempts: aiDefaults.MaxAttempts,
		},
	}
}

// Load reads a TOML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults and validates the result.
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkUndecoded(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}
	return fmt.Errorf("%w: %s", ErrUnknownKeys, strings.Join(keys, ", "))
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Index == "" {
		return fmt.Errorf("%w: index is required", ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	if c.ConnectAttempts < 1 {
		return fmt.Errorf("%w: connect_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.ConnectDelay < 0 {
		return fmt.Errorf("%w: connect_delay must not be negative", ErrInvalidConfig)
	}

	switch c.Store.Backend {
	case BackendBadger:
		if c.Store.Path == "" && !c.Store.InMemory {
			return fmt.Errorf("%w: store.path is required unless store.in_memory is set", ErrInvalidConfig)
		}
	case BackendElastic:
		if len(c.Store.Elastic.Addresses) == 0 {
			return fmt.Errorf("%w: store.elastic.addresses is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store.backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	if _, err := c.DoctypeDefinitions(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// DoctypeDefinitions returns the declared doctypes sorted by name.
func (c *Config) DoctypeDefinitions() ([]core.Doctype, error) {
	names := make([]string, 0, len(c.Doctypes))
	for name := range c.Doctypes {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]core.Doctype, 0, len(names))
	for _, name := range names {
		dt := core.Doctype{Name: name, Fields: make(map[string]core.FieldSpec, len(c.Doctypes[name]))}
		for field, def := range c.Doctypes[name] {
			indexed := def.Indexed == nil || *def.Indexed
			dt.Fields[field] = core.FieldSpec{Type: core.FieldType(def.Type), Indexed: indexed}
		}
		normalized, err := core.ValidateDoctype(dt)
		if err != nil {
			return nil, err
		}
		out = append(out, normalized)
	}
	return out, nil
}

// Doctype returns the fields declared for one doctype.
func (c *Config) Doctype(name string) (core.Doctype, bool, error) {
	all, err := c.DoctypeDefinitions()
	if err != nil {
		return core.Doctype{}, false, err
	}
	for _, dt := range all {
		if dt.Name == name {
			return dt, true, nil
		}
	}
	return core.Doctype{}, false, nil
}

// OpenStore returns a dialer for the configured backend. The closer releases
// resources shared by every connection and must be called after the last
// connection is closed.
func (c *Config) OpenStore() (storage.Dialer, io.Closer, error) {
	switch c.Store.Backend {
	case BackendBadger:
		backend, err := badger.OpenBackend(c.Store.Path, c.Store.InMemory)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger store: %w", err)
		}
		return badger.NewDialer(backend), backend, nil
	case BackendElastic:
		return elastic.NewDialer(elastic.Config{
			Addresses:    c.Store.Elastic.Addresses,
			Username:     c.Store.Elastic.Username,
			Password:     c.Store.Elastic.Password,
			APIKey:       c.Store.Elastic.APIKey,
			DoctypeField: c.Store.Elastic.DoctypeField,
		}), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown store.backend %q", ErrInvalidConfig, c.Store.Backend)
	}
}

// SessionOptions converts the configuration into session options.
func (c *Config) SessionOptions(logger *slog.Logger) []docingest.Option {
	policy := ingestion.OverwriteWithWarning
	if c.RejectDuplicateDoctypes {
		policy = ingestion.RejectDuplicates
	}
	return []docingest.Option{
		docingest.WithDeleteIndexOnInit(c.DeleteIndexOnInit),
		docingest.WithConnectRetries(c.ConnectAttempts, c.ConnectDelay),
		docingest.WithStrictDoctypes(c.StrictDoctypes),
		docingest.WithDoctypePolicy(policy),
		docingest.WithLogger(logger),
	}
}

// DispatchOptions converts the configuration into options for each ingest call.
func (c *Config) DispatchOptions() []ingestion.Option {
	if c.Workers == 0 {
		return nil
	}
	return []ingestion.Option{ingestion.WithWorkers(c.Workers)}
}

// AIConfig converts the [ai] table into an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithHost(c.AI.Host),
		ai.WithModel(c.AI.Model),
		ai.WithToken(c.AI.Token),
		ai.WithMaxAttempts(c.AI.MaxAttempts),
	)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
