// Package config loads and validates the copypg configuration file.
//
// The configuration is an explicit value handed to the orchestrator rather
// than ambient process state, so tests can fabricate arbitrary table sets.
package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// SourceReadonlyEnv is the environment variable that supplies the read-only
// production connection string when source.dsn is not set in the file.
const SourceReadonlyEnv = "PG_READONLY"

// DefaultTargetDatabase is the local database copypg populates.
const DefaultTargetDatabase = "local_prod"

// Config is the top-level configuration.
type Config struct {
	Source      SourceConfig    `yaml:"source"`
	Target      TargetConfig    `yaml:"target"`
	Workdir     string          `yaml:"workdir"`
	Tools       ToolsConfig     `yaml:"tools"`
	Tables      TablesConfig    `yaml:"tables"`
	Partition   PartitionConfig `yaml:"partition"`
	Alterations []string        `yaml:"alterations"`
	HistoryFile string          `yaml:"history_file"`
}

// SourceConfig identifies the read-only production database.
type SourceConfig struct {
	// DSN is whatever the Postgres client tools accept as a first argument:
	// a database name, a postgres:// URL, or a keyword/value string.
	DSN string `yaml:"dsn"`
}

// TargetConfig identifies the local database to populate.
type TargetConfig struct {
	Database string `yaml:"database"`
}

// ToolsConfig names the external client binaries. Overridable for
// non-standard PATH setups; defaults are the plain command names.
type ToolsConfig struct {
	Psql     string `yaml:"psql"`
	PgDump   string `yaml:"pg_dump"`
	DropDB   string `yaml:"dropdb"`
	CreateDB string `yaml:"createdb"`
}

// TablesConfig classifies every table as either full-copy or sampled.
type TablesConfig struct {
	// FullCopy tables are downloaded in their entirety.
	FullCopy []string `yaml:"full_copy"`
	// Sampled maps table name to a sampling fraction in (0, 1], passed
	// through to TABLESAMPLE SYSTEM.
	Sampled map[string]float64 `yaml:"sampled"`
}

// PartitionConfig scopes sampled extraction to a set of key values
// (typically tenant/shop ids).
type PartitionConfig struct {
	Column string   `yaml:"column"`
	Values []string `yaml:"values"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Source.DSN == "" {
		c.Source.DSN = os.Getenv(SourceReadonlyEnv)
	}
	if c.Target.Database == "" {
		c.Target.Database = DefaultTargetDatabase
	}
	if c.Workdir == "" {
		c.Workdir = "."
	}
	if c.Tools.Psql == "" {
		c.Tools.Psql = "psql"
	}
	if c.Tools.PgDump == "" {
		c.Tools.PgDump = "pg_dump"
	}
	if c.Tools.DropDB == "" {
		c.Tools.DropDB = "dropdb"
	}
	if c.Tools.CreateDB == "" {
		c.Tools.CreateDB = "createdb"
	}
	if c.Partition.Column == "" {
		c.Partition.Column = "shop_id"
	}
	if c.HistoryFile == "" {
		c.HistoryFile = ".copypg/history.db"
	}
}

// validate enforces the data-model invariants. A missing source DSN is not
// checked here: it surfaces as downstream step failures, like any other
// external-tool problem.
func (c *Config) validate() error {
	fullCopy := make(map[string]bool, len(c.Tables.FullCopy))
	for _, name := range c.Tables.FullCopy {
		if name == "" {
			return fmt.Errorf("tables.full_copy: empty table name")
		}
		if fullCopy[name] {
			return fmt.Errorf("tables.full_copy: duplicate table %q", name)
		}
		fullCopy[name] = true
	}

	for name, fraction := range c.Tables.Sampled {
		if name == "" {
			return fmt.Errorf("tables.sampled: empty table name")
		}
		if fullCopy[name] {
			return fmt.Errorf("table %q appears in both full_copy and sampled", name)
		}
		if fraction <= 0 || fraction > 1 {
			return fmt.Errorf("tables.sampled.%s: fraction %v out of range (0, 1]", name, fraction)
		}
	}

	if len(c.Tables.Sampled) > 0 && len(c.Partition.Values) == 0 {
		return fmt.Errorf("partition.values: at least one value required when sampled tables are configured")
	}

	return nil
}

// SampledTables returns the sampled table names in sorted order, so every
// run processes them deterministically.
func (c *Config) SampledTables() []string {
	names := make([]string, 0, len(c.Tables.Sampled))
	for name := range c.Tables.Sampled {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllTables returns the full-copy tables followed by the sampled tables.
func (c *Config) AllTables() []string {
	all := make([]string, 0, len(c.Tables.FullCopy)+len(c.Tables.Sampled))
	all = append(all, c.Tables.FullCopy...)
	all = append(all, c.SampledTables()...)
	return all
}
