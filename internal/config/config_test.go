package config

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

// clearEnv blanks the overrides Load reads so the host environment
// cannot leak into a test.
func clearEnv(c *qt.C) {
	for _, k := range []string{
		"DATABASE_URL", "BLOGZIN_DB_PATH", "BLOGZIN_AI_PROVIDER", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"OPENAI_API_KEY", "BLOGZIN_AI_BASE_URL", "BLOGZIN_AI_MODEL", "PORT", "BLOGZIN_LOG_LEVEL",
	} {
		c.Setenv(k, "")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	c := qt.New(t)

	cfg := DefaultConfig()
	c.Assert(cfg.Validate(), qt.IsNil)
	c.Assert(cfg.Database.Driver, qt.Equals, "sqlite")
	c.Assert(cfg.AI.Provider, qt.Equals, "gemini")
	c.Assert(cfg.AI.Locale, qt.Equals, "pt-BR")
	c.Assert(cfg.Facts.Sources[0].ID, qt.Equals, "uselessfacts")
	c.Assert(cfg.Generation.IntervalMinutes, qt.Equals, 0)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	c := qt.New(t)
	clearEnv(c)

	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
server:
  port: 9090
ai:
  model: gemini-2.0-flash
generation:
  interval_minutes: 30
  source_id: numbers
`), 0o644)
	c.Assert(err, qt.IsNil)

	cfg, err := Load(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Server.Port, qt.Equals, 9090)
	c.Assert(cfg.Server.Host, qt.Equals, "0.0.0.0")
	c.Assert(cfg.AI.Model, qt.Equals, "gemini-2.0-flash")
	c.Assert(cfg.AI.Temperature, qt.Equals, 0.9)
	c.Assert(cfg.Generation.IntervalMinutes, qt.Equals, 30)
	c.Assert(cfg.Facts.Sources, qt.HasLen, 3)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c := qt.New(t)
	clearEnv(c)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Server.Port, qt.Equals, DefaultConfig().Server.Port)
}

func TestProviderWithoutModelKeepsModelEmpty(t *testing.T) {
	c := qt.New(t)
	clearEnv(c)

	c.Assert(DefaultConfig().AI.Model, qt.Equals, "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	c.Assert(os.WriteFile(path, []byte("ai:\n  provider: openai\n  base_url: http://localhost:11434\n"), 0o644), qt.IsNil)
	cfg, err := Load(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.AI.Provider, qt.Equals, "openai")
	c.Assert(cfg.AI.Model, qt.Equals, "")

	c.Setenv("BLOGZIN_AI_PROVIDER", "openai")
	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.AI.Provider, qt.Equals, "openai")
	c.Assert(cfg.AI.Model, qt.Equals, "")
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	c.Assert(os.WriteFile(path, []byte("server: [not a map"), 0o644), qt.IsNil)

	_, err := Load(path)
	c.Assert(err, qt.ErrorMatches, "parse config .*")
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name  string
		start func(*Config)
		env   map[string]string
		check func(*qt.C, Config)
	}{{
		name: "postgres database url",
		env:  map[string]string{"DATABASE_URL": "postgres://u:p@localhost/blogzin"},
		check: func(c *qt.C, cfg Config) {
			c.Assert(cfg.Database.Driver, qt.Equals, "postgres")
			c.Assert(cfg.Database.URL, qt.Equals, "postgres://u:p@localhost/blogzin")
		},
	}, {
		name: "sqlite database url",
		env:  map[string]string{"DATABASE_URL": "file:/data/blog.db"},
		check: func(c *qt.C, cfg Config) {
			c.Assert(cfg.Database.Driver, qt.Equals, "sqlite")
			c.Assert(cfg.Database.Path, qt.Equals, "/data/blog.db")
		},
	}, {
		name: "gemini key falls back to google key",
		env:  map[string]string{"GOOGLE_API_KEY": "g-key"},
		check: func(c *qt.C, cfg Config) {
			c.Assert(cfg.AI.APIKey, qt.Equals, "g-key")
		},
	}, {
		name: "gemini key wins over google key",
		env:  map[string]string{"GEMINI_API_KEY": "gem", "GOOGLE_API_KEY": "g-key"},
		check: func(c *qt.C, cfg Config) {
			c.Assert(cfg.AI.APIKey, qt.Equals, "gem")
		},
	}, {
		name: "openai provider reads its own key",
		env: map[string]string{
			"BLOGZIN_AI_PROVIDER": "OpenAI",
			"OPENAI_API_KEY":      "sk-test",
			"GEMINI_API_KEY":      "gem",
			"BLOGZIN_AI_BASE_URL": "http://localhost:11434",
			"BLOGZIN_AI_MODEL":    "llama3.1",
		},
		check: func(c *qt.C, cfg Config) {
			c.Assert(cfg.AI.Provider, qt.Equals, "openai")
			c.Assert(cfg.AI.APIKey, qt.Equals, "sk-test")
			c.Assert(cfg.AI.BaseURL, qt.Equals, "http://localhost:11434")
			c.Assert(cfg.AI.Model, qt.Equals, "llama3.1")
		},
	}, {
		name: "port and log level",
		env:  map[string]string{"PORT": "3000", "BLOGZIN_LOG_LEVEL": "debug"},
		check: func(c *qt.C, cfg Config) {
			c.Assert(cfg.Server.Port, qt.Equals, 3000)
			c.Assert(cfg.Logging.Level, qt.Equals, "debug")
		},
	}, {
		name:  "bad port is ignored",
		start: func(cfg *Config) { cfg.Server.Port = 8081 },
		env:   map[string]string{"PORT": "eighty"},
		check: func(c *qt.C, cfg Config) {
			c.Assert(cfg.Server.Port, qt.Equals, 8081)
		},
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			cfg := DefaultConfig()
			if test.start != nil {
				test.start(&cfg)
			}
			applyEnv(&cfg, envMap(test.env))
			test.check(c, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{{
		name:   "unknown driver",
		modify: func(cfg *Config) { cfg.Database.Driver = "mysql" },
		want:   `config: unknown database driver "mysql"`,
	}, {
		name:   "postgres without url",
		modify: func(cfg *Config) { cfg.Database.Driver = "postgres" },
		want:   "config: database.url is required for postgres",
	}, {
		name:   "sqlite without path",
		modify: func(cfg *Config) { cfg.Database.Path = "" },
		want:   "config: database.path is required for sqlite",
	}, {
		name:   "unknown provider",
		modify: func(cfg *Config) { cfg.AI.Provider = "claude" },
		want:   `config: unknown ai provider "claude"`,
	}, {
		name:   "no sources",
		modify: func(cfg *Config) { cfg.Facts.Sources = nil },
		want:   "config: at least one fact source is required",
	}, {
		name: "duplicate source",
		modify: func(cfg *Config) {
			cfg.Facts.Sources = append(cfg.Facts.Sources, cfg.Facts.Sources[0])
		},
		want: `config: duplicate fact source id "uselessfacts"`,
	}, {
		name:   "source without url",
		modify: func(cfg *Config) { cfg.Facts.Sources[0].URL = "" },
		want:   `config: fact source "uselessfacts.jsph.pl" needs an id and a url`,
	}, {
		name:   "unknown kind",
		modify: func(cfg *Config) { cfg.Facts.Sources[1].Kind = "xml" },
		want:   `config: fact source "numbers" has unknown kind "xml"`,
	}, {
		name:   "scheduler source not configured",
		modify: func(cfg *Config) { cfg.Generation.SourceID = "reddit" },
		want:   `config: generation.source_id "reddit" is not a configured fact source`,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			cfg := DefaultConfig()
			test.modify(&cfg)
			c.Assert(cfg.Validate(), qt.ErrorMatches, test.want)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	c := qt.New(t)

	c.Assert(LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")), qt.IsNil)
	c.Assert(LoadEnvFile(""), qt.IsNil)

	path := filepath.Join(t.TempDir(), ".env")
	c.Assert(os.WriteFile(path, []byte("BLOGZIN_TEST_ENV_FILE=loaded\n"), 0o644), qt.IsNil)
	c.Setenv("BLOGZIN_TEST_ENV_FILE", "")
	os.Unsetenv("BLOGZIN_TEST_ENV_FILE")

	c.Assert(LoadEnvFile(path), qt.IsNil)
	c.Assert(os.Getenv("BLOGZIN_TEST_ENV_FILE"), qt.Equals, "loaded")
}
