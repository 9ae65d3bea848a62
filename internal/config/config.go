package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models kriya.yml.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Ingest struct {
		TrustedSender string `yaml:"trusted_sender"`
	} `yaml:"ingest"`
	Google struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RedirectURL  string `yaml:"redirect_url"`
	} `yaml:"google"`
	Sheets struct {
		DefaultSpreadsheetID string `yaml:"default_spreadsheet_id"`
	} `yaml:"sheets"`
	// Categories maps a work category to its ordered stage pipeline. The
	// pipelines are advisory: storage accepts any stage string, the API just
	// serves these for pickers and boards.
	Categories map[string][]string `yaml:"categories"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Ingest.TrustedSender == "" {
		return fmt.Errorf("config.ingest.trusted_sender is required")
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("config.categories is required")
	}
	for name, stages := range c.Categories {
		if name == "" {
			return fmt.Errorf("config.categories contains empty category name")
		}
		if len(stages) == 0 {
			return fmt.Errorf("category %s has no stages", name)
		}
		for _, stage := range stages {
			if stage == "" {
				return fmt.Errorf("category %s has empty stage name", name)
			}
		}
		if stages[0] != "Inbox" {
			return fmt.Errorf("category %s pipeline must start at Inbox", name)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "kriya.yml")
}

// Default returns the stock configuration.
func Default() *Config {
	cfg, err := FromYAML([]byte(defaultTemplate))
	if err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteDefault writes the stock kriya.yml into the workspace. It refuses to
// overwrite an existing file.
func WriteDefault(workspace string) (string, error) {
	path := Path(workspace)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config %s already exists", path)
	} else if !os.IsNotExist(err) {
		return "", err
	}
	if err := os.WriteFile(path, []byte(defaultTemplate), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  addr: ":3000"
  base_path: /api

auth:
  jwt_secret: ""

ingest:
  trusted_sender: marketing@kriyanusantara.com

google:
  client_id: ""
  client_secret: ""
  redirect_url: http://localhost:3000/auth/google/callback

sheets:
  default_spreadsheet_id: 1xY78Q5eIcZ8fUFnPI1EO9TsPxuqP40GNetXpQ6wdPhg

categories:
  Produk: [Inbox, Layout, Space, Model, Render, Approval, Pola, Estimasi, Gamker, Gamkem, Pengawalan, Finish]
  Interior: [Inbox, Layout, Space, Model, Render, Approval, Pola, Estimasi, Gamker, Pengawalan, Finish]
  Motif: [Inbox, Layout, Approval, Motif, Film, Warna, Matras, Pengawalan, Finish]
  Drafter: [Inbox, Film, Matras, Grafis, Pola, Estimasi, Gamker, Gamkem, Pengawalan, Finish]
`
