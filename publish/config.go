package publish

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the publishing configuration, loadable from YAML.
type Config struct {
	// APIKey authenticates uploads against the share store. Empty halts every
	// run in the awaiting-auth state.
	APIKey string `yaml:"api_key"`
	// BaseURL of the share store API, e.g. https://share.example.com/v1.
	BaseURL string `yaml:"base_url"`
	// StorePath is the metadata database location.
	StorePath string `yaml:"store_path"`
	// Width is the published page content width in pixels. Default: 700.
	Width int `yaml:"width"`
	// Theme forces the published theme class: "light" or "dark".
	// Default: light.
	Theme string `yaml:"theme"`
	// KeepFrontmatter leaves metadata containers in the published page.
	KeepFrontmatter bool `yaml:"keep_frontmatter"`
	// Unencrypted publishes plain HTML instead of an encrypted envelope.
	Unencrypted bool `yaml:"unencrypted"`
	// CopyLink copies the share link to the clipboard after each publish.
	CopyLink bool `yaml:"copy_link"`
	// UploadConcurrency bounds parallel asset uploads. Default: 4.
	UploadConcurrency int `yaml:"upload_concurrency"`
}

func (c *Config) defaults() {
	if c.Width <= 0 {
		c.Width = 700
	}
	if c.Theme != "dark" {
		c.Theme = "light"
	}
	if c.UploadConcurrency <= 0 {
		c.UploadConcurrency = 4
	}
}

// LoadFile reads a YAML config and applies defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("publish: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("publish: parse config: %w", err)
	}
	cfg.defaults()
	return cfg, nil
}
