package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Inputs Inputs `yaml:"inputs"`
	Output Output `yaml:"output"`
	Server Server `yaml:"server"`
}

// Inputs names the four pipeline input files plus the domain label file
// consumed only by the serve layer. Paths are relative to the working
// directory unless absolute.
type Inputs struct {
	Mapping      string `yaml:"mapping"`
	Items        string `yaml:"items"`
	Subdomains   string `yaml:"subdomains"`
	Responses    string `yaml:"responses"`
	DomainLabels string `yaml:"domain_labels"`
}

type Output struct {
	Dir string `yaml:"dir"`
}

type Server struct {
	Port         int `yaml:"port"`
	CacheEntries int `yaml:"cache_entries"`
}

// ConfigDir returns the XDG config directory for chart.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "chart")
}

// DataDir returns the XDG data directory for chart. The run registry lives here.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "chart")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/chart/config.yaml > ./config.yaml
// An empty result means no config file exists and defaults apply.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads and parses a config YAML file. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Inputs: Inputs{
			Mapping:      "mapping_file.csv",
			Items:        "Item-Tabel 1.csv",
			Subdomains:   "Subdomain-Tabel 1.csv",
			Responses:    "transposed_data.csv",
			DomainLabels: "domain_map.csv",
		},
		Output: Output{Dir: "data"},
		Server: Server{Port: 8000, CacheEntries: 8},
	}

	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
