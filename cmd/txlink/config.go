package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type configFile struct {
	// Flat format
	Server          string `yaml:"server,omitempty"`
	APIKey          string `yaml:"api_key,omitempty"`
	EtherscanAPIKey string `yaml:"etherscan_api_key,omitempty"`
	// Profile format
	Profiles      map[string]configProfile `yaml:"profiles,omitempty"`
	ActiveProfile string                   `yaml:"active_profile,omitempty"`
}

type configProfile struct {
	Server          string `yaml:"server,omitempty"`
	APIKey          string `yaml:"api_key,omitempty"`
	EtherscanAPIKey string `yaml:"etherscan_api_key,omitempty"`
}

// resolved returns the active settings: the active profile's values win over
// the flat ones.
func (f *configFile) resolved() configProfile {
	out := configProfile{Server: f.Server, APIKey: f.APIKey, EtherscanAPIKey: f.EtherscanAPIKey}
	if f.Profiles == nil {
		return out
	}

	name := f.ActiveProfile
	if name == "" {
		name = "default"
	}
	if p, ok := f.Profiles[name]; ok {
		if p.Server != "" {
			out.Server = p.Server
		}
		if p.APIKey != "" {
			out.APIKey = p.APIKey
		}
		if p.EtherscanAPIKey != "" {
			out.EtherscanAPIKey = p.EtherscanAPIKey
		}
	}
	return out
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".txlink", "config.yaml"), nil
}

func loadConfigFile() (string, *configFile, error) {
	cfgPath, err := configPath()
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return cfgPath, nil, err
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfgPath, nil, err
	}
	return cfgPath, &cfg, nil
}

func resolveConfig() {
	// Flag takes precedence, then env, then config file.
	if flagServer == "" {
		flagServer = os.Getenv("TXLINK_SERVER")
	}
	if flagKey == "" {
		flagKey = os.Getenv("TXLINK_API_KEY")
	}
	if flagEtherscan == "" {
		flagEtherscan = os.Getenv("ETHERSCAN_API_KEY")
	}

	_, cfg, err := loadConfigFile()
	if err != nil {
		return
	}
	file := cfg.resolved()

	if flagServer == "" {
		flagServer = file.Server
	}
	if flagKey == "" {
		flagKey = file.APIKey
	}
	if flagEtherscan == "" {
		flagEtherscan = file.EtherscanAPIKey
	}
}
