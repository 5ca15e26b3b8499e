// Package utils carries the configuration plumbing of the binfit tool.
package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the tool configuration. Command-line flags override
// the file values; the file overrides the built-in defaults.
type Config struct {
	Fit    FitConfig    `yaml:"fit" mapstructure:"fit"`
	MCMC   MCMCConfig   `yaml:"mcmc" mapstructure:"mcmc"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// FitConfig contains the minimization defaults.
type FitConfig struct {
	Method  string `yaml:"method" mapstructure:"method"` // leastsq, basinhopping or emcee
	Hops    int    `yaml:"hops" mapstructure:"hops"`
	Workers int    `yaml:"workers" mapstructure:"workers"` // 0 uses every CPU
}

// MCMCConfig contains the posterior sampler defaults.
type MCMCConfig struct {
	Steps   int `yaml:"steps" mapstructure:"steps"`
	Walkers int `yaml:"walkers" mapstructure:"walkers"`
	Burn    int `yaml:"burn" mapstructure:"burn"`
	Thin    int `yaml:"thin" mapstructure:"thin"`
}

// OutputConfig controls where and what the tool writes after a fit.
type OutputConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	SaveReport  bool   `yaml:"save_report" mapstructure:"save_report"`
	SaveGuesses bool   `yaml:"save_guesses" mapstructure:"save_guesses"`
	SaveChain   bool   `yaml:"save_chain" mapstructure:"save_chain"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// validMethods lists the minimization strategies the fit engine knows.
var validMethods = map[string]bool{
	"leastsq":      true,
	"basinhopping": true,
	"emcee":        true,
}

// ConfigDirName is the per-user directory holding the config file and
// the default output location.
const ConfigDirName = ".binfit"

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	binfitDir := filepath.Join(homeDir, ConfigDirName)

	return &Config{
		Fit: FitConfig{
			Method:  "leastsq",
			Hops:    10,
			Workers: 0,
		},
		MCMC: MCMCConfig{
			Steps:   1000,
			Walkers: 100,
			Burn:    100,
			Thin:    1,
		},
		Output: OutputConfig{
			Dir:         filepath.Join(binfitDir, "results"),
			SaveReport:  true,
			SaveGuesses: true,
			SaveChain:   true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from file or creates the default one.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	homeDir, _ := os.UserHomeDir()
	viper.AddConfigPath(filepath.Join(homeDir, ConfigDirName))
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("BINFIT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createDefaultConfig()
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to the per-user config file.
func SaveConfig(config *Config) error {
	configFile, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := createDirectories(config); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// createDefaultConfig creates and saves a default configuration.
func createDefaultConfig() (*Config, error) {
	config := DefaultConfig()
	if err := SaveConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if !validMethods[config.Fit.Method] {
		return fmt.Errorf("unknown fit method %q (use leastsq, basinhopping or emcee)", config.Fit.Method)
	}
	if config.Fit.Hops < 1 {
		return fmt.Errorf("fit hops must be at least 1")
	}
	if config.Fit.Workers < 0 {
		return fmt.Errorf("fit workers must not be negative")
	}
	if config.MCMC.Steps < 1 {
		return fmt.Errorf("mcmc steps must be at least 1")
	}
	if config.MCMC.Walkers < 2 || config.MCMC.Walkers%2 != 0 {
		return fmt.Errorf("mcmc walkers must be an even number of at least 2")
	}
	if config.MCMC.Burn < 0 {
		return fmt.Errorf("mcmc burn must not be negative")
	}
	if config.MCMC.Burn >= config.MCMC.Steps {
		return fmt.Errorf("mcmc burn of %d discards the whole %d-step chain", config.MCMC.Burn, config.MCMC.Steps)
	}
	if config.MCMC.Thin < 1 {
		return fmt.Errorf("mcmc thin must be at least 1")
	}
	return nil
}

// createDirectories creates the directories the config points at.
func createDirectories(config *Config) error {
	if dir := config.Output.Dir; dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetConfigPath returns the path to the config file.
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ConfigDirName, "config.yaml"), nil
}
