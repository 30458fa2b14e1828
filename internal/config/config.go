package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/mcncl/jsonfrag/internal/models"
	"github.com/mcncl/jsonfrag/internal/resolver"
)

// Config represents the complete configuration for jsonfrag
type Config struct {
	Delimiters DelimitersConfig `yaml:"delimiters"`
	Missing    string           `yaml:"missing_fragment_behavior"`
	Default    interface{}      `yaml:"default_value"`
	Output     OutputConfig     `yaml:"output"`
	Dev        DevConfig        `yaml:"dev"`
}

// DelimitersConfig controls the reference delimiters
type DelimitersConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// OutputConfig controls JSON output rendering
type OutputConfig struct {
	Indent  int  `yaml:"indent"`
	Compact bool `yaml:"compact"`
}

// DevConfig contains development/debug options
type DevConfig struct {
	Debug bool `yaml:"debug"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Delimiters: DelimitersConfig{Start: "[", End: "]"},
		Missing:    resolver.Throw.String(),
		Output: OutputConfig{
			Indent:  2,
			Compact: false,
		},
	}
}

// LoadConfig loads configuration from a YAML file, on top of defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile searches for a config file in the current directory and its
// parents, returning the first match or "".
func FindConfigFile() string {
	configNames := []string{".jsonfrag.yml", ".jsonfrag.yaml", "jsonfrag.yml", "jsonfrag.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}

// Validate checks the whole config and reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Delimiters.Start == "" {
		result = multierror.Append(result, fmt.Errorf("delimiters.start must not be empty"))
	}
	if c.Delimiters.End == "" {
		result = multierror.Append(result, fmt.Errorf("delimiters.end must not be empty"))
	}

	behavior, err := resolver.ParseMissingFragmentBehavior(c.Missing)
	if err != nil {
		result = multierror.Append(result, err)
	} else if behavior == resolver.UseDefault && c.Default == nil {
		result = multierror.Append(result, fmt.Errorf("missing_fragment_behavior is use_default but default_value is not set"))
	}

	if c.Output.Indent < 0 {
		result = multierror.Append(result, fmt.Errorf("output.indent must not be negative"))
	}

	return result.ErrorOrNil()
}

// ToResolverConfig builds the immutable resolver configuration. Validate
// must have passed first.
func (c *Config) ToResolverConfig() (*resolver.Config, error) {
	behavior, err := resolver.ParseMissingFragmentBehavior(c.Missing)
	if err != nil {
		return nil, err
	}
	return &resolver.Config{
		Delimiters: resolver.Delimiters{
			Start: c.Delimiters.Start,
			End:   c.Delimiters.End,
		},
		MissingFragmentBehavior: behavior,
		DefaultValue:            convertYAMLValue(c.Default),
	}, nil
}

// convertYAMLValue maps yaml.v3's generic decoding onto the JSON value
// model. YAML maps arrive unordered; acceptable for a default value, which
// is substituted wholesale.
func convertYAMLValue(value interface{}) models.JSONValue {
	switch v := value.(type) {
	case map[string]interface{}:
		object := models.NewJSONObject()
		for key, item := range v {
			object.Set(key, convertYAMLValue(item))
		}
		return object
	case []interface{}:
		array := make(models.JSONArray, len(v))
		for i, item := range v {
			array[i] = convertYAMLValue(item)
		}
		return array
	default:
		return v
	}
}
