package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// PackageJSONKey is the package.json field holding the config
const PackageJSONKey = "lessTheme"

// ErrUnsupportedFormat indicates a config file extension Load cannot read
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Load reads a config file. JSON files may contain comments. A package.json
// is read from its lessTheme field. Defaults are applied to the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	c := &Config{}
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case filepath.Base(path) == "package.json":
		found, err := fromPackageJSON(data)
		if err != nil {
			return nil, err
		}
		if found != nil {
			c = found
		}
	case ext == ".json" || ext == ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ext == ".yaml" || ext == ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	c.ApplyDefaults()
	return c, nil
}

// LoadPackageJSON reads the lessTheme field of root/package.json. It returns
// nil without error when there is no package.json or no such field.
func LoadPackageJSON(root string) (*Config, error) {
	path := filepath.Join(root, "package.json")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read package.json: %w", err)
	}
	c, err := fromPackageJSON(data)
	if err != nil || c == nil {
		return nil, err
	}
	c.ApplyDefaults()
	return c, nil
}

func fromPackageJSON(data []byte) (*Config, error) {
	var pkg map[string]json.RawMessage
	if err := json.Unmarshal(jsonc.ToJSON(data), &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse package.json: %w", err)
	}
	raw, ok := pkg[PackageJSONKey]
	if !ok {
		return nil, nil
	}
	c := &Config{}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("%s must be an object: %w", PackageJSONKey, err)
	}
	return c, nil
}
