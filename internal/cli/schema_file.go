package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/datasynth/api/internal/model"
)

// LoadSchema reads a table schema from a YAML or JSON file.
func LoadSchema(path string) (*model.TableSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	var schema model.TableSchema
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &schema)
	case ".json":
		err = json.Unmarshal(data, &schema)
	default:
		return nil, fmt.Errorf("unsupported schema file %q: use .yaml, .yml or .json", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}

	if schema.TableName == "" {
		schema.TableName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &schema, nil
}
