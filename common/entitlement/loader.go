package entitlement

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/efarmer/subsidy/common/models"
)

// LoadFile reads a rule list from a .json, .yaml or .yml file
func LoadFile(path string) ([]models.EntitlementRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

func ParseJSON(data []byte) ([]models.EntitlementRule, error) {
	var rules []models.EntitlementRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules json: %w", err)
	}
	return rules, nil
}

// ParseYAML accepts either a bare list or a document with a top-level "rules" key
func ParseYAML(data []byte) ([]models.EntitlementRule, error) {
	var doc struct {
		Rules []models.EntitlementRule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err == nil && doc.Rules != nil {
		return doc.Rules, nil
	}

	var rules []models.EntitlementRule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules yaml: %w", err)
	}
	return rules, nil
}
