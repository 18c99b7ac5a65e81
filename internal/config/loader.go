package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/repotoire-go/repotoire/internal/rerr"
	"github.com/repotoire-go/repotoire/internal/rlog"
)

// candidateNames lists the discoverable config file names in the
// preference order spec.md §6 requires: TOML, then JSON, then
// YAML-as-JSON. Discover stops at the first one present.
var candidateNames = []string{
	"repotoire.toml",
	"repotoire.json",
	"repotoire.yaml",
	"repotoire.yml",
}

// Discover finds the first recognised config file at root, or "" if none
// exists — an absent file is not an error, per spec.md §6.
func Discover(root string) string {
	for _, name := range candidateNames {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load discovers and parses the project config at root, validates it
// against the JSON schema, and merges it over Default(). An absent config
// file returns Default() with no error.
func Load(root string) (ProjectConfig, error) {
	path := Discover(root)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile parses a specific config file path, auto-detecting its format
// from the extension ("YAML-as-JSON" semantics: decode YAML into a generic
// map, re-marshal through encoding/json, and unmarshal that JSON into
// ProjectConfig, so a single struct definition with JSON-ish field
// handling covers all three formats instead of juggling three separate
// sets of struct tags).
func LoadFile(path string) (ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ProjectConfig{}, rerr.NewConfigInvalid("path", path, err)
	}

	raw := map[string]any{}
	switch filepath.Ext(path) {
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return ProjectConfig{}, rerr.NewConfigInvalid("format", "toml", err)
		}
	case ".yaml", ".yml":
		var y any
		if err := yaml.Unmarshal(data, &y); err != nil {
			return ProjectConfig{}, rerr.NewConfigInvalid("format", "yaml", err)
		}
		jsonBytes, err := json.Marshal(normalizeYAML(y))
		if err != nil {
			return ProjectConfig{}, rerr.NewConfigInvalid("format", "yaml", err)
		}
		if err := json.Unmarshal(jsonBytes, &raw); err != nil {
			return ProjectConfig{}, rerr.NewConfigInvalid("format", "yaml", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return ProjectConfig{}, rerr.NewConfigInvalid("format", "json", err)
		}
	default:
		return ProjectConfig{}, rerr.NewConfigInvalid("path", path, fmt.Errorf("unrecognised config format"))
	}

	if err := ValidateSchema(raw); err != nil {
		return ProjectConfig{}, rerr.NewConfigInvalid("schema", path, err)
	}

	cfg := Default()
	jsonBytes, err := json.Marshal(raw)
	if err != nil {
		return ProjectConfig{}, rerr.NewConfigInvalid("decode", path, err)
	}
	if err := json.Unmarshal(jsonBytes, &cfg); err != nil {
		return ProjectConfig{}, rerr.NewConfigInvalid("decode", path, err)
	}

	if err := validatePillarWeights(&cfg); err != nil {
		return ProjectConfig{}, err
	}

	rlog.Debugf("loaded config from %s (project_type=%q)", path, cfg.ProjectType)
	return cfg, nil
}

// normalizeYAML recursively converts the map[interface{}]interface{} nodes
// gopkg.in/yaml.v3 can still produce for nested maps into map[string]any,
// which encoding/json requires for Marshal to succeed.
func normalizeYAML(v any) any {
	switch n := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, val := range n {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(n))
		for k, val := range n {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, val := range n {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return n
	}
}

// validatePillarWeights enforces spec.md §7's "weights must sum to ~1.0
// (tolerance 0.001)" rule: weights within the tolerance are kept as given,
// and weights off by more than it are renormalized to sum to 1.0 rather
// than rejected — the same tolerance the scorer's own validator documents.
func validatePillarWeights(cfg *ProjectConfig) error {
	w := cfg.Scoring.PillarWeights
	sum := w.Structure + w.Quality + w.Architecture
	if sum == 0 {
		return nil // untouched default, nothing to validate
	}
	if diff := sum - 1.0; diff > 0.001 || diff < -0.001 {
		rlog.Warnf("pillar weights sum to %.4f, renormalizing to 1.0", sum)
		cfg.Scoring.PillarWeights.Structure = w.Structure / sum
		cfg.Scoring.PillarWeights.Quality = w.Quality / sum
		cfg.Scoring.PillarWeights.Architecture = w.Architecture / sum
	}
	return nil
}
