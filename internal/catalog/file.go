package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gyeh/codesuggest/internal/model"
	"github.com/gyeh/codesuggest/internal/normalize"
	"github.com/gyeh/codesuggest/internal/parquetread"
)

// ItemsDocument is the on-disk layout of an items file.
type ItemsDocument struct {
	Version string              `json:"version" yaml:"version"`
	Items   []model.CatalogItem `json:"items" yaml:"items"`
}

// RulesDocument is the on-disk layout of a rules file.
type RulesDocument struct {
	Version string            `json:"version" yaml:"version"`
	Rules   []model.RuleEntry `json:"rules" yaml:"rules"`
}

// FileSource loads items and rules from files. Items may be YAML, JSON or
// Parquet; rules may be YAML or JSON.
type FileSource struct {
	ItemsPath string
	RulesPath string
}

func (s *FileSource) String() string {
	return fmt.Sprintf("file:%s,%s", s.ItemsPath, s.RulesPath)
}

// Load implements Source.
func (s *FileSource) Load(ctx context.Context) Loaded {
	var ld Loaded
	ld.Items, ld.ItemsVersion, ld.ItemsErr = ReadItemsFile(s.ItemsPath)
	ld.Rules, ld.RulesVersion, ld.RulesErr = ReadRulesFile(s.RulesPath)
	return ld
}

// ReadItemsFile reads and normalizes an items document. Items without a code
// are dropped.
func ReadItemsFile(path string) ([]model.CatalogItem, string, error) {
	if path == "" {
		return nil, "", fmt.Errorf("items path not configured")
	}
	if isParquet(path) {
		return readItemsParquet(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read items file: %w", err)
	}
	var doc ItemsDocument
	if err := decode(path, data, &doc); err != nil {
		return nil, "", fmt.Errorf("parse items file %s: %w", path, err)
	}

	items := make([]model.CatalogItem, 0, len(doc.Items))
	for _, it := range doc.Items {
		if n, ok := normalize.Item(it); ok {
			items = append(items, n)
		}
	}
	return items, versionOr(doc.Version, data), nil
}

// ReadRulesFile reads and normalizes a rules document.
func ReadRulesFile(path string) ([]model.RuleEntry, string, error) {
	if path == "" {
		return nil, "", fmt.Errorf("rules path not configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read rules file: %w", err)
	}
	var doc RulesDocument
	if err := decode(path, data, &doc); err != nil {
		return nil, "", fmt.Errorf("parse rules file %s: %w", path, err)
	}

	rules := make([]model.RuleEntry, 0, len(doc.Rules))
	for i, r := range doc.Rules {
		if strings.TrimSpace(r.ID) == "" {
			return nil, "", fmt.Errorf("parse rules file %s: rule %d has no id", path, i)
		}
		rules = append(rules, normalize.Rule(r))
	}
	return rules, versionOr(doc.Version, data), nil
}

func readItemsParquet(path string) ([]model.CatalogItem, string, error) {
	r, err := parquetread.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer r.Close()

	rows, err := r.ReadAll(1024)
	if err != nil {
		return nil, "", err
	}

	var version string
	items := make([]model.CatalogItem, 0, len(rows))
	for i := range rows {
		if version == "" && rows[i].Version != nil {
			version = strings.TrimSpace(*rows[i].Version)
		}
		if it, ok := normalize.FromItemRow(&rows[i]); ok {
			items = append(items, it)
		}
	}
	if version == "" {
		sha, err := normalize.FileHash(path)
		if err != nil {
			return nil, "", err
		}
		version = normalize.HashVersion(sha)
	}
	return items, version, nil
}

func decode(path string, data []byte, v any) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Unmarshal(data, v)
	}
	return yaml.Unmarshal(data, v)
}

func versionOr(declared string, data []byte) string {
	if v := strings.TrimSpace(declared); v != "" {
		return v
	}
	return normalize.HashVersion(normalize.ContentHash(data))
}

func isParquet(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".parquet")
}
