package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var defaultCategoriesYAML []byte

// Fallbacks for categories missing from the metadata file.
const (
	DefaultCategoryColor = "#F7A00A"
	DefaultCategoryIcon  = "📍"
)

// Category is the display metadata for one place category.
type Category struct {
	Key   string `yaml:"key"`
	Name  string `yaml:"name"`
	Icon  string `yaml:"icon"`
	Color string `yaml:"color"`
}

// Categories is an ordered set of category metadata.
type Categories []Category

// Lookup returns the category for key. Matching ignores case.
func (c Categories) Lookup(key string) (Category, bool) {
	for _, cat := range c {
		if strings.EqualFold(cat.Key, key) {
			return cat, true
		}
	}
	return Category{}, false
}

// Name returns the display name for key, or the key itself when unknown.
func (c Categories) Name(key string) string {
	if cat, ok := c.Lookup(key); ok {
		return cat.Name
	}
	return key
}

// Icon returns the emoji icon for key.
func (c Categories) Icon(key string) string {
	if cat, ok := c.Lookup(key); ok && cat.Icon != "" {
		return cat.Icon
	}
	return DefaultCategoryIcon
}

// Color returns the pin color for key.
func (c Categories) Color(key string) string {
	if cat, ok := c.Lookup(key); ok && cat.Color != "" {
		return cat.Color
	}
	return DefaultCategoryColor
}

// Valid reports whether key names a known category.
func (c Categories) Valid(key string) bool {
	_, ok := c.Lookup(key)
	return ok
}

// Keys returns the category keys in configured order.
func (c Categories) Keys() []string {
	keys := make([]string, 0, len(c))
	for _, cat := range c {
		keys = append(keys, cat.Key)
	}
	return keys
}

// LoadCategories parses category metadata from path, or the embedded defaults when path is empty.
func LoadCategories(path string) (Categories, error) {
	data := defaultCategoriesYAML
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read categories: %w", err)
		}
		data = raw
	}
	return ParseCategories(data)
}

// ParseCategories decodes a YAML category list.
func ParseCategories(data []byte) (Categories, error) {
	var cats Categories
	if err := yaml.Unmarshal(data, &cats); err != nil {
		return nil, fmt.Errorf("config: parse categories: %w", err)
	}
	seen := make(map[string]struct{}, len(cats))
	for i, cat := range cats {
		key := strings.ToLower(strings.TrimSpace(cat.Key))
		if key == "" {
			return nil, fmt.Errorf("config: category %d has no key", i)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("config: duplicate category %q", key)
		}
		seen[key] = struct{}{}
		cats[i].Key = key
		if cats[i].Name == "" {
			cats[i].Name = key
		}
	}
	return cats, nil
}
