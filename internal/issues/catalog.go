package issues

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Category describes one reportable issue domain. RequireSubcategory is a
// per-category validation rule rather than a global switch.
type Category struct {
	Key                string   `yaml:"key" json:"key"`
	Label              string   `yaml:"label" json:"label"`
	RequireSubcategory bool     `yaml:"require_subcategory" json:"require_subcategory"`
	Subcategories      []string `yaml:"subcategories" json:"subcategories,omitempty"`
}

// Catalog is the closed set of categories a draft may use.
type Catalog struct {
	Categories []Category `yaml:"categories" json:"categories"`
}

// LoadCatalog reads the category catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read category file: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse category file: %w", err)
	}
	if len(c.Categories) == 0 {
		return nil, fmt.Errorf("category file %s defines no categories", path)
	}
	return &c, nil
}

// Find returns the category with the given key.
func (c *Catalog) Find(key string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Key == key {
			return cat, true
		}
	}
	return Category{}, false
}

// ValidateSelection checks a category/subcategory pair against the catalog.
func (c *Catalog) ValidateSelection(category, subcategory string) error {
	cat, ok := c.Find(category)
	if !ok {
		return fmt.Errorf("unknown category: %q", category)
	}

	if subcategory == "" {
		if cat.RequireSubcategory {
			return fmt.Errorf("category %q requires a subcategory", category)
		}
		return nil
	}

	for _, sub := range cat.Subcategories {
		if sub == subcategory {
			return nil
		}
	}
	return fmt.Errorf("unknown subcategory %q for category %q", subcategory, category)
}
