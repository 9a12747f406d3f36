package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/futig/foodsafety-backend/internal/entity"
	"gopkg.in/yaml.v3"
)

// CountyCatalog is the list of jurisdictions the corpus is partitioned by.
type CountyCatalog []entity.County

// Contains reports whether id is a known county tag.
func (c CountyCatalog) Contains(id string) bool {
	_, ok := c.Find(id)
	return ok
}

func (c CountyCatalog) Find(id string) (entity.County, bool) {
	id = entity.NormalizeCounty(id)
	for _, county := range c {
		if county.ID == id {
			return county, true
		}
	}
	return entity.County{}, false
}

// countiesFile represents the structure of counties.yaml
type countiesFile struct {
	Counties []entity.County `yaml:"counties"`
}

var defaultCounties = CountyCatalog{
	{ID: "washtenaw", Name: "Washtenaw County", State: "MI"},
	{ID: "wayne", Name: "Wayne County", State: "MI"},
	{ID: "oakland", Name: "Oakland County", State: "MI"},
}

// LoadCounties reads the county catalog, falling back to the built-in list when the file is absent.
func LoadCounties(path string) (CountyCatalog, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("Warning: counties file not found at %s, using default counties\n", path)
		return defaultCounties, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read counties file: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("counties file is empty: %s", path)
	}

	var parsed countiesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse counties YAML: %w", err)
	}

	if len(parsed.Counties) == 0 {
		return nil, fmt.Errorf("counties file contains no counties: %s", path)
	}

	catalog := make(CountyCatalog, 0, len(parsed.Counties))
	seen := make(map[string]struct{}, len(parsed.Counties))
	for _, county := range parsed.Counties {
		county.ID = entity.NormalizeCounty(county.ID)
		if county.ID == "" || strings.ContainsAny(county.ID, " /") {
			return nil, fmt.Errorf("invalid county id %q in %s", county.ID, path)
		}
		if _, dup := seen[county.ID]; dup {
			return nil, fmt.Errorf("duplicate county id %q in %s", county.ID, path)
		}
		seen[county.ID] = struct{}{}
		catalog = append(catalog, county)
	}

	fmt.Printf("Loaded %d counties from %s\n", len(catalog), path)
	return catalog, nil
}
