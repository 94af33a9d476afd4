// Package agents runs the external legal agent script and describes the
// agents it offers.
package agents

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Agent struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Role        string `yaml:"role" json:"role"`
	Description string `yaml:"description" json:"description"`
}

type Catalog struct {
	Agents []Agent `yaml:"agents" json:"agents"`
}

// LoadCatalog reads the catalogue from path, or the built-in one when path
// is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading agent catalog: %w", err)
		}
		data = b
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("error parsing agent catalog: %w", err)
	}
	if len(c.Agents) == 0 {
		return nil, fmt.Errorf("agent catalog is empty")
	}

	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.ID == "" {
			return nil, fmt.Errorf("agent catalog entry %q has no id", a.Name)
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true
	}
	return &c, nil
}

func (c *Catalog) Lookup(id string) (Agent, bool) {
	for _, a := range c.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}
