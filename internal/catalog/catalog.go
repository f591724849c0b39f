// Package catalog holds the static per-module-type step configuration. The
// definitions are embedded at build time and parsed once; a module type that
// is absent from the catalog is a configuration error.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/launchdeck/launchdeck/internal/core/domain"
)

//go:embed modules.yaml
var rawCatalog []byte

// StepDefinition describes one configured step of a module type.
type StepDefinition struct {
	StepType    string   `yaml:"step_type"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Placeholder string   `yaml:"placeholder"`
	ExpertTips  []string `yaml:"expert_tips"`
}

// ModuleDefinition is the catalog entry for one module type.
type ModuleDefinition struct {
	Type  domain.ModuleType `yaml:"type"`
	Title string            `yaml:"title"`
	Steps []StepDefinition  `yaml:"steps"`
}

type catalogFile struct {
	Modules []ModuleDefinition `yaml:"modules"`
}

var (
	loadOnce sync.Once
	loadErr  error
	byType   map[domain.ModuleType]ModuleDefinition
)

func load() {
	var file catalogFile
	if err := yaml.Unmarshal(rawCatalog, &file); err != nil {
		loadErr = fmt.Errorf("parse module catalog: %w", err)
		return
	}
	if len(file.Modules) == 0 {
		loadErr = errors.New("module catalog is empty")
		return
	}

	index := make(map[domain.ModuleType]ModuleDefinition, len(file.Modules))
	for _, def := range file.Modules {
		if def.Type == "" || len(def.Steps) == 0 {
			loadErr = fmt.Errorf("module catalog entry %q has no type or steps", def.Type)
			return
		}
		if _, exists := index[def.Type]; exists {
			loadErr = fmt.Errorf("module catalog entry %q is duplicated", def.Type)
			return
		}
		index[def.Type] = def
	}
	byType = index
}

// Lookup returns the definition for a module type. A missing type is fatal
// configuration, surfaced as domain.ErrConfiguration.
func Lookup(moduleType domain.ModuleType) (ModuleDefinition, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return ModuleDefinition{}, domain.WrapError(domain.ErrConfiguration, "load catalog", loadErr)
	}
	def, ok := byType[moduleType]
	if !ok {
		return ModuleDefinition{}, domain.WrapError(
			domain.ErrConfiguration,
			"lookup module type",
			fmt.Errorf("no step configuration for module type %q", moduleType),
		)
	}
	return def, nil
}

// Types lists the configured module types.
func Types() ([]domain.ModuleType, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "load catalog", loadErr)
	}
	out := make([]domain.ModuleType, 0, len(byType))
	for t := range byType {
		out = append(out, t)
	}
	return out, nil
}
