package policy

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// catalogueFile is the on-disk shape of a role catalogue.
type catalogueFile struct {
	Roles []roleEntry `yaml:"roles" validate:"required,min=1,dive"`
}

type roleEntry struct {
	Role        string   `yaml:"role" validate:"required"`
	Permissions []string `yaml:"permissions" validate:"required,min=1,dive,contains=:"`
	Inherits    []string `yaml:"inherits"`
}

// LoadCatalogue builds a catalogue from a YAML definitions file. The file
// replaces the built-in catalogue entirely; deployments that only need the
// defaults should not set a path at all.
func LoadCatalogue(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read catalogue: %w", err)
	}
	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("policy: parse catalogue: %w", err)
	}
	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("policy: invalid catalogue: %w", err)
	}
	defs := make([]RoleDefinition, 0, len(file.Roles))
	for _, entry := range file.Roles {
		def := RoleDefinition{Role: Role(entry.Role)}
		for _, perm := range entry.Permissions {
			def.Permissions = append(def.Permissions, Permission(perm))
		}
		for _, parent := range entry.Inherits {
			def.Inherits = append(def.Inherits, Role(parent))
		}
		defs = append(defs, def)
	}
	return NewCatalogue(defs)
}
