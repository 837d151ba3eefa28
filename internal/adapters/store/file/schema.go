package file

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version   int              `toml:"version"`
	Documents []documentSchema `toml:"documents"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported documents schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type documentSchema struct {
	Name      string `toml:"name"`
	Content   string `toml:"content,multiline"`
	UpdatedAt string `toml:"updated_at,omitempty"`
}
