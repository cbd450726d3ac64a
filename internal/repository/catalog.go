package repository

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"questmart/internal/model"

	"gopkg.in/yaml.v3"
)

//go:embed catalog/quests.yaml
var defaultCatalog []byte

type catalogFile struct {
	Quests []model.Quest `yaml:"quests"`
}

// LoadQuestCatalog reads quest definitions from a YAML file. An empty path
// loads the built-in catalog.
func LoadQuestCatalog(path string) ([]model.Quest, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read quest catalog: %w", err)
		}
	}
	return ParseQuestCatalog(data)
}

func ParseQuestCatalog(data []byte) ([]model.Quest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse quest catalog: %w", err)
	}
	return file.Quests, nil
}
