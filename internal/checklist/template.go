package checklist

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"kiosk-backend/internal/models"

	toml "github.com/pelletier/go-toml/v2"
)

const currentTemplateVersion = 1

type templateFile struct {
	Version int                    `toml:"version"`
	Items   []models.ChecklistItem `toml:"items"`
}

// DefaultTemplate is the review checklist every new session starts with.
func DefaultTemplate() []models.ChecklistItem {
	return []models.ChecklistItem{
		{ID: "1", Category: "Verification", Text: "Citizen identity verified", Required: true},
		{ID: "2", Category: "Verification", Text: "Language preference confirmed", Completed: true, Required: true},
		{ID: "3", Category: "Verification", Text: "Contact information obtained"},

		{ID: "4", Category: "Documentation", Text: "Incident details recorded", Required: true},
		{ID: "5", Category: "Documentation", Text: "Transcript reviewed for accuracy", Required: true},
		{ID: "6", Category: "Documentation", Text: "Supporting documents collected"},

		{ID: "7", Category: "Follow-up", Text: "Response provided to citizen", Required: true},
		{ID: "8", Category: "Follow-up", Text: "Reference number assigned"},
		{ID: "9", Category: "Follow-up", Text: "Next steps communicated", Required: true},

		{ID: "10", Category: "Compliance", Text: "BNS sections reviewed"},
		{ID: "11", Category: "Compliance", Text: "Department protocols followed", Required: true},
		{ID: "12", Category: "Compliance", Text: "Data privacy maintained", Completed: true, Required: true},
	}
}

// LoadTemplate reads a checklist template from a TOML file.
func LoadTemplate(path string) ([]models.ChecklistItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checklist template: %w", err)
	}

	var file templateFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode checklist template: %w", err)
	}
	if file.Version > currentTemplateVersion {
		return nil, fmt.Errorf("unsupported checklist template version %d (current %d)", file.Version, currentTemplateVersion)
	}
	if err := validateItems(file.Items); err != nil {
		return nil, fmt.Errorf("checklist template %s: %w", path, err)
	}

	return file.Items, nil
}

// EncodeTemplate renders items in the format LoadTemplate reads.
func EncodeTemplate(items []models.ChecklistItem) ([]byte, error) {
	return toml.Marshal(templateFile{Version: currentTemplateVersion, Items: items})
}

func validateItems(items []models.ChecklistItem) error {
	if len(items) == 0 {
		return errors.New("at least one item is required")
	}

	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return fmt.Errorf("item %d: id is required", i)
		}
		if strings.TrimSpace(item.Category) == "" {
			return fmt.Errorf("item %s: category is required", item.ID)
		}
		if strings.TrimSpace(item.Text) == "" {
			return fmt.Errorf("item %s: text is required", item.ID)
		}
		if _, ok := seen[item.ID]; ok {
			return fmt.Errorf("item %s: duplicate id", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}
