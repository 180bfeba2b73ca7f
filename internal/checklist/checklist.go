// Package checklist evaluates the officer's per-session completion checklist.
package checklist

import (
	"errors"

	"kiosk-backend/internal/models"
)

var ErrItemNotFound = errors.New("checklist item not found")

type Stats struct {
	TotalCompleted    int  `json:"total_completed"`
	TotalItems        int  `json:"total_items"`
	RequiredCompleted int  `json:"required_completed"`
	RequiredTotal     int  `json:"required_total"`
	ReadyToComplete   bool `json:"ready_to_complete"`
}

// Evaluate counts completed and required items. A session is ready to
// complete once every required item is completed.
func Evaluate(items []models.ChecklistItem) Stats {
	var s Stats
	for _, item := range items {
		s.TotalItems++
		if item.Completed {
			s.TotalCompleted++
		}
		if item.Required {
			s.RequiredTotal++
			if item.Completed {
				s.RequiredCompleted++
			}
		}
	}
	s.ReadyToComplete = s.RequiredCompleted == s.RequiredTotal
	return s
}

type Group struct {
	Category string                 `json:"category"`
	Items    []models.ChecklistItem `json:"items"`
}

// GroupByCategory keeps categories in order of first appearance.
func GroupByCategory(items []models.ChecklistItem) []Group {
	var groups []Group
	index := map[string]int{}
	for _, item := range items {
		i, ok := index[item.Category]
		if !ok {
			i = len(groups)
			index[item.Category] = i
			groups = append(groups, Group{Category: item.Category})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

// Toggle returns a copy of items with the completion of id flipped.
func Toggle(items []models.ChecklistItem, id string) ([]models.ChecklistItem, error) {
	out := append([]models.ChecklistItem(nil), items...)
	for i := range out {
		if out[i].ID == id {
			out[i].Completed = !out[i].Completed
			return out, nil
		}
	}
	return nil, ErrItemNotFound
}
