package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Dr-Haas/Fytli-sub000/models"
	"github.com/Dr-Haas/Fytli-sub000/utils"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NormalizeBadgeID turns a free-form key ("Streak 7") into the stored form ("streak_7").
func NormalizeBadgeID(id string) string {
	return strings.ReplaceAll(slug.Make(id), "-", "_")
}

// ValidateCatalog normalizes badge ids and rejects entries the evaluator
// could not handle. The returned slice is a copy.
func ValidateCatalog(defs []models.BadgeDefinition) ([]models.BadgeDefinition, error) {
	out := make([]models.BadgeDefinition, 0, len(defs))
	seen := make(map[string]bool, len(defs))

	for i, d := range defs {
		d.BadgeID = NormalizeBadgeID(d.BadgeID)
		if d.BadgeID == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("catalog[%d].badge_id", i), Reason: "is empty"}
		}
		if seen[d.BadgeID] {
			return nil, &ValidationError{Field: "badge_id", Reason: fmt.Sprintf("duplicate %q", d.BadgeID)}
		}
		seen[d.BadgeID] = true

		if d.Name == "" {
			return nil, &ValidationError{Field: d.BadgeID + ".name", Reason: "is required"}
		}
		if !d.Category.Valid() {
			return nil, &ValidationError{Field: d.BadgeID + ".category", Reason: fmt.Sprintf("unknown %q", d.Category)}
		}
		if !d.ConditionType.Valid() {
			return nil, &ValidationError{Field: d.BadgeID + ".condition_type", Reason: fmt.Sprintf("unknown %q", d.ConditionType)}
		}
		if d.Threshold <= 0 {
			return nil, &ValidationError{Field: d.BadgeID + ".threshold", Reason: "must be greater than zero"}
		}
		out = append(out, d)
	}
	return out, nil
}

// LoadCatalogFromObjectStore reads a JSON array of badge definitions.
func LoadCatalogFromObjectStore(ctx context.Context, store utils.ObjectReader, key string) ([]models.BadgeDefinition, error) {
	data, err := store.GetObject(ctx, key)
	if err != nil {
		return nil, err
	}

	var defs []models.BadgeDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("decoding badge catalog %s: %w", key, err)
	}
	return ValidateCatalog(defs)
}

// SyncCatalog mirrors the in-memory catalog into badge_definitions so the
// table can be joined against. Existing rows are overwritten.
func SyncCatalog(ctx context.Context, db *gorm.DB, defs []models.BadgeDefinition) error {
	if len(defs) == 0 {
		return nil
	}
	rows := make([]models.BadgeDefinition, len(defs))
	copy(rows, defs)

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "badge_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "description", "icon", "category", "condition_type", "threshold", "points", "is_secret",
			}),
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("syncing badge catalog: %w", err)
	}
	return nil
}

// CategoryLabel is the display label of a category ("routine" -> "Routine").
// Casers are stateful, so one is built per call.
func CategoryLabel(c models.BadgeCategory) string {
	return cases.Title(language.English).String(string(c))
}
