package article

import (
	"strings"

	"golang.org/x/text/width"
)

type Category string

const (
	CategoryEDAIP         Category = "eda/ip"
	CategoryDesign        Category = "design"
	CategoryManufacturing Category = "manufacturing"
	CategoryEquipment     Category = "equipment"
	CategoryMaterials     Category = "materials"
	CategoryPackaging     Category = "packaging"
	CategoryIDM           Category = "IDM"
	CategoryOther         Category = "other"
)

// Categories lists the closed category set in report order.
var Categories = []Category{
	CategoryEDAIP,
	CategoryDesign,
	CategoryManufacturing,
	CategoryEquipment,
	CategoryMaterials,
	CategoryPackaging,
	CategoryIDM,
	CategoryOther,
}

var categoryLabels = map[Category]string{
	CategoryEDAIP:         "eda/ip",
	CategoryDesign:        "设计",
	CategoryManufacturing: "制造",
	CategoryEquipment:     "设备",
	CategoryMaterials:     "材料",
	CategoryPackaging:     "封装",
	CategoryIDM:           "IDM",
	CategoryOther:         "其他",
}

// ParseCategory maps a canonical key or a localized label onto the closed set.
func ParseCategory(value string) (Category, bool) {
	value = strings.TrimSpace(width.Fold.String(value))
	if value == "" {
		return "", false
	}

	for _, c := range Categories {
		if strings.EqualFold(value, string(c)) || value == categoryLabels[c] {
			return c, true
		}
	}

	return "", false
}

// CoerceCategory is ParseCategory with the "other" fallback.
func CoerceCategory(value string) Category {
	if c, ok := ParseCategory(value); ok {
		return c
	}
	return CategoryOther
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the localized label used in prompts and stored overrides.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return categoryLabels[CategoryOther]
}

// DisplayName is the label shown on rendered pages.
func (c Category) DisplayName() string {
	if c == CategoryEDAIP {
		return "EDA/IP"
	}
	return c.Label()
}

// CategoryLabels returns the localized labels in category order.
func CategoryLabels() []string {
	labels := make([]string, 0, len(Categories))
	for _, c := range Categories {
		labels = append(labels, c.Label())
	}
	return labels
}
