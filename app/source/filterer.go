package source

import (
	"fmt"
	"strings"

	"golang.org/x/text/width"
)

// Filterer applies a source's title/link filters. Values and terms are
// compared after width folding and lower-casing, so "ＡＩ" matches "ai".
type Filterer struct {
	rules []filterRule
}

type filterRule struct {
	field    string
	includes []string
	excludes []string
	raw      ConfigFilter
}

func NewFilterer(filters []ConfigFilter) *Filterer {
	f := &Filterer{}
	for _, filter := range filters {
		f.rules = append(f.rules, filterRule{
			field:    filter.Field,
			includes: foldTerms(filter.Includes),
			excludes: foldTerms(filter.Excludes),
			raw:      filter,
		})
	}
	return f
}

// Run marks items rejected by the filters. Items are never dropped here.
func (f *Filterer) Run(items []Item) []Item {
	if len(f.rules) == 0 {
		return items
	}

	filtered := make([]Item, 0, len(items))
	for _, item := range items {
		item.IsFiltered, item.FilterReason = f.Match(item)
		filtered = append(filtered, item)
	}

	return filtered
}

// Match reports whether item is rejected and why.
func (f *Filterer) Match(item Item) (bool, string) {
	for _, rule := range f.rules {
		value := foldText(fieldValue(item, rule.field))

		for i, exclude := range rule.excludes {
			if strings.Contains(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", rule.field, rule.raw.Excludes[i])
			}
		}

		if len(rule.includes) == 0 {
			continue
		}

		matched := false
		for _, include := range rule.includes {
			if strings.Contains(value, include) {
				matched = true
				break
			}
		}
		if !matched {
			return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", rule.field, rule.raw.Includes)
		}
	}

	return false, ""
}

func fieldValue(item Item, field string) string {
	switch field {
	case "title":
		return item.Title
	case "link":
		return item.URL
	default:
		return ""
	}
}

func foldText(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(width.Fold.String(value)), " "))
}

func foldTerms(terms []string) []string {
	folded := make([]string, len(terms))
	for i, term := range terms {
		folded[i] = foldText(term)
	}
	return folded
}
