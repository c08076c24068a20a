package view

import "github.com/pscheid92/hxzd-portal/internal/domain"

var categoryLabels = map[domain.Category]string{
	domain.CategoryGeneral:    "综合",
	domain.CategoryDiscussion: "讨论",
	domain.CategoryQuestion:   "求助",
	domain.CategoryShowcase:   "展示",
	domain.CategorySuggestion: "建议",
	domain.CategoryWhitelist:  "白名单申请",
}

// CategoryLabel falls back to the raw category for unknown values.
func CategoryLabel(c domain.Category) string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

type CategoryOption struct {
	Value  domain.Category
	Label  string
	Active bool
}

// CategoryFilter lists the forum filter buttons, "all" first.
func CategoryFilter(current domain.Category) []CategoryOption {
	opts := make([]CategoryOption, 0, len(domain.Categories)+1)
	opts = append(opts, CategoryOption{Value: "", Label: "全部", Active: current == ""})
	for _, c := range domain.Categories {
		opts = append(opts, CategoryOption{Value: c, Label: CategoryLabel(c), Active: c == current})
	}
	return opts
}
