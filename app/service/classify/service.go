package classify

import (
	"strings"

	"blocdesk/app/config"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

type Category string

const (
	CategoryAggression Category = "aggression"
	CategoryHandoff    Category = "handoff"
	CategoryLegal      Category = "legal"
	CategoryDefinition Category = "definition"
	CategoryPayment    Category = "payment"
	CategoryCatalog    Category = "catalog"
	CategoryReferral   Category = "referral"
	CategoryFallback   Category = "fallback"
)

// Rule is one entry of the static priority table. Priority is the 1-based
// position in the catalog's category list; lower matches first.
type Rule struct {
	Category Category
	BlocID   string
	Phrases  []string
	Priority int
}

// Matches reports whether any trigger phrase occurs in the normalized text.
// A rule without phrases matches everything (the fallback).
func (r Rule) Matches(norm string) bool {
	if len(r.Phrases) == 0 {
		return true
	}

	return pie.Any(r.Phrases, func(phrase string) bool {
		return strings.Contains(norm, phrase)
	})
}

// Service evaluates the ordered rule table, first match wins. Classification
// is total: the last rule is the fallback and matches any input, including
// the empty string.
type Service struct {
	rules []Rule
}

func New(di *do.Injector) (*Service, error) {
	return NewClassifier(do.MustInvoke[*config.BlocCatalog](di)), nil
}

func NewClassifier(catalog *config.BlocCatalog) *Service {
	rules := make([]Rule, 0, len(catalog.Categories))

	for i, cat := range catalog.Categories {
		rules = append(rules, Rule{
			Category: Category(cat.Name),
			BlocID:   cat.Bloc,
			Phrases:  cat.Phrases,
			Priority: i + 1,
		})
	}

	return &Service{rules: rules}
}

// Classify expects text already normalized (lower-cased, diacritics folded,
// whitespace collapsed).
func (s *Service) Classify(norm string) Rule {
	for _, rule := range s.rules {
		if rule.Matches(norm) {
			return rule
		}
	}

	// Catalog validation guarantees a fallback rule exists; this is only
	// reachable with a hand-built rule table.
	return Rule{Category: CategoryFallback, Priority: len(s.rules) + 1}
}

// IsAggressive checks only the aggression rule. The engine runs this before
// any continuation logic: aggression always wins.
func (s *Service) IsAggressive(norm string) bool {
	for _, rule := range s.rules {
		if rule.Category == CategoryAggression {
			return rule.Matches(norm)
		}
	}

	return false
}

// Rules exposes the table for diagnostics and tests.
func (s *Service) Rules() []Rule {
	return s.rules
}
