package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"blocdesk/app/config"
	"blocdesk/app/util/textnorm"

	"github.com/samber/do"
)

// financing detection precedence is fixed: an explicit direct-payment marker
// wins over everything, then operator funds, then a bare CPF mention. It must
// not depend on phrase order inside the message.
var financingPrecedence = []FinancingType{FinancingDirect, FinancingOPCO, FinancingCPF}

type Service struct {
	markers  map[FinancingType][]string
	unitDays map[string]int
	durRe    *regexp.Regexp
}

func New(di *do.Injector) (*Service, error) {
	return NewExtractor(do.MustInvoke[*config.BlocCatalog](di).Extract), nil
}

// NewExtractor builds an extractor from catalog rules. Rules are expected to
// be normalized already (LoadCatalog does that).
func NewExtractor(rules config.ExtractRules) *Service {
	s := &Service{
		markers:  make(map[FinancingType][]string, len(rules.Financing)),
		unitDays: make(map[string]int),
	}

	for key, phrases := range rules.Financing {
		s.markers[FinancingType(key)] = phrases
	}

	names := make([]string, 0, 8)
	for _, unit := range rules.Units {
		for _, name := range unit.Names {
			s.unitDays[name] = unit.Days
			names = append(names, regexp.QuoteMeta(name))
		}
	}

	// Longest alternative first so "semaines" is not eaten by "semaine".
	sort.Slice(names, func(i, j int) bool {
		return len(names[i]) > len(names[j])
	})

	s.durRe = regexp.MustCompile(`(\d+)\s*(` + strings.Join(names, "|") + `)\b`)

	return s
}

// Extract parses a message into a financing type and a canonical elapsed
// duration. Pure function of its input, case and diacritic insensitive.
func (s *Service) Extract(text string) FinancingInfo {
	norm := textnorm.Normalize(text)

	return FinancingInfo{
		FinancingType: s.detectFinancing(norm),
		ElapsedDays:   s.detectElapsedDays(norm),
	}
}

func (s *Service) detectFinancing(norm string) FinancingType {
	for _, kind := range financingPrecedence {
		for _, marker := range s.markers[kind] {
			if strings.Contains(norm, marker) {
				return kind
			}
		}
	}

	return FinancingUnknown
}

// detectElapsedDays sums every "<number> <unit>" occurrence, converting with
// day=1, week=7, month=30, year=365. The month/year values are deliberate
// approximations; threshold comparisons use these exact factors.
func (s *Service) detectElapsedDays(norm string) *int {
	matches := s.durRe.FindAllStringSubmatch(norm, -1)
	if len(matches) == 0 {
		return nil
	}

	total := 0
	for _, match := range matches {
		count, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		total += count * s.unitDays[match[2]]
	}

	return &total
}
