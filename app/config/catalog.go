package config

import (
	_ "embed"
	"os"

	"blocdesk/app/util/textnorm"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

//go:embed blocs.yaml
var defaultCatalog []byte

// BlocCatalog is the static decision configuration: the bloc table, the
// ordered category rules, the payment thresholds and the extractor keyword
// packs. It is data the engine interprets, never code.
type BlocCatalog struct {
	Blocs       []Bloc         `yaml:"blocs" validate:"required,min=1,dive"`
	Categories  []CategoryRule `yaml:"categories" validate:"required,min=1,dive"`
	CatalogFlow []string       `yaml:"catalog_flow" validate:"required,min=1"`
	Payment     PaymentRules   `yaml:"payment"`
	Extract     ExtractRules   `yaml:"extract"`
	Tokens      Tokens         `yaml:"tokens"`

	byID map[string]*Bloc
}

type Bloc struct {
	// Opaque bloc identifier, resolved to literal text externally
	ID string `yaml:"id" validate:"required"`
	// Optional literal text for the static content resolver
	Text string `yaml:"text"`
	// Topic tags passed to the content store alongside the id
	SearchHints []string `yaml:"search_hints"`
	// Hand-off terminal queue, empty means no escalation
	Escalate string `yaml:"escalate" validate:"omitempty,oneof=admin commercial"`
	// Decision is a request for missing information
	Filtering bool `yaml:"filtering"`
	// A short yes/no reply resolves directly to the configured next bloc
	AwaitConfirmation bool   `yaml:"await_confirmation"`
	NextAffirmative   string `yaml:"next_affirmative"`
	NextNegative      string `yaml:"next_negative"`
	// Next message is fed to the extractor to fill the payment context
	CollectPayment bool `yaml:"collect_payment"`
}

type CategoryRule struct {
	Name string `yaml:"name" validate:"required,oneof=aggression handoff legal definition payment catalog referral fallback"`
	// Bloc emitted on match; payment and catalog resolve dynamically
	Bloc string `yaml:"bloc"`
	// Trigger phrases, matched as substrings of the normalized message
	Phrases []string `yaml:"phrases"`
}

type PaymentRules struct {
	// Bloc asking for the missing financing/duration fields
	FilterBloc string `yaml:"filter_bloc" validate:"required"`
	// Per financing type delay thresholds, keys: direct, opco, cpf
	Thresholds map[string]Threshold `yaml:"thresholds" validate:"required,dive"`
}

type Threshold struct {
	MaxDays int    `yaml:"max_days" validate:"required,min=1"`
	OnTime  string `yaml:"on_time" validate:"required"`
	Overdue string `yaml:"overdue" validate:"required"`
}

type ExtractRules struct {
	Units []Unit `yaml:"units" validate:"required,min=1,dive"`
	// Financing marker phrases, keys: direct, opco, cpf
	Financing map[string][]string `yaml:"financing" validate:"required"`
}

type Unit struct {
	Names []string `yaml:"names" validate:"required,min=1"`
	Days  int      `yaml:"days" validate:"required,min=1"`
}

type Tokens struct {
	Affirmative []string `yaml:"affirmative" validate:"required,min=1"`
	Negative    []string `yaml:"negative" validate:"required,min=1"`
}

// LoadCatalog reads the bloc catalog from path, falling back to the embedded
// default when path is empty. All phrases and tokens are normalized once here
// so matching never normalizes configuration at request time.
func LoadCatalog(path string) (*BlocCatalog, error) {
	data := defaultCatalog

	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, oops.Errorf("failed to read catalog file: %w", err)
		}
		data = fileData
	}

	var catalog BlocCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, oops.Errorf("failed to parse catalog YAML: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(catalog); err != nil {
		return nil, oops.Errorf("failed to validate catalog: %w", err)
	}

	catalog.normalize()

	if err := catalog.checkReferences(); err != nil {
		return nil, err
	}

	return &catalog, nil
}

func (c *BlocCatalog) normalize() {
	c.byID = make(map[string]*Bloc, len(c.Blocs))
	for i := range c.Blocs {
		c.byID[c.Blocs[i].ID] = &c.Blocs[i]
	}

	for i := range c.Categories {
		for j, phrase := range c.Categories[i].Phrases {
			c.Categories[i].Phrases[j] = textnorm.Normalize(phrase)
		}
	}

	for key, markers := range c.Extract.Financing {
		for i, marker := range markers {
			markers[i] = textnorm.Normalize(marker)
		}
		c.Extract.Financing[key] = markers
	}

	for i := range c.Extract.Units {
		for j, name := range c.Extract.Units[i].Names {
			c.Extract.Units[i].Names[j] = textnorm.Normalize(name)
		}
	}

	for i, token := range c.Tokens.Affirmative {
		c.Tokens.Affirmative[i] = textnorm.Normalize(token)
	}
	for i, token := range c.Tokens.Negative {
		c.Tokens.Negative[i] = textnorm.Normalize(token)
	}
}

func (c *BlocCatalog) checkReferences() error {
	seen := make(map[string]bool, len(c.Blocs))
	for _, bloc := range c.Blocs {
		if seen[bloc.ID] {
			return oops.Errorf("duplicate bloc id %q", bloc.ID)
		}
		seen[bloc.ID] = true

		if bloc.AwaitConfirmation && bloc.NextAffirmative == "" {
			return oops.Errorf("bloc %q awaits confirmation but has no next_affirmative", bloc.ID)
		}
	}

	last := c.Categories[len(c.Categories)-1]
	if last.Name != "fallback" || last.Bloc == "" || len(last.Phrases) != 0 {
		return oops.Errorf("last category must be an unconditional fallback with a bloc")
	}

	refs := make([]string, 0, 16)
	for _, bloc := range c.Blocs {
		if bloc.NextAffirmative != "" {
			refs = append(refs, bloc.NextAffirmative)
		}
		if bloc.NextNegative != "" {
			refs = append(refs, bloc.NextNegative)
		}
	}
	for _, rule := range c.Categories {
		if rule.Bloc != "" {
			refs = append(refs, rule.Bloc)
		}
	}
	refs = append(refs, c.CatalogFlow...)
	refs = append(refs, c.Payment.FilterBloc)
	for key, threshold := range c.Payment.Thresholds {
		if key != "direct" && key != "opco" && key != "cpf" {
			return oops.Errorf("unknown financing type %q in payment thresholds", key)
		}
		refs = append(refs, threshold.OnTime, threshold.Overdue)
	}

	for _, ref := range refs {
		if _, ok := c.byID[ref]; !ok {
			return oops.Errorf("unknown bloc id %q referenced by catalog", ref)
		}
	}

	return nil
}

// Bloc looks up a bloc definition by id.
func (c *BlocCatalog) Bloc(id string) (*Bloc, bool) {
	bloc, ok := c.byID[id]
	return bloc, ok
}
