package content

import (
	"blocdesk/app/config"

	"github.com/samber/do"
)

// Store resolves a bloc id to its literal response text. The decision core
// only ever selects ids; rendering belongs here and to the channel adapter.
type Store interface {
	Resolve(blocID string) (string, bool)
}

// CatalogStore serves the texts embedded in the bloc catalog. A bloc without
// a text resolves to not-found and the caller falls back to the id.
type CatalogStore struct {
	texts map[string]string
}

func New(di *do.Injector) (Store, error) {
	catalog := do.MustInvoke[*config.BlocCatalog](di)

	texts := make(map[string]string, len(catalog.Blocs))
	for _, bloc := range catalog.Blocs {
		if bloc.Text != "" {
			texts[bloc.ID] = bloc.Text
		}
	}

	return &CatalogStore{texts: texts}, nil
}

func (s *CatalogStore) Resolve(blocID string) (string, bool) {
	text, ok := s.texts[blocID]
	return text, ok
}
