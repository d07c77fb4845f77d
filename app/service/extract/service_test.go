package extract

import (
	"testing"

	"blocdesk/app/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(t *testing.T) *Service {
	t.Helper()

	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)

	return NewExtractor(catalog.Extract)
}

func TestExtract_DurationCanonicalization(t *testing.T) {
	svc := newTestExtractor(t)

	cases := []struct {
		text string
		days int
	}{
		{"2 mois", 60},
		{"10 jours", 10},
		{"1 semaine", 7},
		{"1 mois et 5 jours", 35},
		{"5 months ago", 150},
		{"3 weeks and 2 days", 23},
		{"ca fait 1 an", 365},
	}

	for _, tc := range cases {
		info := svc.Extract(tc.text)
		require.NotNil(t, info.ElapsedDays, "text: %q", tc.text)
		assert.Equal(t, tc.days, *info.ElapsedDays, "text: %q", tc.text)
	}
}

func TestExtract_NoDurationToken(t *testing.T) {
	svc := newTestExtractor(t)

	for _, text := range []string{"", "hello", "I haven't been paid", "some day soon"} {
		info := svc.Extract(text)
		assert.Nil(t, info.ElapsedDays, "text: %q", text)
	}
}

func TestExtract_CaseAndDiacriticInsensitive(t *testing.T) {
	svc := newTestExtractor(t)

	info := svc.Extract("Ça fait 2 MOIS   déjà")
	require.NotNil(t, info.ElapsedDays)
	assert.Equal(t, 60, *info.ElapsedDays)
}

func TestExtract_FinancingPrecedence(t *testing.T) {
	svc := newTestExtractor(t)

	cases := []struct {
		text string
		want FinancingType
	}{
		{"I paid it myself", FinancingDirect},
		{"it was opco funded", FinancingOPCO},
		{"cpf", FinancingCPF},
		// direct markers win regardless of phrase order
		{"cpf but actually I paid it myself", FinancingDirect},
		{"paid it myself, was supposed to be cpf", FinancingDirect},
		// opco wins over a bare cpf mention
		{"cpf then moved to opco", FinancingOPCO},
		{"no clue how it was financed", FinancingUnknown},
		{"", FinancingUnknown},
	}

	for _, tc := range cases {
		info := svc.Extract(tc.text)
		assert.Equal(t, tc.want, info.FinancingType, "text: %q", tc.text)
	}
}

func TestExtract_PureFunction(t *testing.T) {
	svc := newTestExtractor(t)

	first := svc.Extract("cpf, 5 months ago")
	second := svc.Extract("cpf, 5 months ago")

	assert.Equal(t, first.FinancingType, second.FinancingType)
	require.NotNil(t, first.ElapsedDays)
	require.NotNil(t, second.ElapsedDays)
	assert.Equal(t, *first.ElapsedDays, *second.ElapsedDays)
}
