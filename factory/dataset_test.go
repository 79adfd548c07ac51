package factory_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/introducer-commission/commission"
	"github.com/warp/introducer-commission/factory"
	"github.com/warp/introducer-commission/generic"
)

const datasetJSON = `{
  "rates": [
    {"label": "個人照顧", "unit_rate": 150},
    {"label": "護理服務", "unit_rate": "380.50"}
  ],
  "profiles": [
    {"introducer": "Joe", "percentage": 20},
    {"introducer": "Ann", "percentage": null}
  ],
  "customers": [{"id": "C001", "name": "Chan Tai Man", "introducer": " Joe "}],
  "records": [
    {"id": "S-1", "customer_id": "C001", "customer_name": "Chan Tai Man",
     "date": "2025-01-05", "hours": 3.5, "fee": "525.00", "category": "個人照顧"},
    {"customer_id": "C001", "customer_name": "Chan Tai Man",
     "date": "2025-01-06", "hours": "2", "fee": 0, "category": "護理"}
  ]
}`

const datasetYAML = `
rates:
  - label: 個人照顧
    unit_rate: 150
profiles:
  - introducer: Joe
    percentage: 20
  - introducer: Ann
    percentage: null
customers:
  - id: C001
    name: Chan Tai Man
    introducer: Joe
records:
  - id: S-1
    customer_id: C001
    customer_name: Chan Tai Man
    date: 2025-01-05
    hours: 3.5
    fee: 525.00
    category: 個人照顧
`

func newFactory() *factory.DatasetFactory {
	f := factory.NewDatasetFactory()
	f.NewID = func() string { return "generated" }
	return f
}

func TestParseDataset_JSON(t *testing.T) {
	d, err := newFactory().ParseDataset([]byte(datasetJSON), factory.FormatJSON)
	require.NoError(t, err)

	require.Len(t, d.Rates, 2)
	assert.Equal(t, "個人照顧", d.Rates[0].Label)
	assert.Equal(t, "380.50", d.Rates[1].UnitRate.StringFixed(2))

	require.Len(t, d.Profiles, 2)
	assert.True(t, d.Profiles[0].Participates())
	assert.Nil(t, d.Profiles[1].Percentage)

	assert.Equal(t, "Joe", d.Customers[0].Introducer, "introducer is trimmed")

	require.Len(t, d.Records, 2)
	assert.Equal(t, generic.RecordID("S-1"), d.Records[0].ID)
	assert.Equal(t, "3.5", d.Records[0].Hours.String())
	assert.Equal(t, "2025-01-05", d.Records[0].Date.String())
	assert.Equal(t, generic.RecordID("generated"), d.Records[1].ID)
}

func TestParseDataset_YAML(t *testing.T) {
	d, err := newFactory().ParseDataset([]byte(datasetYAML), factory.FormatYAML)
	require.NoError(t, err)

	require.Len(t, d.Records, 1)
	assert.Equal(t, "2025-01-05", d.Records[0].Date.String())
	assert.Equal(t, "525.00", d.Records[0].Fee.StringFixed(2))
	require.Len(t, d.Profiles, 2)
	assert.Nil(t, d.Profiles[1].Percentage)
}

func TestParseDataset_ErrorsNameTheEntry(t *testing.T) {
	doc := `{"records": [
		{"id": "ok", "customer_id": "C1", "date": "2025-01-01", "hours": 1, "fee": 1},
		{"id": "bad", "customer_id": "C1", "date": "2025-13-01", "hours": 1, "fee": 1}
	]}`
	_, err := newFactory().ParseDataset([]byte(doc), factory.FormatJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "records[1]")
	assert.ErrorIs(t, err, generic.ErrInvalidDate)

	_, err = newFactory().ParseDataset([]byte(`{"rates": [{"label": "x", "unit_rate": -1}]}`), factory.FormatJSON)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	_, err = newFactory().ParseDataset([]byte(`{"unknown": 1}`), factory.FormatJSON)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestDataset_ToJSONRoundTrip(t *testing.T) {
	f := newFactory()
	d, err := f.ParseDataset([]byte(datasetJSON), factory.FormatJSON)
	require.NoError(t, err)

	data, err := json.Marshal(f.ToJSON(d))
	require.NoError(t, err)

	again, err := f.ParseDataset(data, factory.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, len(d.Records), len(again.Records))
	assert.Nil(t, again.Profiles[1].Percentage)
	assert.True(t, d.Rates[1].UnitRate.Equal(again.Rates[1].UnitRate))
}

func TestParseKeywordRules(t *testing.T) {
	rules, err := factory.ParseKeywordRules([]factory.KeywordRuleJSON{
		{Name: "nursing", Keywords: []string{"護理"}, Rate: "400"},
		{Name: "escort", Keywords: []string{"陪診"}, Rate: "100"},
	})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "nursing", rules[0].Name)

	res, ok := commission.KeywordTable{Rules: rules}.Resolve("陪診護理")
	require.True(t, ok)
	assert.Equal(t, "400", res.Rate.String())

	_, err = factory.ParseKeywordRules([]factory.KeywordRuleJSON{{Name: "x", Rate: "1"}})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, factory.FormatYAML, factory.FormatForPath("seed.YML"))
	assert.Equal(t, factory.FormatYAML, factory.FormatForPath("seed.yaml"))
	assert.Equal(t, factory.FormatJSON, factory.FormatForPath("seed.json"))
}
