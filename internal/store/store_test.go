package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skuforge/internal/model"
	"skuforge/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "data", "skuforge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleTemplate() *model.Template {
	return &model.Template{
		ID:          "tmpl-1",
		Owner:       "op-1",
		Name:        "shoes.xlsm",
		Marketplace: "DE",
		CategoryID:  "shoes",
		Headers:     []string{"SKU", "Title", "Condition"},
		Mappings: map[int]model.FieldMapping{
			0: {Rule: model.ListingRule{Field: model.ListingField{Kind: model.FieldSKU}}},
			1: {Rule: model.ListingRule{Field: model.ListingField{Kind: model.FieldTitle}}},
			2: {Rule: model.TemplateDefaultRule{}, TemplateDefault: "New", AcceptedValues: []string{"New", "Used"}},
		},
		Layout:  model.Layout{SheetName: "Template", HeaderRowIndex: 2, DataStartRowIndex: 6, Confident: true},
		Payload: []byte("PK\x03\x04 workbook bytes"),
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.CreateTemplate(ctx, sampleTemplate()))

	got, err := s.GetTemplate(ctx, "tmpl-1")
	require.NoError(t, err)

	want := sampleTemplate()
	assert.Equal(t, want.Headers, got.Headers)
	assert.Equal(t, want.Mappings, got.Mappings)
	assert.Equal(t, want.Layout, got.Layout)
	assert.Equal(t, want.Payload, got.Payload)
	assert.Equal(t, "op-1", got.Owner)
	assert.False(t, got.CreatedAt.IsZero())

	list, err := s.ListTemplates(ctx, "de")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Columns)
	assert.Equal(t, "Template", list[0].SheetName)

	list, err = s.ListTemplates(ctx, "FR")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTemplateNotFound(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.GetTemplate(ctx, "missing")
	assert.True(t, model.IsNotFound(err))
	assert.True(t, model.IsNotFound(s.DeleteTemplate(ctx, "missing")))
	assert.True(t, model.IsNotFound(s.ReplaceTemplate(ctx, sampleTemplate())))
}

func TestTemplateCorruptPayloadLoadsWithoutBinary(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.CreateTemplate(ctx, sampleTemplate()))

	// 手工破坏 __template_file__
	db := s.DB()
	_, err := db.ExecContext(ctx,
		`UPDATE templates SET mappings_json = json_set(mappings_json, '$.__template_file__', 'not-base64!') WHERE id = ?`,
		"tmpl-1")
	require.NoError(t, err)

	got, err := s.GetTemplate(ctx, "tmpl-1")
	require.NoError(t, err)
	assert.Nil(t, got.Payload)
	assert.Len(t, got.Mappings, 3)
}

func TestReplaceTemplateKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.CreateTemplate(ctx, sampleTemplate()))
	orig, err := s.GetTemplate(ctx, "tmpl-1")
	require.NoError(t, err)

	next := sampleTemplate()
	next.Owner = "someone-else"
	next.Name = "shoes-v2.xlsm"
	next.Headers = []string{"SKU"}
	next.Mappings = map[int]model.FieldMapping{0: {Rule: model.CustomRule{Value: "X"}}}
	require.NoError(t, s.ReplaceTemplate(ctx, next))

	got, err := s.GetTemplate(ctx, "tmpl-1")
	require.NoError(t, err)
	assert.Equal(t, "op-1", got.Owner)
	assert.Equal(t, "shoes-v2.xlsm", got.Name)
	assert.Equal(t, []string{"SKU"}, got.Headers)
	assert.Len(t, got.Mappings, 1)
	assert.True(t, got.CreatedAt.Equal(orig.CreatedAt))
}

func TestUpdateTemplateMappings(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.CreateTemplate(ctx, sampleTemplate()))

	got, err := s.UpdateTemplateMappings(ctx, "tmpl-1", map[int]model.FieldMapping{
		2: {Rule: model.CustomRule{Value: "used"}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.CustomRule{Value: "used"}, got.Mappings[2].Rule)
	assert.Equal(t, []string{"New", "Used"}, got.Mappings[2].AcceptedValues)
	assert.Equal(t, "New", got.Mappings[2].TemplateDefault)

	_, err = s.UpdateTemplateMappings(ctx, "tmpl-1", map[int]model.FieldMapping{
		2: {Rule: model.CustomRule{Value: "Refurbished"}},
	})
	assert.True(t, model.IsValidation(err))

	_, err = s.UpdateTemplateMappings(ctx, "tmpl-1", map[int]model.FieldMapping{
		9: {Rule: model.CustomRule{Value: "x"}},
	})
	assert.True(t, model.IsValidation(err))

	// 失败的编辑不落盘
	reloaded, err := s.GetTemplate(ctx, "tmpl-1")
	require.NoError(t, err)
	assert.Equal(t, model.CustomRule{Value: "used"}, reloaded.Mappings[2].Rule)
	assert.Equal(t, sampleTemplate().Payload, reloaded.Payload)
}

func TestListingsPreserveRequestOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	listings := []model.Listing{
		{ID: "a", SKU: "A", Price: "10", Images: []string{"https://img/a.jpg"}, Base: map[string]any{"title": "Base A"}},
		{ID: "b", SKU: "B", Price: "20", Translations: map[string]model.Copy{"DE": {Title: "B de"}}},
		{SKU: "C"},
	}
	require.NoError(t, s.UpsertListings(ctx, listings))
	assert.NotEmpty(t, listings[2].ID)

	got, err := s.GetListings(ctx, []string{"b", "a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].SKU)
	assert.Equal(t, "B de", got[0].Title("de"))
	assert.Equal(t, "Base A", got[1].Title("DE"))

	all, err := s.GetListings(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = s.GetListings(ctx, []string{"a", "zzz"})
	assert.True(t, model.IsNotFound(err))
}

func TestPricingTables(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	rule := &model.PriceAdjustment{Percentage: 10, IncludeShipping: true}
	require.NoError(t, s.SavePriceAdjustment(ctx, rule))
	assert.Equal(t, model.Wildcard, rule.Marketplace)
	assert.Equal(t, model.Wildcard, rule.CategoryID)

	rules, err := s.ListPriceAdjustments(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, *rule, rules[0])

	require.NoError(t, s.SetExchangeRate(ctx, "de", 0.9))
	require.NoError(t, s.SetExchangeRate(ctx, "DE", 0.95))
	rates, err := s.ListExchangeRates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.ExchangeRate{{Marketplace: "DE", Rate: 0.95}}, rates)

	assert.True(t, model.IsValidation(s.SetExchangeRate(ctx, "FR", 0)))

	require.NoError(t, s.DeletePriceAdjustment(ctx, rule.ID))
	assert.True(t, model.IsNotFound(s.DeletePriceAdjustment(ctx, rule.ID)))
}

func TestImportLogLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	id, err := s.CreateImportLog(ctx, "shoes.xlsm", 1024, "abc123")
	require.NoError(t, err)
	require.NoError(t, s.CompleteImportLog(ctx, id, "tmpl-1", store.ImportStatusSuccess, ""))

	logs, err := s.ListImportLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "tmpl-1", logs[0].TemplateID)
	assert.Equal(t, store.ImportStatusSuccess, logs[0].Status)
	assert.NotNil(t, logs[0].CompletedAt)
}
