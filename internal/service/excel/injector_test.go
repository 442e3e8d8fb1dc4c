package excel_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"skuforge/internal/model"
	"skuforge/internal/service/codegen"
	"skuforge/internal/service/excel"
	"skuforge/internal/service/pricing"
)

const (
	templateSheet = "Template"
	notesSheet    = "Notes"
)

// macroTemplate 表头在第 3 行（索引 2），示例行在第 7 行（索引 6），已用区域 A1:F7
func macroTemplate(t *testing.T) []byte {
	t.Helper()

	wb := newWorkbook(t,
		sheetSpec{name: templateSheet, rows: [][]string{
			{"Marketplace upload template"},
			{},
			{"SKU", "Title", "Price", "Condition", "Image 2", "EAN"},
			{"required", "required", "required"},
			{},
			{},
			{"EX-1", "Example title", "9.99", "New", "https://img.example/placeholder.jpg", ""},
		}},
		sheetSpec{name: notesSheet, rows: [][]string{{"Do not edit"}, {"Version", "7"}}},
	)
	require.NoError(t, wb.SetSheetDimension(templateSheet, "A1:F7"))
	return saveMacroWorkbook(t, wb)
}

func macroTemplateModel(t *testing.T) *model.Template {
	listing := func(kind model.ListingFieldKind, n int) model.Rule {
		return model.ListingRule{Field: model.ListingField{Kind: kind, Index: n}}
	}
	return &model.Template{
		ID:      "tmpl-1",
		Headers: []string{"SKU", "Title", "Price"},
		Mappings: map[int]model.FieldMapping{
			0: {Rule: listing(model.FieldSKU, 0), TemplateDefault: "EX-1"},
			1: {Rule: listing(model.FieldTitle, 0), TemplateDefault: "Example title"},
			2: {Rule: listing(model.FieldPrice, 0), TemplateDefault: "9.99"},
		},
		Layout:  model.Layout{SheetName: templateSheet, HeaderRowIndex: 2, DataStartRowIndex: 6, Confident: true},
		Payload: macroTemplate(t),
	}
}

func endToEndResolver() *pricing.Resolver {
	return pricing.NewResolver(
		[]model.PriceAdjustment{{Marketplace: model.Wildcard, CategoryID: model.Wildcard, Percentage: 10, IncludeShipping: true}},
		[]model.ExchangeRate{{Marketplace: "DE", Rate: 0.9}},
	)
}

func testGenerator(t *testing.T) *codegen.Generator {
	t.Helper()

	g, err := codegen.NewGenerator(rand.New(rand.NewPCG(7, 11)), codegen.DefaultEANPrefix)
	require.NoError(t, err)
	return g
}

func openResult(t *testing.T, data []byte) *excelize.File {
	t.Helper()

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = wb.Close() })
	return wb
}

func TestInjectEndToEndPrice(t *testing.T) {
	tmpl := macroTemplateModel(t)
	res, err := excel.NewInjector().Inject(context.Background(), excel.InjectRequest{
		Template:    tmpl,
		Marketplace: "DE",
		Listings: []model.Listing{{
			ID: "l-1", SKU: "SHOE-42", Price: "10.00", ShippingCost: "2.00",
			Optimized: model.Copy{Title: "Trail shoe"},
		}},
		Pricing: endToEndResolver(),
		Codes:   testGenerator(t),
	})
	require.NoError(t, err)
	assert.Equal(t, templateSheet, res.SheetName)
	assert.Equal(t, 1, res.Rows)

	wb := openResult(t, res.Data)
	for cell, want := range map[string]string{"A7": "SHOE-42", "B7": "Trail shoe", "C7": "11.88"} {
		got, err := wb.GetCellValue(templateSheet, cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}

	// 未映射的列保持模板原值
	got, err := wb.GetCellValue(templateSheet, "D7")
	require.NoError(t, err)
	assert.Equal(t, "New", got)

	typ, err := wb.GetCellType(templateSheet, "C7")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
	assert.NotEqual(t, excelize.CellTypeInlineString, typ)
}

func TestInjectPreservesMacrosAndUntouchedSheets(t *testing.T) {
	tmpl := macroTemplateModel(t)
	res, err := excel.NewInjector().Inject(context.Background(), excel.InjectRequest{
		Template:    tmpl,
		Marketplace: "DE",
		Listings:    []model.Listing{{SKU: "A"}, {SKU: "B"}},
		Pricing:     endToEndResolver(),
	})
	require.NoError(t, err)

	before := zipEntries(t, tmpl.Payload)
	after := zipEntries(t, res.Data)

	require.Contains(t, after, "xl/vbaProject.bin")
	assert.Equal(t, before["xl/vbaProject.bin"], after["xl/vbaProject.bin"])
	assert.Equal(t, before["xl/worksheets/sheet2.xml"], after["xl/worksheets/sheet2.xml"])
	assert.Contains(t, string(after["[Content_Types].xml"]), "application/vnd.ms-excel.sheet.macroEnabled.main+xml")

	wb := openResult(t, res.Data)
	got, err := wb.GetCellValue(notesSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "7", got)
	got, err = wb.GetCellValue(templateSheet, "A3")
	require.NoError(t, err)
	assert.Equal(t, "SKU", got)
}

func TestInjectExtendsDimension(t *testing.T) {
	tmpl := macroTemplateModel(t)
	listings := []model.Listing{{SKU: "A"}, {SKU: "B"}, {SKU: "C"}}

	res, err := excel.NewInjector().Inject(context.Background(), excel.InjectRequest{
		Template: tmpl, Marketplace: "DE", Listings: listings,
	})
	require.NoError(t, err)
	assert.Equal(t, "A1:F9", res.Dimension)

	dim, err := openResult(t, res.Data).GetSheetDimension(templateSheet)
	require.NoError(t, err)
	assert.Equal(t, "A1:F9", dim)
}

func TestInjectZeroRecordsKeepsDimension(t *testing.T) {
	tmpl := macroTemplateModel(t)

	res, err := excel.NewInjector().Inject(context.Background(), excel.InjectRequest{
		Template: tmpl, Marketplace: "DE",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rows)

	wb := openResult(t, res.Data)
	dim, err := wb.GetSheetDimension(templateSheet)
	require.NoError(t, err)
	assert.Equal(t, "A1:F7", dim)

	got, err := wb.GetCellValue(templateSheet, "A7")
	require.NoError(t, err)
	assert.Equal(t, "EX-1", got)
}

func TestInjectResolvesEachRuleKind(t *testing.T) {
	tmpl := macroTemplateModel(t)
	tmpl.Mappings = map[int]model.FieldMapping{
		0: {Rule: model.ListingRule{Field: model.ListingField{Kind: model.FieldSKU}}},
		1: {Rule: model.ListingRule{Field: model.ListingField{Kind: model.FieldTitle}}, TemplateDefault: "Fallback title"},
		2: {Rule: model.TemplateDefaultRule{}, TemplateDefault: "19.99"},
		3: {Rule: model.CustomRule{Value: "used"}, AcceptedValues: []string{"New", "Used"}},
		4: {Rule: model.ListingRule{Field: model.ListingField{Kind: model.FieldImage, Index: 2}}},
		5: {Rule: model.RandomRule{Kind: model.RandomEAN13}},
	}

	res, err := excel.NewInjector().Inject(context.Background(), excel.InjectRequest{
		Template:    tmpl,
		Marketplace: "FR",
		Listings: []model.Listing{{
			SKU:    "SKU-9",
			Images: []string{"https://img.example/1.jpg"},
		}},
		Codes: testGenerator(t),
	})
	require.NoError(t, err)

	wb := openResult(t, res.Data)
	cell := func(ref string) string {
		v, err := wb.GetCellValue(templateSheet, ref)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "SKU-9", cell("A7"))
	assert.Equal(t, "Fallback title", cell("B7"))
	assert.Equal(t, "19.99", cell("C7"))
	assert.Equal(t, "Used", cell("D7"))
	assert.Equal(t, "https://img.example/placeholder.jpg", cell("E7"), "missing image keeps the template value")
	assert.True(t, codegen.ValidEAN13(cell("F7")), cell("F7"))
}

func TestInjectTranslatedCopy(t *testing.T) {
	tmpl := macroTemplateModel(t)
	listing := model.Listing{
		SKU:          "SKU-1",
		Cleaned:      model.Copy{Title: "Clean"},
		Optimized:    model.Copy{Title: "Optimized"},
		Translations: map[string]model.Copy{"de": {Title: "Wanderschuh"}},
	}

	for mkt, want := range map[string]string{"DE": "Wanderschuh", "FR": "Optimized"} {
		res, err := excel.NewInjector().Inject(context.Background(), excel.InjectRequest{
			Template: tmpl, Marketplace: mkt, Listings: []model.Listing{listing},
		})
		require.NoError(t, err)
		got, err := openResult(t, res.Data).GetCellValue(templateSheet, "B7")
		require.NoError(t, err)
		assert.Equal(t, want, got, mkt)
	}
}

func TestInjectTemplateIncomplete(t *testing.T) {
	inj := excel.NewInjector()

	for name, payload := range map[string][]byte{"empty": nil, "corrupt": []byte("PK garbage")} {
		tmpl := macroTemplateModel(t)
		tmpl.Payload = payload
		_, err := inj.Inject(context.Background(), excel.InjectRequest{Template: tmpl, Listings: []model.Listing{{SKU: "A"}}})
		require.Error(t, err, name)
		assert.True(t, model.IsTemplateIncomplete(err), name)
	}
}

func TestInjectCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := excel.NewInjector().Inject(ctx, excel.InjectRequest{Template: macroTemplateModel(t)})
	require.ErrorIs(t, err, context.Canceled)
}

func zipEntries(t *testing.T, data []byte) map[string][]byte {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = b
	}
	return out
}
