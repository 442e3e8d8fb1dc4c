package excel_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skuforge/internal/model"
	"skuforge/internal/service/excel"
)

var marketplaceHeaders = []string{
	"SKU",
	"Item Name",
	"Brand Name",
	"External Product ID",
	"Main Image URL",
	"Other Image URL1",
	"Bullet Point 1",
	"Bullet Point 2",
	"Standard Price",
	"Condition Type",
	"Product Type",
	"Shipping Cost",
	"",
	"Parent SKU",
}

func marketplaceTemplate(t *testing.T) []byte {
	t.Helper()

	rows := [][]string{
		{"TemplateType=fptcustom", "Version=2024.1"},
		{"Fill in the rows below"},
		{},
		{"Basic", "", "", "Images"},
		{},
		marketplaceHeaders,
		{"Required", "Required", "Required", "Optional", "Optional"},
		{"Example: ABC-1", "Example: Shoe"},
		{},
		{"", "", "", "", "", "", "", "", "", "New", "", "", "", ""},
	}
	values := [][]string{
		{"Some guidance text"},
		{"Field Name", "Valid Values"},
		{"Condition Type", "New"},
		{"", "Used"},
		{"", "New"},
		{"", "None"},
		{"Product Type", "Shoes"},
		{"Field Name", "Valid Value"},
		{"", "Boots"},
	}

	return workbookBytes(t, newWorkbook(t,
		sheetSpec{name: "Instructions", rows: [][]string{{"read me"}}},
		sheetSpec{name: "Template", rows: rows},
		sheetSpec{name: "Valid Values", rows: values},
	))
}

func TestInferHeaderAndDataStart(t *testing.T) {
	res, err := excel.NewInferencer().Infer(marketplaceTemplate(t))
	require.NoError(t, err)

	assert.Equal(t, "Template", res.Sheet.SheetName)
	assert.False(t, res.Sheet.Positional)
	assert.Equal(t, 5, res.HeaderRowIndex)
	assert.Equal(t, 9, res.DataStartRowIndex)
	assert.True(t, res.Confident)
	if diff := cmp.Diff(marketplaceHeaders, res.Headers); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}

	layout := res.Layout()
	assert.Equal(t, model.Layout{SheetName: "Template", HeaderRowIndex: 5, DataStartRowIndex: 9, Confident: true}, layout)

	require.Len(t, res.Sheets, 3)
	assert.Equal(t, model.SheetRoleUnknown, res.Sheets["Instructions"].Role)
	assert.Equal(t, model.SheetRoleTemplate, res.Sheets["Template"].Role)
	assert.Equal(t, model.SheetRoleValidValues, res.Sheets["Valid Values"].Role)
}

func TestInferForwardFillsEnumerations(t *testing.T) {
	res, err := excel.NewInferencer().Infer(marketplaceTemplate(t))
	require.NoError(t, err)

	assert.Equal(t, "Valid Values", res.EnumerationSheet)
	want := map[string][]string{
		"condition type": {"New", "Used"},
		"product type":   {"Shoes", "Boots"},
	}
	if diff := cmp.Diff(want, res.Enumerations); diff != "" {
		t.Fatalf("enumerations mismatch (-want +got):\n%s", diff)
	}
}

func TestInferClassifiesColumns(t *testing.T) {
	res, err := excel.NewInferencer().Infer(marketplaceTemplate(t))
	require.NoError(t, err)

	listing := func(kind model.ListingFieldKind, n int) model.Rule {
		return model.ListingRule{Field: model.ListingField{Kind: kind, Index: n}}
	}
	wantRules := map[int]model.Rule{
		0:  listing(model.FieldSKU, 0),
		1:  listing(model.FieldTitle, 0),
		2:  listing(model.FieldBrand, 0),
		3:  model.RandomRule{Kind: model.RandomEAN13},
		4:  listing(model.FieldImage, 1),
		5:  listing(model.FieldImage, 2),
		6:  listing(model.FieldBullet, 1),
		7:  listing(model.FieldBullet, 2),
		8:  listing(model.FieldPrice, 0),
		9:  model.TemplateDefaultRule{},
		10: model.CustomRule{},
		11: listing(model.FieldShipping, 0),
		13: model.CustomRule{},
	}
	require.Len(t, res.Mappings, len(wantRules))
	for col, rule := range wantRules {
		assert.Equal(t, rule, res.Mappings[col].Rule, "column %d (%s)", col, res.Headers[col])
	}

	_, mapped := res.Mappings[12]
	assert.False(t, mapped, "empty header must not be mapped")

	cond := res.Mappings[9]
	assert.Equal(t, "New", cond.TemplateDefault)
	assert.Equal(t, []string{"New", "Used"}, cond.AcceptedValues)
	assert.Equal(t, []string{"Shoes", "Boots"}, res.Mappings[10].AcceptedValues)
}

func TestInferFallsBackWithoutMarkers(t *testing.T) {
	wide := func(prefix string) []string {
		return []string{prefix + "1", prefix + "2", prefix + "3", prefix + "4", prefix + "5"}
	}
	data := workbookBytes(t, newWorkbook(t, sheetSpec{
		name: "Template",
		rows: [][]string{wide("a"), wide("b"), wide("c"), wide("colour"), wide("e")},
	}))

	res, err := excel.NewInferencer().Infer(data)
	require.NoError(t, err)

	assert.Equal(t, 3, res.HeaderRowIndex)
	assert.Equal(t, 7, res.DataStartRowIndex)
	assert.False(t, res.Confident)
	assert.Equal(t, wide("colour"), res.Headers)
	assert.Empty(t, res.Enumerations)
}

func TestInferUsesPositionalSheet(t *testing.T) {
	data := workbookBytes(t, newWorkbook(t,
		sheetSpec{name: "Read Me", rows: [][]string{{"nothing here"}}},
		sheetSpec{name: "Daten", rows: [][]string{{"SKU", "Item Name", "Price", "Brand", "Colour"}}},
	))

	res, err := excel.NewInferencer().Infer(data)
	require.NoError(t, err)
	assert.Equal(t, "Daten", res.Sheet.SheetName)
	assert.True(t, res.Sheet.Positional)
	assert.Equal(t, 0, res.HeaderRowIndex)
	assert.Equal(t, 4, res.DataStartRowIndex)
}

func TestInferNoRecognizableSchema(t *testing.T) {
	data := workbookBytes(t, newWorkbook(t, sheetSpec{
		name: "Template",
		rows: [][]string{{"SKU", "Title"}, {"a", "b", "c", "d"}},
	}))

	_, err := excel.NewInferencer().Infer(data)
	require.Error(t, err)
	assert.True(t, model.IsSchemaNotFound(err))
	assert.Contains(t, err.Error(), "no recognizable schema")
}

func TestInferRejectsNonWorkbook(t *testing.T) {
	_, err := excel.NewInferencer().Infer([]byte("not a workbook"))
	require.Error(t, err)
	assert.False(t, model.IsSchemaNotFound(err))
}

func TestInferMissingEnumerationLayoutDegrades(t *testing.T) {
	data := workbookBytes(t, newWorkbook(t,
		sheetSpec{name: "Template", rows: [][]string{{"SKU", "Item Name", "Price", "Brand", "Colour"}}},
		sheetSpec{name: "Valid Values", rows: [][]string{{"Colour", "Red"}, {"", "Blue"}}},
	))

	res, err := excel.NewInferencer().Infer(data)
	require.NoError(t, err)
	assert.Equal(t, "Valid Values", res.EnumerationSheet)
	assert.Empty(t, res.Enumerations)
}

func TestClassifyHeaderLocales(t *testing.T) {
	cases := map[string]excel.ColumnRole{
		"Artikelnummer":      excel.RoleSKU,
		"Titel":              excel.RoleTitle,
		"Nom du produit":     excel.RoleTitle,
		"Marque":             excel.RoleBrand,
		"Beschreibung":       excel.RoleDescription,
		"Prezzo":             excel.RolePrice,
		"Versandkosten":      excel.RoleShipping,
		"画像URL":              excel.RoleImage,
		"GTIN":               excel.RoleExternalID,
		"Aufzählungspunkt 3": excel.RoleBullet,
		"  Item  Name  ":     excel.RoleTitle,
	}
	for header, want := range cases {
		got, ok := excel.ClassifyHeader(header)
		require.True(t, ok, header)
		assert.Equal(t, want, got, header)
	}

	for _, header := range []string{"Parent SKU", "External Product ID Type", "Sale Price", "Currency Price", ""} {
		_, ok := excel.ClassifyHeader(header)
		assert.False(t, ok, header)
	}
}

func TestClassifyHeaderMatchesWholeWords(t *testing.T) {
	cases := map[string]excel.ColumnRole{
		"Marca":               excel.RoleBrand,
		"Merk":                excel.RoleBrand,
		"Merk (verplicht)":    excel.RoleBrand,
		"Other Image URL3":    excel.RoleImage,
		"item_name":           excel.RoleTitle,
		"Product-Titel":       excel.RoleTitle,
		"商品名称":                excel.RoleTitle,
		"Bullet Point 5":      excel.RoleBullet,
	}
	for header, want := range cases {
		got, ok := excel.ClassifyHeader(header)
		require.True(t, ok, header)
		assert.Equal(t, want, got, header)
	}

	// 标记词只出现在其他单词内部
	for _, header := range []string{"Besondere Merkmale", "Marcatura CE", "Subtitle", "Subtitles", "Pricelist Notes"} {
		_, ok := excel.ClassifyHeader(header)
		assert.False(t, ok, header)
	}
}
