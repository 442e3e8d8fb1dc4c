package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListingField(t *testing.T) {
	f, err := ParseListingField("image_3")
	require.NoError(t, err)
	assert.Equal(t, ListingField{Kind: FieldImage, Index: 3}, f)
	assert.Equal(t, "image_3", f.String())

	f, err = ParseListingField(" Title ")
	require.NoError(t, err)
	assert.Equal(t, FieldTitle, f.Kind)

	for _, bad := range []string{"", "image", "image_0", "bullet_x", "color_1", "price_2"} {
		_, err := ParseListingField(bad)
		assert.Error(t, err, bad)
	}
}

func TestFieldMappingUnmarshalRequiresMatchingFields(t *testing.T) {
	cases := map[string]string{
		"missing source":         `{"listingField":"title"}`,
		"unknown source":         `{"source":"formula"}`,
		"listing with default":   `{"source":"listing","listingField":"title","defaultValue":"x"}`,
		"custom with field":      `{"source":"custom","listingField":"title"}`,
		"random without type":    `{"source":"random"}`,
		"random with bad type":   `{"source":"random","randomType":"uuid"}`,
		"template default extra": `{"source":"template_default","randomType":"ean13"}`,
	}
	for name, doc := range cases {
		var m FieldMapping
		assert.Error(t, json.Unmarshal([]byte(doc), &m), name)
	}
}

func TestFieldMappingJSONKeepsRule(t *testing.T) {
	in := FieldMapping{
		Rule:            CustomRule{Value: "New"},
		TemplateDefault: "Used",
		AcceptedValues:  []string{"New", "Used"},
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"custom","defaultValue":"New","templateDefault":"Used","acceptedValues":["New","Used"]}`, string(b))

	var out FieldMapping
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)

	b, err = json.Marshal(FieldMapping{Rule: ListingRule{Field: ListingField{Kind: FieldBullet, Index: 2}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"listing","listingField":"bullet_2"}`, string(b))
}

func TestFieldMappingValidateAcceptedValues(t *testing.T) {
	m := FieldMapping{Rule: CustomRule{Value: "new"}, AcceptedValues: []string{"New", "Used"}}
	assert.NoError(t, m.Validate())

	m.Rule = CustomRule{Value: "Refurbished"}
	err := m.Validate()
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	assert.Error(t, FieldMapping{}.Validate())
}

func TestMappingDocumentSentinels(t *testing.T) {
	payload := []byte("PK\x03\x04 fake workbook bytes")
	mappings := map[int]FieldMapping{
		0: {Rule: ListingRule{Field: ListingField{Kind: FieldSKU}}},
		4: {Rule: TemplateDefaultRule{}, TemplateDefault: "Parent"},
	}
	layout := Layout{SheetName: "Template", HeaderRowIndex: 2, DataStartRowIndex: 6, Confident: true}

	data, err := EncodeMappingDocument(mappings, layout, payload)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, KeyTemplateFile)
	assert.Equal(t, "Template", raw[KeySheetName])

	doc, err := DecodeMappingDocument(data)
	require.NoError(t, err)
	assert.Equal(t, layout, doc.Layout)
	assert.Equal(t, mappings, doc.Mappings)

	got, err := DecodePayload(doc.File)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestMappingDocumentRejectsUnknownKey(t *testing.T) {
	_, err := DecodeMappingDocument([]byte(`{"__file__":"x"}`))
	assert.Error(t, err)

	_, err = DecodePayload("not base64!")
	assert.Error(t, err)
}
