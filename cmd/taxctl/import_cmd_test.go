package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baladia/taxe/internal/models"
)

const legacyExport = `[
	{
		"id": 7,
		"typeDePropriete": "bati",
		"dateDebutImposition": "2021-03-01",
		"arrondissement": "Tunis", "zone": "Médina", "rue": "Kasbah",
		"cin": "01234567", "nom": "Ben Ali", "prenom": "Sami",
		"email": "sami@example.tn", "adresse": "1 rue X", "telephone": "+216 20 000 000",
		"surfaceCouverte": "80",
		"services": [{"id": "Éclairage public"}]
	},
	{
		"general": {"id": 9, "typeDePropriete": "non bati", "dateDebutImposition": "2019-01-01"},
		"location": {"arrondissement": "Tunis", "zone": "Médina", "rue": "El Hafsia"},
		"owner": {"cin": "07654321", "nom": "Trabelsi", "prenom": "Leila", "email": "leila@example.tn", "adresse": "2 rue Y", "telephone": "+216 22 000 000"},
		"non_bati_details": {"surfaceTotale": 1000, "densiteUrbain": "haute"},
		"archive": true
	}
]`

// fakeImporter assigns ids from 100 and fails for the CINs listed in failFor.
type fakeImporter struct {
	failFor  map[string]bool
	created  []*models.Property
	archived []int64
}

func (f *fakeImporter) CreateProperty(_ context.Context, p *models.Property) (*models.Property, error) {
	if f.failFor[p.Owner.CIN] {
		return nil, errors.New("validation failed")
	}
	copied := *p
	copied.ID = int64(100 + len(f.created))
	copied.TaxAmount = decimal.RequireFromString("12.50")
	f.created = append(f.created, &copied)
	return &copied, nil
}

func (f *fakeImporter) ArchiveProperty(_ context.Context, id int64) (*models.Property, error) {
	f.archived = append(f.archived, id)
	for _, p := range f.created {
		if p.ID == id {
			p.Archived = true
			return p, nil
		}
	}
	return nil, errors.New("not found")
}

func TestDecodeLegacyArticles(t *testing.T) {
	props, err := decodeLegacyArticles([]byte(legacyExport))
	require.NoError(t, err)
	require.Len(t, props, 2)

	assert.Equal(t, models.PropertyTypeBuilt, props[0].Type)
	assert.Equal(t, []string{models.ServiceCleaning, models.ServicePublicLighting}, props[0].Services)
	assert.Equal(t, models.PropertyTypeUnbuilt, props[1].Type)
	assert.Equal(t, "El Hafsia", props[1].Street)
	assert.True(t, props[1].Archived)
}

func TestDecodeLegacyArticles_SingleDocument(t *testing.T) {
	props, err := decodeLegacyArticles([]byte(`  {"typeDePropriete": "bati", "rue": "Kasbah"}`))
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "Kasbah", props[0].Street)
}

func TestDecodeLegacyArticles_Errors(t *testing.T) {
	_, err := decodeLegacyArticles([]byte(`[{"typeDePropriete": "bati"}, {"typeDePropriete": "palace"}]`))
	assert.ErrorContains(t, err, "article 1")

	_, err = decodeLegacyArticles([]byte(`[{"typeDePropriete": `))
	assert.Error(t, err)
}

func TestImportArticles(t *testing.T) {
	// Arrange
	props, err := decodeLegacyArticles([]byte(legacyExport))
	require.NoError(t, err)
	importer := &fakeImporter{}

	// Act
	report := importArticles(context.Background(), importer, props, false)

	// Assert
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Articles, 2)
	assert.Equal(t, int64(7), report.Articles[0].LegacyID)
	assert.Equal(t, int64(100), report.Articles[0].ID)
	assert.Equal(t, "12.50", report.Articles[0].TaxAmount)
	assert.True(t, report.Articles[1].Archived)
	assert.Equal(t, []int64{101}, importer.archived)
	assert.Zero(t, props[0].ID, "legacy ids are not reused")
}

func TestImportArticles_Failures(t *testing.T) {
	props, err := decodeLegacyArticles([]byte(legacyExport))
	require.NoError(t, err)

	report := importArticles(context.Background(), &fakeImporter{failFor: map[string]bool{"01234567": true}}, props, false)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, "validation failed", report.Articles[0].Error)

	props, err = decodeLegacyArticles([]byte(legacyExport))
	require.NoError(t, err)
	report = importArticles(context.Background(), &fakeImporter{failFor: map[string]bool{"01234567": true}}, props, true)
	assert.Equal(t, 0, report.Imported)
	assert.Len(t, report.Articles, 1)
}

func TestImportCommand_DryRunFromStdin(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetIn(bytes.NewBufferString(legacyExport))
	cmd.SetArgs([]string{"import", "--dry-run", "-"})

	require.NoError(t, cmd.Execute())

	var summary map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, 2, summary["articles"])
}
