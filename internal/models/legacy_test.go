package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyArticle_Flat(t *testing.T) {
	data := []byte(`{
		"id": 7,
		"typeDePropriete": "bati",
		"dateDebutImposition": "2021-03-01",
		"arrondissement": "Tunis", "zone": "Médina", "rue": "Kasbah",
		"x": "10.17", "y": "36.80",
		"cin": "01234567", "nom": "Ben Ali", "prenom": "Sami",
		"email": "sami@example.tn", "adresse": "1 rue X", "telephone": "+216 20 000 000",
		"surfaceCouverte": "120.5",
		"services": [{"id": "Nettoyage"}, {"id": "Éclairage public"}],
		"autreService": "Gardiennage",
		"archive": true
	}`)

	a, err := ParseLegacyArticle(data)
	require.NoError(t, err)
	p, err := a.ToProperty()
	require.NoError(t, err)

	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, PropertyTypeBuilt, p.Type)
	assert.Equal(t, time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), p.TaxStartDate)
	assert.Equal(t, "Kasbah", p.Street)
	assert.Equal(t, "Sami", p.Owner.FirstName)
	assert.Equal(t, "Ben Ali", p.Owner.LastName)
	require.NotNil(t, p.CoveredSurface)
	assert.Equal(t, 120.5, *p.CoveredSurface)
	assert.Equal(t, []string{ServiceCleaning, ServicePublicLighting}, p.Services)
	assert.Equal(t, "Gardiennage", p.OtherServices)
	require.NotNil(t, p.Location)
	assert.Equal(t, 36.80, p.Location.Lat)
	assert.Equal(t, 10.17, p.Location.Lng)
	assert.True(t, p.Archived)
	assert.Equal(t, PropertyStatusActive, p.Status)
}

func TestLegacyArticle_Nested(t *testing.T) {
	data := []byte(`{
		"general": {"id": 3, "typeDePropriete": "non bati", "dateDebutImposition": "2019-01-01"},
		"location": {"arrondissement": "Tunis", "zone": "Séjoumi", "rue": "Cité Ennour"},
		"owner": {"cin": "9", "nom": "Trabelsi", "prenom": "Leila", "email": "l@example.tn", "adresse": "a", "telephone": "t"},
		"non_bati_details": {"surfaceTotale": 1000, "densiteUrbain": "haute"}
	}`)

	a, err := ParseLegacyArticle(data)
	require.NoError(t, err)
	p, err := a.ToProperty()
	require.NoError(t, err)

	assert.Equal(t, int64(3), p.ID)
	assert.Equal(t, PropertyTypeUnbuilt, p.Type)
	assert.Equal(t, "Séjoumi", p.Zone)
	assert.Equal(t, "Leila", p.Owner.FirstName)
	require.NotNil(t, p.TotalSurface)
	assert.Equal(t, 1000.0, *p.TotalSurface)
	require.NotNil(t, p.Density)
	assert.Equal(t, DensityHigh, *p.Density)
	assert.Empty(t, p.Services)
	assert.Nil(t, p.Location)
}

func TestLegacyArticle_Errors(t *testing.T) {
	_, err := ParseLegacyArticle([]byte(`{"surfaceCouverte": "abc"}`))
	assert.Error(t, err)

	a, err := ParseLegacyArticle([]byte(`{"typeDePropriete": "palace"}`))
	require.NoError(t, err)
	_, err = a.ToProperty()
	assert.Error(t, err)

	a, err = ParseLegacyArticle([]byte(`{"typeDePropriete": "bati", "dateDebutImposition": "01/02/2020"}`))
	require.NoError(t, err)
	_, err = a.ToProperty()
	assert.Error(t, err)
}
