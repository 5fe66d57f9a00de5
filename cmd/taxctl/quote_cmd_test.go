package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baladia/taxe/internal/models"
	"github.com/baladia/taxe/internal/tax"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name       string
		opts       quoteOptions
		wantAmount string
	}{
		{
			name:       "built with one service",
			opts:       quoteOptions{propertyType: "built", coveredSurface: 80, services: []string{"public_lighting"}},
			wantAmount: "28.80",
		},
		{
			name:       "legacy type label",
			opts:       quoteOptions{propertyType: "bâti", coveredSurface: 120, services: []string{"Éclairage public"}},
			wantAmount: "57.60",
		},
		{
			name:       "unbuilt high density",
			opts:       quoteOptions{propertyType: "non bâti", totalSurface: 1000, density: "haute"},
			wantAmount: "300.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breakdown, err := quote(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, breakdown.Amount.StringFixed(2))
		})
	}
}

func TestQuote_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts quoteOptions
	}{
		{name: "unknown type", opts: quoteOptions{propertyType: "castle"}},
		{name: "unknown density", opts: quoteOptions{propertyType: "unbuilt", totalSurface: 10, density: "dense"}},
		{name: "unknown service", opts: quoteOptions{propertyType: "built", coveredSurface: 10, services: []string{"valet"}}},
		{name: "negative surface", opts: quoteOptions{propertyType: "built", coveredSurface: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quote(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestQuoteCommand_WritesJSON(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"quote", "--type", "unbuilt", "--total-surface", "500", "--density", "medium"})

	require.NoError(t, cmd.Execute())

	var breakdown tax.Breakdown
	require.NoError(t, json.Unmarshal(out.Bytes(), &breakdown))
	assert.Equal(t, models.PropertyTypeUnbuilt, breakdown.Type)
	assert.Equal(t, "45.00", breakdown.Amount.StringFixed(2))
}

func TestQuoteCommand_RequiresType(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"quote", "--covered-surface", "80"})

	assert.Error(t, cmd.Execute())
}
