package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogJSON = `[
  {"name": "Laptop", "price": "350.00", "category": "tech", "stock_quantity": 3},
  {"name": "Mouse", "price": 25, "stock_quantity": 10}
]`

func TestLoadCatalogs_Embedded(t *testing.T) {
	items, err := loadCatalogs(context.Background(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, items)
	for _, p := range items {
		assert.NotEmpty(t, p.Name)
		assert.False(t, p.Price.IsNegative())
	}
}

func TestLoadCatalogs_PlainAndGzip(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "a.json")
	require.NoError(t, os.WriteFile(plain, []byte(catalogJSON), 0o600))

	gzPath := filepath.Join(dir, "b.json.gz")
	f, err := os.Create(gzPath)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(`[{"name": "Mouse", "price": "30"}, {"name": "Monitor", "price": "199.99"}]`))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	items, err := loadCatalogs(context.Background(), []string{plain, gzPath})
	require.NoError(t, err)

	names := make([]string, 0, len(items))
	for _, p := range items {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Laptop", "Mouse", "Monitor"}, names)
	// First occurrence wins.
	assert.True(t, decimal.NewFromInt(25).Equal(items[1].Price))
}

func TestLoadCatalogs_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"name":"not an array"}`), 0o600))

	_, err := loadCatalogs(context.Background(), []string{bad})
	assert.ErrorContains(t, err, "decode catalog")

	_, err = loadCatalogs(context.Background(), []string{filepath.Join(dir, "missing.json")})
	assert.ErrorContains(t, err, "open")
}

func TestDedupeByName(t *testing.T) {
	out := dedupeByName([][]productJSON{
		{{Name: "A"}, {Name: "B"}, {Name: "A"}},
		{{Name: "C"}, {Name: "B"}},
		nil,
	})
	require.Len(t, out, 3)
	assert.Equal(t, "A", out[0].Name)
	assert.Equal(t, "B", out[1].Name)
	assert.Equal(t, "C", out[2].Name)

	assert.Empty(t, dedupeByName(nil))
}
