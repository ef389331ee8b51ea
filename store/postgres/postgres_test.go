package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/haulfile/tax-engine/generic"
	"github.com/haulfile/tax-engine/store/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("TAXENGINE_TEST_DSN")
	if dsn == "" {
		t.Skip("TAXENGINE_TEST_DSN not set; skipping postgres store tests")
	}

	ctx := context.Background()
	s, err := postgres.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Reset(ctx))
	return s
}

func TestPostgres_RateTables(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	require.NoError(t, s.SaveRateTable(ctx, generic.RateTableRecord{ID: "q1", Name: "Q1", ConfigJSON: `{"id": "q1"}`}))
	require.NoError(t, s.SaveRateTable(ctx, generic.RateTableRecord{ID: "q1", Name: "Q1b", ConfigJSON: `{"id": "q1"}`}))

	got, err := s.GetRateTable(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, "Q1b", got.Name)

	_, err = s.GetRateTable(ctx, "missing")
	assert.ErrorIs(t, err, generic.ErrRateTableNotFound)
}

func TestPostgres_Filings(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	f := generic.Filing{ID: "f-1", Kind: generic.FilingUCR, CarrierID: "acme", Period: "2025",
		RequestJSON: "{}", ResultJSON: "{}", TotalDue: "138"}
	require.NoError(t, s.SaveFiling(ctx, f))
	assert.ErrorIs(t, s.SaveFiling(ctx, f), generic.ErrFilingExists)

	require.NoError(t, s.SaveFiling(ctx, generic.Filing{ID: "f-2", Kind: generic.FilingUCR, CarrierID: "acme",
		RequestJSON: "{}", ResultJSON: "{}", TotalDue: "46"}))

	list, err := s.ListFilings(ctx, generic.FilingFilter{CarrierID: "acme"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, generic.FilingID("f-2"), list[0].ID)

	_, err = s.GetFiling(ctx, "none")
	assert.ErrorIs(t, err, generic.ErrFilingNotFound)
}
