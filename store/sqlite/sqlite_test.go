package sqlite_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/haulfile/tax-engine/generic"
	"github.com/haulfile/tax-engine/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRateTables_UpsertBumpsVersion(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	// GIVEN: a table saved twice under the same id
	require.NoError(t, s.SaveRateTable(ctx, generic.RateTableRecord{ID: "q1", Name: "Q1", ConfigJSON: `{"id":"q1"}`}))
	first, err := s.GetRateTable(ctx, "q1")
	require.NoError(t, err)
	require.NoError(t, s.SaveRateTable(ctx, generic.RateTableRecord{ID: "q1", Name: "Q1 revised", Quarter: "2025Q1", ConfigJSON: `{"id":"q1","v":2}`}))

	// THEN: the second save replaces the content and bumps the version
	got, err := s.GetRateTable(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, "Q1 revised", got.Name)
	assert.Equal(t, "2025Q1", got.Quarter)
	assert.Equal(t, first.CreatedAt, got.CreatedAt)
	assert.False(t, got.UpdatedAt.Before(first.UpdatedAt))
}

func TestRateTables_NotFoundAndList(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.GetRateTable(ctx, "missing")
	assert.ErrorIs(t, err, generic.ErrRateTableNotFound)

	empty, err := s.ListRateTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.SaveRateTable(ctx, generic.RateTableRecord{ID: "b", Name: "Bravo", ConfigJSON: "{}"}))
	require.NoError(t, s.SaveRateTable(ctx, generic.RateTableRecord{ID: "a", Name: "Alpha", ConfigJSON: "{}"}))

	list, err := s.ListRateTables(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alpha", list[0].Name)
	assert.Equal(t, "Bravo", list[1].Name)
}

func TestFilings_AppendOnly(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	f := generic.Filing{
		ID: "f-1", Kind: generic.FilingIFTA, CarrierID: "acme", Period: "2025Q1",
		RateTableID: "q1", RequestJSON: "{}", ResultJSON: "{}", TotalDue: "3.2",
	}
	require.NoError(t, s.SaveFiling(ctx, f))

	got, err := s.GetFiling(ctx, "f-1")
	require.NoError(t, err)
	assert.Equal(t, generic.FilingIFTA, got.Kind)
	assert.Equal(t, generic.CarrierID("acme"), got.CarrierID)
	assert.Equal(t, "3.2", got.TotalDue)
	assert.False(t, got.CreatedAt.IsZero())

	// WHEN: the same id is saved again
	err = s.SaveFiling(ctx, f)

	// THEN: rejected, original untouched
	assert.ErrorIs(t, err, generic.ErrFilingExists)

	_, err = s.GetFiling(ctx, "nope")
	assert.ErrorIs(t, err, generic.ErrFilingNotFound)
}

func TestListFilings_FilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	base := time.Date(2025, time.April, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		carrier := generic.CarrierID("acme")
		kind := generic.FilingIFTA
		if i%2 == 1 {
			carrier = "globex"
			kind = generic.FilingUCR
		}
		require.NoError(t, s.SaveFiling(ctx, generic.Filing{
			ID: generic.FilingID(fmt.Sprintf("f-%d", i)), Kind: kind, CarrierID: carrier,
			RequestJSON: "{}", ResultJSON: "{}", TotalDue: "0",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.ListFilings(ctx, generic.FilingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, generic.FilingID("f-4"), all[0].ID, "newest first")

	acme, err := s.ListFilings(ctx, generic.FilingFilter{CarrierID: "acme"})
	require.NoError(t, err)
	assert.Len(t, acme, 3)

	ucr, err := s.ListFilings(ctx, generic.FilingFilter{Kind: generic.FilingUCR, Limit: 1})
	require.NoError(t, err)
	require.Len(t, ucr, 1)
	assert.Equal(t, generic.FilingID("f-3"), ucr[0].ID)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveRateTable(ctx, generic.RateTableRecord{ID: "a", Name: "A", ConfigJSON: "{}"}))
	require.NoError(t, s.SaveFiling(ctx, generic.Filing{ID: "f", Kind: generic.FilingHVUT, RequestJSON: "{}", ResultJSON: "{}", TotalDue: "0"}))
	require.NoError(t, s.Reset(ctx))

	tables, err := s.ListRateTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)
	filings, err := s.ListFilings(ctx, generic.FilingFilter{})
	require.NoError(t, err)
	assert.Empty(t, filings)
}
