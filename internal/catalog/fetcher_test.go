package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPage_AdvancesCursor(t *testing.T) {
	src := newFakeSource(listing("a", "b", "c"))
	f := src.fetcher(SourceCatalog)

	records, cur, err := f.FetchPage(context.Background(), NewCursor(2))
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 2, cur.Page)
	assert.Equal(t, 3, cur.Total)
	assert.True(t, cur.Known)
	assert.True(t, cur.HasMore)
	assert.Equal(t, "b", cur.Last)

	records, cur, err = f.FetchPage(context.Background(), cur)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.False(t, cur.HasMore)
	assert.Equal(t, "c", cur.Last)
}

func TestFetchPage_ExhaustedCursorMakesNoCall(t *testing.T) {
	src := newFakeSource(listing("a"))
	f := src.fetcher(SourceCatalog)

	cur := NewCursor(10)
	cur.HasMore = false
	records, next, err := f.FetchPage(context.Background(), cur)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, cur, next)
	assert.Empty(t, src.callLog())
}

func TestFetchPage_ErrorLeavesCursorUnchanged(t *testing.T) {
	src := newFakeSource(listing("a"))
	boom := errors.New("boom")
	src.setFail(1, boom)
	f := src.fetcher(SourceInstalled)

	cur := NewCursor(10)
	records, next, err := f.FetchPage(context.Background(), cur)
	require.Error(t, err)
	assert.Nil(t, records)
	assert.Equal(t, cur, next)

	fe, ok := AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, SourceInstalled, fe.Source)
	assert.Equal(t, 1, fe.Page)
	assert.True(t, fe.Partial())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "fetch installed page 1: boom", err.Error())
}

func TestFetchPage_EmptyPageKeepsCountedPages(t *testing.T) {
	// Count claims more than the server actually returns.
	f := NewFetcher(SourceCatalog, func(context.Context, int, int) ([]Record, int, error) {
		return nil, 250, nil
	})
	records, cur, err := f.FetchPage(context.Background(), NewCursor(100))
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.True(t, cur.HasMore)
	assert.Equal(t, 250, cur.Total)
	assert.Equal(t, 2, cur.Page)

	_, cur, err = f.FetchPage(context.Background(), cur)
	require.NoError(t, err)
	assert.True(t, cur.HasMore)

	_, cur, err = f.FetchPage(context.Background(), cur)
	require.NoError(t, err)
	assert.False(t, cur.HasMore, "page 3 covers the count")
	assert.Equal(t, 3, cur.Fetched())
}

func TestFetchPage_RejectsUnsortedPage(t *testing.T) {
	src := newFakeSource(listing("b", "a"))
	f := src.fetcher(SourceCatalog)

	cur := NewCursor(10)
	_, next, err := f.FetchPage(context.Background(), cur)
	require.Error(t, err)
	assert.Equal(t, cur, next)

	var oe *OrderError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "b", oe.Previous)
	assert.Equal(t, "a", oe.Next)
	assert.Equal(t, 1, oe.Position)
}

func TestOrderErrorNamesCollation(t *testing.T) {
	src := newFakeSource(listing("python-dateutil", "python_abi", "python"))
	_, _, err := src.fetcher(SourceCatalog).FetchPage(context.Background(), NewCursor(10))

	var oe *OrderError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "python_abi", oe.Previous)
	assert.Equal(t, "python", oe.Next)
	assert.Contains(t, err.Error(), "collation")
}

func TestFetchPage_RejectsPageBehindPreviousPage(t *testing.T) {
	src := newFakeSource(listing("a", "c", "b", "d"))
	f := src.fetcher(SourceCatalog)

	_, cur, err := f.FetchPage(context.Background(), NewCursor(2))
	require.NoError(t, err)

	_, _, err = f.FetchPage(context.Background(), cur)
	var oe *OrderError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "c", oe.Previous)
	assert.Equal(t, 0, oe.Position)
}

func TestFetchPage_AllowsRepeatedNames(t *testing.T) {
	src := newFakeSource(listing("numpy=1.0", "numpy=2.0", "numpy=3.0"))
	f := src.fetcher(SourceCatalog)

	_, cur, err := f.FetchPage(context.Background(), NewCursor(2))
	require.NoError(t, err)
	_, _, err = f.FetchPage(context.Background(), cur)
	require.NoError(t, err)
}

func TestFetchPage_CanceledContext(t *testing.T) {
	src := newFakeSource(listing("a"))
	f := src.fetcher(SourceCatalog)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := f.FetchPage(ctx, NewCursor(10))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, src.callLog())
}

func TestDrain(t *testing.T) {
	src := newFakeSource(listing("a", "b", "c", "d", "e"))

	records, cur, err := Drain(context.Background(), src.fetcher(SourceCatalog), 2, 0)
	require.NoError(t, err)
	assert.Len(t, records, 5)
	assert.False(t, cur.HasMore)
	assert.Equal(t, []int{1, 2, 3}, src.callLog())
}

func TestDrain_PageLimit(t *testing.T) {
	src := newFakeSource(listing("a", "b", "c", "d", "e"))

	records, cur, err := Drain(context.Background(), src.fetcher(SourceCatalog), 2, 2)
	require.NoError(t, err)
	assert.Len(t, records, 4)
	assert.True(t, cur.HasMore)
	assert.Equal(t, 2, cur.Fetched())
}

func TestDrain_ReturnsRecordsBeforeFailure(t *testing.T) {
	src := newFakeSource(listing("a", "b", "c"))
	src.setFail(2, errors.New("unavailable"))

	records, cur, err := Drain(context.Background(), src.fetcher(SourceCatalog), 2, 0)
	require.Error(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 2, cur.Page)
}
