package cache

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/sippstat/pkg/parser"
	"github.com/ccollicutt/sippstat/pkg/schema"
	"github.com/ccollicutt/sippstat/pkg/series"
)

var testColumns = schema.Columns{
	ElapsedTime:     "ElapsedTime(C)",
	CallRate:        "CallRate(P)",
	TargetRate:      "TargetRate",
	CurrentTime:     "CurrentTime",
	SuccessfulCalls: "SuccessfulCall(P)",
	FailedCalls:     "FailedCall(P)",
	ResponseTime:    "ResponseTime1(C)",
	CallLength:      "CallLength(C)",
	HistogramPrefix: "ResponseTimeRepartition1",
}

const testReport = `CurrentTime;ElapsedTime(C);TargetRate;CallRate(P);SuccessfulCall(P);FailedCall(P);ResponseTime1(C);CallLength(C);ResponseTimeRepartition1_<10;ResponseTimeRepartition1_>=10;
2024-01-01 10:00:00.250000 1704103200.250000;00:00:00:000000;10;9.5;9;1;00:00:00:015250;00:00:01:000000;5;4;
2024-01-01 10:00:10.000000 1704103210.000000;00:00:10:000000;10;10.1;10;0;00:00:00:020000;00:00:01:500000;12;x;
;00:00:20:000000;10;11;10;0;00:00:00:020000;00:00:01:500000;20;10;
2024-01-01 10:00:30.000000 1704103230.000000;00:00:30:000000;10;;10;0;00:00:00:020000;00:00:01:500000;20;10;
`

func buildResult(t *testing.T, report string) *series.Result {
	t.Helper()
	table, err := parser.ReadTable(strings.NewReader(report), ';')
	require.NoError(t, err)
	result, err := series.NewBuilder(testColumns).Build(table)
	require.NoError(t, err)
	return result
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache", "sippstat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	want := buildResult(t, testReport)
	require.Equal(t, 3, want.Series.Len())
	require.NotEmpty(t, want.Diagnostics)

	key := Key(Digest([]byte(testReport)), testColumns, ';')
	require.NoError(t, s.Save(ctx, key, "stats.csv", want))

	got, err := s.Load(ctx, key)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_RoundTripWithoutHistogram(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	report := "ElapsedTime(C);CallRate(P);TargetRate\n00:00:01;1;1\n00:00:02;2;2\n"
	want := buildResult(t, report)
	require.Nil(t, want.Series.Columns)
	require.Nil(t, want.Diagnostics)

	require.NoError(t, s.Save(ctx, "k", "bare.csv", want))
	got, err := s.Load(ctx, "k")
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_RoundTripDistantTimestamps(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	report := `CurrentTime;ElapsedTime(C);TargetRate;CallRate(P);
0001-01-01 00:00:00.000001 0;00:00:00:000000;10;10;
1500-01-01 10:00:00.500000 0;00:00:10:000000;10;10;
2400-01-01 10:00:00 0;00:00:20:000000;10;10;
9999-12-31 23:59:59.999999 0;00:00:30:000000;10;10;
`
	want := buildResult(t, report)
	require.Equal(t, 4, want.Series.Len())
	for _, rec := range want.Series.Records {
		require.True(t, rec.Timestamp.Valid)
	}

	require.NoError(t, s.Save(ctx, "k", "distant.csv", want))
	got, err := s.Load(ctx, "k")
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1500, got.Series.Records[1].Timestamp.Time.Year())
	assert.Equal(t, 2400, got.Series.Records[2].Timestamp.Time.Year())
}

func TestOpen_RebuildsStaleSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sippstat.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "k", "stats.csv", buildResult(t, testReport)))
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Load(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Save(ctx, "k", "stats.csv", buildResult(t, testReport)))
}

func TestStore_LoadMissing(t *testing.T) {
	s := openStore(t)

	_, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SaveReplacesAndDelete(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	first := buildResult(t, testReport)
	second := buildResult(t, "ElapsedTime(C);CallRate(P);TargetRate\n00:00:01;1;1\n")

	require.NoError(t, s.Save(ctx, "k", "a.csv", first))
	require.NoError(t, s.Save(ctx, "k", "b.csv", second))

	got, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Series.Len())
	assert.Empty(t, got.Series.Columns)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Load(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, "k"))
}

func TestStore_WindowAfterLoad(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "k", "stats.csv", buildResult(t, testReport)))
	got, err := s.Load(ctx, "k")
	require.NoError(t, err)

	w, _ := series.NewWindow(5, 25)
	windowed, err := got.Windowed(w)
	require.NoError(t, err)
	assert.Equal(t, 2, windowed.Series.Len())
	assert.Equal(t, 1, windowed.RowsOutsideWindow)
}

func TestKey(t *testing.T) {
	digest := Digest([]byte(testReport))
	assert.Len(t, digest, 64)
	assert.Equal(t, digest, Digest([]byte(testReport)))

	base := Key(digest, testColumns, ';')
	assert.Equal(t, base, Key(digest, testColumns, ';'))
	assert.NotEqual(t, base, Key(digest, testColumns, ','))

	other := testColumns
	other.HistogramPrefix = "ResponseTimeRepartition2"
	assert.NotEqual(t, base, Key(digest, other, ';'))
	assert.NotEqual(t, base, Key(Digest([]byte("x")), testColumns, ';'))
}
