package output

import (
	"strings"
	"testing"
	"time"

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

const testReport = `CurrentTime;ElapsedTime(C);TargetRate;CallRate(P);SuccessfulCall(P);FailedCall(P);ResponseTime1(C);CallLength(C);ResponseTimeRepartition1;ResponseTimeRepartition1_<10;ResponseTimeRepartition1_>=10;
2024-01-01 10:00:00.000000 1704103200.0;00:00:00:000000;10;9.5;9;1;00:00:00:015000;00:00:01:000000;;5;4;
2024-01-01 10:00:10.000000 1704103210.0;00:00:10:000000;10;10.5;10;0;00:00:00:020000;00:00:01:500000;;12;8;
2024-01-01 10:00:20.000000 1704103220.0;00:00:20:000000;10;abc;10;0;00:00:00:020000;00:00:01:500000;;12;8;
2024-01-01 10:00:30.000000 1704103230.0;00:00:30:000000;10;11;bad;0;00:00:00:020000;00:00:01:500000;;20;10;
`

func buildResult(t *testing.T, w series.Window) (*series.Result, error) {
	t.Helper()
	table, err := parser.ReadTable(strings.NewReader(testReport), ';')
	require.NoError(t, err)
	return series.NewBuilder(testColumns, series.WithWindow(w)).Build(table)
}

func createTestReport(t *testing.T) *Report {
	t.Helper()
	result, err := buildResult(t, series.Unbounded())
	require.NoError(t, err)
	return NewReport(result, Metadata{
		Source:       "stats.csv",
		Digest:       "abc123",
		NormalizedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Duration:     15 * time.Millisecond,
	})
}

func createEmptyReport(t *testing.T) *Report {
	t.Helper()
	w, err := series.NewWindow(500, 600)
	require.NoError(t, err)
	result, err := buildResult(t, w)
	require.Error(t, err)
	return NewReport(result, Metadata{Source: "stats.csv"})
}
