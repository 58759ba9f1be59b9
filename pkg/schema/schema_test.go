package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sippColumns = Columns{
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

func TestDetect(t *testing.T) {
	header := []string{
		"CurrentTime", "ElapsedTime(C)", "TargetRate", "CallRate(P)",
		"SuccessfulCall(P)", "FailedCall(P)", "ResponseTime1(C)", "CallLength(C)",
		"ResponseTimeRepartition1_<10", "ResponseTimeRepartition1_>=10",
	}

	s, err := Detect(header, sippColumns)
	require.NoError(t, err)

	assert.Empty(t, s.MissingRequired())
	assert.Empty(t, s.MissingOptional())
	assert.Empty(t, s.Warnings())
	assert.Len(t, s.Histogram, 2)

	name, ok := s.Column(FieldCallRate)
	assert.True(t, ok)
	assert.Equal(t, "CallRate(P)", name)
}

func TestDetect_MissingColumnsRecorded(t *testing.T) {
	s, err := Detect([]string{"ElapsedTime(C)", "CallRate(P)"}, sippColumns)
	require.NoError(t, err)

	assert.Equal(t, []Field{FieldTargetRate}, s.MissingRequired())
	assert.Len(t, s.MissingOptional(), len(OptionalFields))

	_, ok := s.Column(FieldTargetRate)
	assert.False(t, ok)

	warnings := s.Warnings()
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0], "TargetRate")
	assert.Contains(t, warnings[len(warnings)-1], "histogram")
}

func TestDetect_EmptyHeader(t *testing.T) {
	_, err := Detect(nil, sippColumns)
	assert.ErrorIs(t, err, ErrEmptyHeader)
}

func TestSuggestColumns(t *testing.T) {
	header := []string{
		"StartTime", "CurrentTime", "ElapsedTime(P)", "ElapsedTime(C)", "TargetRate",
		"CallRate(P)", "CallRate(C)", "SuccessfulCall(P)", "SuccessfulCall(C)",
		"FailedCall(P)", "FailedCall(C)", "ResponseTime1(P)", "ResponseTime1(C)",
		"CallLength(P)", "CallLength(C)", "ResponseTimeRepartition1",
		"ResponseTimeRepartition1_<10", "ResponseTimeRepartition1_>=10",
	}

	assert.Equal(t, sippColumns, SuggestColumns(header))
}

func TestSuggestColumns_OlderSpelling(t *testing.T) {
	got := SuggestColumns([]string{"ElapsedTime", "CallRate", "TargetRate"})

	assert.Equal(t, "ElapsedTime", got.ElapsedTime)
	assert.Equal(t, "CallRate", got.CallRate)
	assert.Equal(t, "TargetRate", got.TargetRate)
	assert.Empty(t, got.CurrentTime)
	assert.Empty(t, got.HistogramPrefix)
}

func TestAliases_ReturnsCopy(t *testing.T) {
	a := Aliases(FieldElapsedTime)
	a[0] = "changed"
	assert.Equal(t, "ElapsedTime(C)", Aliases(FieldElapsedTime)[0])
}

func TestWarnings_SkipsUnconfiguredOptional(t *testing.T) {
	cols := Columns{ElapsedTime: "ElapsedTime(C)", CallRate: "CallRate(P)", TargetRate: "TargetRate"}

	s, err := Detect([]string{"ElapsedTime(C)", "CallRate(P)", "TargetRate"}, cols)
	require.NoError(t, err)

	assert.Len(t, s.MissingOptional(), len(OptionalFields))
	assert.Empty(t, s.Warnings())
}
