package schema

import "strings"

// knownAliases lists header spellings seen across SIPp versions, most common
// first. Cumulative "(C)" columns are preferred for averages, period "(P)"
// columns for per-interval counts and rates.
var knownAliases = map[Field][]string{
	FieldElapsedTime:     {"ElapsedTime(C)", "ElapsedTime"},
	FieldCallRate:        {"CallRate(P)", "CallRate", "CallRate(C)"},
	FieldTargetRate:      {"TargetRate", "TargetRate(P)"},
	FieldCurrentTime:     {"CurrentTime", "CurrentTime(C)"},
	FieldSuccessfulCalls: {"SuccessfulCall(P)", "SuccessfulCall"},
	FieldFailedCalls:     {"FailedCall(P)", "FailedCall"},
	FieldResponseTime:    {"ResponseTime1(C)", "ResponseTime1(P)", "ResponseTime(C)"},
	FieldCallLength:      {"CallLength(C)", "CallLength(P)"},
}

var knownHistogramPrefixes = []string{
	"ResponseTimeRepartition1",
	"ResponseTimeRepartition",
	"CallLengthRepartition",
}

// Aliases returns the known header spellings for a field.
func Aliases(f Field) []string {
	return append([]string(nil), knownAliases[f]...)
}

// SuggestColumns guesses a column configuration from a header using the known
// SIPp spellings. Fields with no recognisable column are left empty.
func SuggestColumns(header []string) Columns {
	names := make(map[string]bool, len(header))
	for _, h := range header {
		names[h] = true
	}

	pick := func(f Field) string {
		for _, alias := range knownAliases[f] {
			if names[alias] {
				return alias
			}
		}
		return ""
	}

	cols := Columns{
		ElapsedTime:     pick(FieldElapsedTime),
		CallRate:        pick(FieldCallRate),
		TargetRate:      pick(FieldTargetRate),
		CurrentTime:     pick(FieldCurrentTime),
		SuccessfulCalls: pick(FieldSuccessfulCalls),
		FailedCalls:     pick(FieldFailedCalls),
		ResponseTime:    pick(FieldResponseTime),
		CallLength:      pick(FieldCallLength),
	}

	for _, prefix := range knownHistogramPrefixes {
		if hasPrefixedColumn(header, prefix+"_") {
			cols.HistogramPrefix = prefix
			break
		}
	}

	return cols
}

func hasPrefixedColumn(header []string, marker string) bool {
	for _, h := range header {
		if strings.HasPrefix(h, marker) && len(h) > len(marker) {
			return true
		}
	}
	return false
}
