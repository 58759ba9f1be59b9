// Package series builds the ordered, windowed time series of a report.
package series

import (
	"errors"

	"github.com/ccollicutt/sippstat/pkg/normalize"
	"github.com/ccollicutt/sippstat/pkg/schema"
)

// ErrEmptySeries is returned when an operation needs at least one record.
var ErrEmptySeries = errors.New("series has no records")

// Series is the normalized series: records sorted by elapsed seconds, with the
// histogram bucket ordering they were built with. Treat it as immutable.
type Series struct {
	// Columns is the classified histogram ordering shared by every record.
	Columns []schema.BucketColumn `json:"columns"`

	// Records is sorted by ElapsedSeconds ascending; ties keep file order.
	Records []normalize.Record `json:"records"`
}

// Len returns the number of records. A nil series is empty.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Filter returns the records inside w. Filtering twice with the same window
// yields an identical series.
func (s *Series) Filter(w Window) *Series {
	out := &Series{
		Columns: s.Columns,
		Records: make([]normalize.Record, 0, len(s.Records)),
	}
	for _, rec := range s.Records {
		if w.Contains(rec.ElapsedSeconds) {
			out.Records = append(out.Records, rec)
		}
	}
	return out
}

// Distribution is the response-time histogram of the last record.
//
// SIPp repartition counters accumulate from test start, so the counts are a
// CUMULATIVE distribution up to ElapsedSeconds, not the traffic of a single
// interval.
type Distribution struct {
	ElapsedSeconds int64                `json:"elapsed_seconds"`
	Buckets        []DistributionBucket `json:"buckets"`
}

// DistributionBucket pairs a classified column with its final count.
type DistributionBucket struct {
	schema.BucketColumn
	Count int64 `json:"count"`
}

// Total returns the sum of all bucket counts.
func (d *Distribution) Total() int64 {
	var total int64
	for _, b := range d.Buckets {
		total += b.Count
	}
	return total
}

// FinalDistribution selects the bucket counts of the last record in
// classifier order.
func (s *Series) FinalDistribution() (*Distribution, error) {
	if len(s.Records) == 0 {
		return nil, ErrEmptySeries
	}
	last := s.Records[len(s.Records)-1]

	d := &Distribution{
		ElapsedSeconds: last.ElapsedSeconds,
		Buckets:        make([]DistributionBucket, len(s.Columns)),
	}
	for i, col := range s.Columns {
		d.Buckets[i].BucketColumn = col
		if i < len(last.Histogram) {
			d.Buckets[i].Count = last.Histogram[i].Count
		}
	}
	return d, nil
}
