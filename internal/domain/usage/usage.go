// Package usage describes the hardware usage accumulated by a collection.
package usage

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// ParsePeriod parses a period name. An empty string means PeriodTotal.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return PeriodTotal, nil
	case PeriodDay, PeriodMonth, PeriodTotal:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown usage period %q", domain.ErrBadRequest, s)
	}
}

// Bounds returns the UTC interval [start, end) of the period containing now.
// PeriodTotal is unbounded and returns zero times.
func (p Period) Bounds(now time.Time) (start, end time.Time) {
	now = now.UTC()
	switch p {
	case PeriodDay:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1)
	case PeriodMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	default:
		return time.Time{}, time.Time{}
	}
}

// Bucket names the storage bucket of the period containing now, "" for PeriodTotal.
func (p Period) Bucket(now time.Time) string {
	now = now.UTC()
	switch p {
	case PeriodDay:
		return "daily:" + now.Format(time.DateOnly)
	case PeriodMonth:
		return "monthly:" + now.Format("2006-01")
	default:
		return ""
	}
}

// Report is the usage of one collection over a period.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	collection  string
	usage       hardware.Usage
}

// NewReport creates a usage report. start and end are unix millis, zero for PeriodTotal.
func NewReport(period Period, start, end int64, col string, u hardware.Usage) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		collection:  col,
		usage:       u,
	}
}

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the period start timestamp (unix millis).
func (r *Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end timestamp (unix millis).
func (r *Report) PeriodEnd() int64 { return r.periodEnd }

// Collection returns the reported collection.
func (r *Report) Collection() string { return r.collection }

// Usage returns the accumulated counters.
func (r *Report) Usage() hardware.Usage { return r.usage }
