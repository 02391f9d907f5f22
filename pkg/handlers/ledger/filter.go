package ledger

import (
	"strings"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
)

var periods = map[string]time.Duration{
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}

// entryFilter selects ledger entries. Zero fields match everything. to is
// exclusive. q matches a ref id exactly, or part of a unique key or ref type
// ignoring case.
type entryFilter struct {
	typ  models.LedgerEntryType
	from time.Time
	to   time.Time
	q    string
}

func (f entryFilter) match(e *models.LedgerEntry) bool {
	if f.typ != "" && e.Type != f.typ {
		return false
	}
	if !f.from.IsZero() && e.CreatedAt.Before(f.from) {
		return false
	}
	if !f.to.IsZero() && !e.CreatedAt.Before(f.to) {
		return false
	}
	if f.q == "" {
		return true
	}
	q := strings.ToLower(f.q)
	return e.RefID == f.q ||
		strings.Contains(strings.ToLower(e.UniqueKey), q) ||
		strings.Contains(strings.ToLower(string(e.RefType)), q)
}

// setPeriod sets from to now minus the named period. "" and "all" leave it open.
func (f *entryFilter) setPeriod(period string, now time.Time) error {
	if period == "" || period == "all" {
		return nil
	}
	d, ok := periods[period]
	if !ok {
		return credit.NewValidationError("period", "must be one of 7d, 30d, 90d, all")
	}
	f.from = now.Add(-d)
	return nil
}

// parseBound reads an RFC 3339 timestamp or a plain date. With endOfDay a
// plain date covers the whole day.
func parseBound(field, raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		if endOfDay {
			return t.Add(time.Nanosecond), nil
		}
		return t, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, credit.NewValidationError(field, "must be a date or an RFC 3339 timestamp")
	}
	if endOfDay {
		return d.AddDate(0, 0, 1), nil
	}
	return d, nil
}
