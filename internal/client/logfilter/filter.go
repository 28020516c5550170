// Package logfilter narrows an audit log list by username and date range.
package logfilter

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zktaccess/zktadmin/internal/client/models"
)

const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("date must be YYYY-MM-DD")

// Day is a calendar date without a zone. The zero value means "no bound".
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

func (d Day) IsZero() bool { return d == Day{} }

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// ParseDate parses "YYYY-MM-DD". An empty string is the zero Day.
func ParseDate(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Day{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Day{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// Query selects log entries. Empty fields do not constrain.
type Query struct {
	Username string
	Start    Day
	End      Day
}

func (q Query) IsZero() bool {
	return strings.TrimSpace(q.Username) == "" && q.Start.IsZero() && q.End.IsZero()
}

// bounds returns the inclusive instants of q in loc: local midnight of Start
// and 23:59:59.999 of End.
func (q Query) bounds(loc *time.Location) (from, to time.Time) {
	if !q.Start.IsZero() {
		from = time.Date(q.Start.Year, q.Start.Month, q.Start.Day, 0, 0, 0, 0, loc)
	}
	if !q.End.IsZero() {
		to = time.Date(q.End.Year, q.End.Month, q.End.Day, 23, 59, 59, int(999*time.Millisecond), loc)
	}
	return from, to
}

// Filter returns the entries of src matching q, in their original order. Day
// bounds are taken in loc (time.Local when nil). src is not modified; the
// result is always a new slice. Entries without a valid time cannot be
// placed before or after a bound, so date bounds never exclude them.
func Filter(src []models.LogEntry, q Query, loc *time.Location) []models.LogEntry {
	if loc == nil {
		loc = time.Local
	}
	needle := strings.ToLower(strings.TrimSpace(q.Username))
	from, to := q.bounds(loc)

	out := make([]models.LogEntry, 0, len(src))
	for _, e := range src {
		if needle != "" && !strings.Contains(strings.ToLower(e.Username), needle) {
			continue
		}
		if e.Time.Valid {
			if !from.IsZero() && e.Time.Time.Before(from) {
				continue
			}
			if !to.IsZero() && e.Time.Time.After(to) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// Usernames returns the distinct usernames of entries, sorted, for quick
// selection.
func Usernames(entries []models.LogEntry) []string {
	seen := make(map[string]struct{}, len(entries))
	names := make([]string, 0)
	for _, e := range entries {
		if e.Username == "" {
			continue
		}
		if _, ok := seen[e.Username]; ok {
			continue
		}
		seen[e.Username] = struct{}{}
		names = append(names, e.Username)
	}
	sort.Strings(names)
	return names
}
