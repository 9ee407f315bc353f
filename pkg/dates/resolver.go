// Package dates resolves natural-language date expressions to absolute times.
package dates

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/missive/pkg/domain"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

var (
	weekdayPattern = regexp.MustCompile(`\b(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
	pastPattern    = regexp.MustCompile(`\b(last|past|ago|yesterday|previous)\b`)
	dayPattern     = regexp.MustCompile(`\b(today|tonight|tomorrow|yesterday|jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b|\d{1,4}[/-]\d{1,2}`)
)

// Resolver turns date expressions into absolute timestamps.
// Ambiguous expressions prefer future occurrences.
// A Resolver is safe for concurrent use.
type Resolver struct {
	parser *when.Parser
	loc    *time.Location
}

// NewResolver creates a Resolver interpreting wall-clock times in loc.
// A nil loc means UTC.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Resolver{parser: w, loc: loc}
}

// Location returns the zone the resolver interprets wall-clock times in.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve parses text relative to ref.
//
// ISO-8601 forms are accepted as-is. Natural-language expressions follow a
// prefer-future policy: a weekday without a past marker always resolves to a
// date strictly after ref, and a bare time of day already past today rolls over
// to tomorrow. Unparseable text fails with *domain.InvalidArgumentsError.
func (r *Resolver) Resolve(text string, ref time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return time.Time{}, &domain.InvalidArgumentsError{Reason: "empty date expression"}
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, r.loc); err == nil {
			return t, nil
		}
	}

	ref = ref.In(r.loc)
	lower := strings.ToLower(trimmed)

	res, err := r.parser.Parse(trimmed, ref)
	if err != nil {
		return time.Time{}, &domain.InvalidArgumentsError{Reason: fmt.Sprintf("could not understand date %q", text), Err: err}
	}

	var t time.Time
	switch {
	case res != nil:
		t = res.Time.In(r.loc)
	case weekdayPattern.MatchString(lower):
		t = ref
	default:
		return time.Time{}, &domain.InvalidArgumentsError{Reason: fmt.Sprintf("could not understand date %q", text)}
	}

	if pastPattern.MatchString(lower) {
		return t, nil
	}

	if m := weekdayPattern.FindString(lower); m != "" {
		return nextWeekday(t, ref, weekdays[m]), nil
	}

	if !t.After(ref) && !dayPattern.MatchString(lower) {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

// nextWeekday moves t forward until it falls on want and is strictly after ref.
func nextWeekday(t, ref time.Time, want time.Weekday) time.Time {
	for t.Weekday() != want {
		t = t.AddDate(0, 0, 1)
	}
	for !t.After(ref) {
		t = t.AddDate(0, 0, 7)
	}
	return t
}
