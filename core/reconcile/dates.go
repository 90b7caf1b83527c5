package reconcile

import (
	"regexp"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

// dateLayouts are tried in order before falling back to the lenient parser.
// Layouts without a year are completed from the reference time.
var dateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"Monday, January 2, 2006 3:04 PM",
	"Monday, January 2, 2006 3:04PM",
	"Monday, 2 January 2006 3:04 PM",
	"Mon, Jan 2, 2006 3:04 PM",
	"Mon, Jan 2, 2006, 3:04 PM",
	"Mon, 2 Jan 2006 3:04 PM",
	"Mon 2 Jan 2006 3:04 PM",
	"Jan 2, 2006 3 PM",
	"2 Jan 2006 3 PM",
	"January 2, 2006 3:04 PM",
	"Jan 2, 2006 3:04 PM",
	"2 January 2006 3:04 PM",
	"2 Jan 2006 15:04",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02/01/2006 15:04",
	"02/01/2006 3:04 PM",
	"02/01/2006",
	"Mon, Jan 2, 3:04 PM",
	"Mon, Jan 2 3:04 PM",
	"Monday, January 2, 3:04 PM",
	"Mon 2 Jan, 3:04 PM",
	"Mon 2 Jan 3:04 PM",
	"Jan 2, 3:04 PM",
	"2 Jan 3:04 PM",
}

// lenientFormats extends jinzhu/now with a few listing styles it does not know.
var lenientFormats = []string{
	"2 Jan 2006 3 PM",
	"Jan 2 2006 3 PM",
	"3:04 PM",
	"3 PM",
}

var (
	dateSeparators = strings.NewReplacer("\u00b7", " ", "\u2022", " ", "|", " ", " at ", " ", " @ ", " ", "\u00a0", " ")
	dateOrdinal    = regexp.MustCompile(`(\d)(st|nd|rd|th)\b`)
	meridiem       = regexp.MustCompile(`(?i)(\d)\s*([ap])\.?m\b\.?`)
	trailingZone   = regexp.MustCompile(`\s+\(?[A-Z]{3,5}\)?$`)
	rangeSuffix    = regexp.MustCompile(`\s+(-|\x{2013})\s*\d{1,2}(:\d{2})?( [AP]M)?$`)
	spaces         = regexp.MustCompile(`\s+`)
)

// cleanDateText strips decoration commonly found in listing date strings:
// separators, ordinals, trailing zone abbreviations and end-time ranges.
func cleanDateText(text string) string {
	s := dateSeparators.Replace(text)
	s = dateOrdinal.ReplaceAllString(s, "$1")
	s = meridiem.ReplaceAllStringFunc(s, func(m string) string {
		sub := meridiem.FindStringSubmatch(m)
		return sub[1] + " " + strings.ToUpper(sub[2]) + "M"
	})
	s = spaces.ReplaceAllString(strings.TrimSpace(s), " ")
	s = trailingZone.ReplaceAllString(s, "")
	s = rangeSuffix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ParseDate resolves free-text date text relative to ref, interpreting zone-less
// text in loc. The boolean is false when nothing could be resolved.
func ParseDate(text string, ref time.Time, loc *time.Location) (time.Time, bool) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	local := ref.In(loc)

	if t, ok := parseLayouts(raw, local, loc); ok {
		return t, true
	}
	s := cleanDateText(raw)
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := parseLayouts(s, local, loc); ok {
		return t, true
	}

	cfg := &now.Config{
		WeekStartDay: time.Monday,
		TimeLocation: loc,
		TimeFormats:  append(append([]string{}, now.TimeFormats...), lenientFormats...),
	}
	t, err := cfg.With(local).Parse(s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func parseLayouts(s string, ref time.Time, loc *time.Location) (time.Time, bool) {
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			t = withYear(t, ref)
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

// withYear completes a year-less date with the reference year. Dates that would
// land more than a month in the past roll over to next year.
func withYear(t, ref time.Time) time.Time {
	out := time.Date(ref.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, t.Location())
	if out.Before(ref.AddDate(0, -1, 0)) {
		out = out.AddDate(1, 0, 0)
	}
	return out
}
