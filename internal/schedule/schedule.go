// Package schedule turns free-text scheduling instructions in Brazilian
// Portuguese ("consulta na sexta das 9h as 10h") into a concrete event
// summary plus start/end timestamps.
//
// Parsing is a sequence of independent, order-sensitive pattern-match
// stages. Every stage that fails to match falls through to a documented
// default, so Parse is a total function: it never returns an error, for
// any input text.
package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultTimezone is used when the caller supplies no (or an unknown)
// IANA timezone name.
const DefaultTimezone = "America/Sao_Paulo"

// Result is the structured outcome of parsing one instruction. StartISO
// and EndISO are ISO-8601 timestamps with an explicit signed numeric UTC
// offset (never "Z"). End is not validated to be after start.
type Result struct {
	Summary  string
	StartISO string
	EndISO   string
}

// ClockTime is an hour/minute pair captured from a single time token.
// Values are taken exactly as captured; no clock-range validation is
// applied (an input like "99h" yields Hour 99).
type ClockTime struct {
	Hour   int
	Minute int
}

// weekdayEntry pairs a normalized weekday name with its day-of-week
// (0 = Sunday) and a compiled word-boundary pattern for it.
type weekdayEntry struct {
	name    string
	weekday int
	pattern *regexp.Regexp
}

func newWeekdayEntry(name string, weekday int) weekdayEntry {
	return weekdayEntry{
		name:    name,
		weekday: weekday,
		pattern: regexp.MustCompile(`\b` + name + `\b`),
	}
}

// weekdayTable lists the recognized weekday names in declaration order.
// The order matters: overlapping names ("segunda" inside "segunda-feira")
// are resolved by whichever entry appears first, so this is a slice
// rather than a map.
var weekdayTable = []weekdayEntry{
	newWeekdayEntry("domingo", 0),
	newWeekdayEntry("segunda", 1),
	newWeekdayEntry("segunda-feira", 1),
	newWeekdayEntry("terca", 2),
	newWeekdayEntry("terca-feira", 2),
	newWeekdayEntry("quarta", 3),
	newWeekdayEntry("quarta-feira", 3),
	newWeekdayEntry("quinta", 4),
	newWeekdayEntry("quinta-feira", 4),
	newWeekdayEntry("sexta", 5),
	newWeekdayEntry("sexta-feira", 5),
	newWeekdayEntry("sabado", 6),
}

var (
	// "9h", "10h30" (minutes default to 0) and "09:30", "9:15".
	hourSuffixToken = regexp.MustCompile(`(?i)^(\d{1,2})h(\d{2})?$`)
	hourColonToken  = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

	// "12/3", "12/03/2026", "1/1/26".
	explicitDatePattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)

	// "das 9h as 10h", tolerating "da"/"das" and "a"/"as".
	timeRangePattern = regexp.MustCompile(`\bdas?\s+([0-9h:.]+)\s+as?\s+([0-9h:.]+)\b`)

	// "as 14h" with no explicit end.
	anchorTimePattern = regexp.MustCompile(`\bas?\s+([0-9h:.]+)\b`)

	// Action verb followed by the event description, terminated
	// non-greedily by a locative preposition, "dia", a weekday name or
	// the end of the text.
	titlePattern = regexp.MustCompile(
		`(?:adicionar|marcar|criar|agendar|colocar)\s+(.+?)(?:\s+(?:na|no|em|dia|segunda|terca|quarta|quinta|sexta|sabado)\b|$)`)

	// Verbless instructions ("consulta na sexta ...") still carry a
	// usable description before the first locative/date marker.
	bareTitlePattern = regexp.MustCompile(
		`^(.+?)\s+(?:na|no|em|dia|segunda|terca|quarta|quinta|sexta|sabado)\b`)

	trailingPunctPattern = regexp.MustCompile(`\s*[,.!?;]+$`)
)

// stripMarks removes combining diacritical marks, so "terça-feira"
// becomes "terca-feira".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases text and strips diacritics. The normalized form
// is used only for pattern matching, never shown to the user. Applying
// Normalize to already-normalized text is a no-op.
func Normalize(text string) string {
	stripped, _, err := transform.String(stripMarks, text)
	if err != nil {
		stripped = text
	}
	return strings.ToLower(stripped)
}

// parseTimeToken parses a single clock-time token. It accepts the
// "H[h][MM]" form first, then "H:MM". Any other shape reports no match.
func parseTimeToken(token string) (ClockTime, bool) {
	if m := hourSuffixToken.FindStringSubmatch(token); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		return ClockTime{Hour: hour, Minute: minute}, true
	}
	if m := hourColonToken.FindStringSubmatch(token); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return ClockTime{Hour: hour, Minute: minute}, true
	}
	return ClockTime{}, false
}

// nextDateForWeekday returns the next occurrence of the target weekday
// (0 = Sunday) strictly after base, truncated to midnight in base's
// location. When base already falls on the target weekday the result is
// a full week later, never the same day.
func nextDateForWeekday(target int, base time.Time) time.Time {
	diff := (target - int(base.Weekday()) + 7) % 7
	if diff == 0 {
		diff = 7
	}
	year, month, day := base.Date()
	return time.Date(year, month, day+diff, 0, 0, 0, 0, base.Location())
}

// extractDate determines the target date from normalized text. Weekday
// names take precedence over explicit d/m[/y] dates; with neither, the
// date portion of now is used. Day and month values are not validated
// against the calendar; out-of-range values normalize through standard
// date arithmetic (31/4 rolls into May).
func extractDate(text string, now time.Time) time.Time {
	for _, entry := range weekdayTable {
		if entry.pattern.MatchString(text) {
			return nextDateForWeekday(entry.weekday, now)
		}
	}

	if m := explicitDatePattern.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	}

	return now
}

// timeRange holds the extracted start and end clock times.
type timeRange struct {
	start ClockTime
	end   ClockTime
}

// defaultTimeRange is used when the text mentions no recognizable time.
var defaultTimeRange = timeRange{
	start: ClockTime{Hour: 9, Minute: 0},
	end:   ClockTime{Hour: 10, Minute: 0},
}

// normalizeTimeToken maps period separators to colons ("9.30" -> "9:30")
// before token parsing.
func normalizeTimeToken(token string) string {
	return strings.ReplaceAll(token, ".", ":")
}

// extractTimeRange determines start and end clock times from normalized
// text. An explicit "das X as Y" range overrides each side independently
// (a malformed side keeps its default without blocking the other). A
// single anchor time sets start and an end one hour later on the same
// minute; "as 23h" yields end hour 24, which rolls into the next
// calendar day once composed with the date.
func extractTimeRange(text string) timeRange {
	tr := defaultTimeRange

	if m := timeRangePattern.FindStringSubmatch(text); m != nil {
		if start, ok := parseTimeToken(normalizeTimeToken(m[1])); ok {
			tr.start = start
		}
		if end, ok := parseTimeToken(normalizeTimeToken(m[2])); ok {
			tr.end = end
		}
		return tr
	}

	if m := anchorTimePattern.FindStringSubmatch(text); m != nil {
		if start, ok := parseTimeToken(normalizeTimeToken(m[1])); ok {
			tr.start = start
			tr.end = ClockTime{Hour: start.Hour + 1, Minute: start.Minute}
		}
	}

	return tr
}

// extractTitle derives the event summary. An action-verb phrase wins;
// failing that, a verbless description truncated at the first
// locative/date marker is used. Either way the capture is trimmed and
// stripped of trailing punctuation. With no usable capture the summary
// is the raw original-case input, trimmed.
func extractTitle(text, raw string) string {
	for _, pattern := range []*regexp.Regexp{titlePattern, bareTitlePattern} {
		if m := pattern.FindStringSubmatch(text); m != nil {
			title := strings.TrimSpace(m[1])
			title = trailingPunctPattern.ReplaceAllString(title, "")
			if title != "" {
				return title
			}
		}
	}
	return strings.TrimSpace(raw)
}

// isoLayout always renders a signed numeric offset, never "Z".
const isoLayout = "2006-01-02T15:04:05-07:00"

// loadLocation resolves tz, degrading to DefaultTimezone and then UTC so
// that Parse cannot fail on an unknown zone name.
func loadLocation(tz string) *time.Location {
	if tz == "" {
		tz = DefaultTimezone
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		return loc
	}
	if loc, err := time.LoadLocation(DefaultTimezone); err == nil {
		return loc
	}
	return time.UTC
}

// Parse derives an event summary and start/end instants from a raw
// scheduling instruction. The reference instant now anchors relative
// dates ("sexta", the fallback "today"); tz names the IANA zone the
// instruction is interpreted in. Parse never fails: unmatched patterns
// degrade to defaults (today, 09:00-10:00, raw text as summary).
func Parse(textRaw, tz string, now time.Time) Result {
	loc := loadLocation(tz)
	now = now.In(loc)

	text := Normalize(textRaw)

	date := extractDate(text, now)
	tr := extractTimeRange(text)

	year, month, day := date.Date()
	start := time.Date(year, month, day, tr.start.Hour, tr.start.Minute, 0, 0, loc)
	end := time.Date(year, month, day, tr.end.Hour, tr.end.Minute, 0, 0, loc)

	return Result{
		Summary:  extractTitle(text, textRaw),
		StartISO: start.Format(isoLayout),
		EndISO:   end.Format(isoLayout),
	}
}
