package schedule

import (
	"strings"
	"testing"
	"time"
)

func saoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("failed to load America/Sao_Paulo: %v", err)
	}
	return loc
}

// mondayRef is a reference instant known to fall on a Monday.
func mondayRef(t *testing.T) time.Time {
	t.Helper()
	ref := time.Date(2025, time.January, 6, 12, 0, 0, 0, saoPaulo(t))
	if ref.Weekday() != time.Monday {
		t.Fatalf("reference instant is %v, want Monday", ref.Weekday())
	}
	return ref
}

func TestParseTimeToken(t *testing.T) {
	tests := []struct {
		token  string
		want   ClockTime
		wantOK bool
	}{
		{"9h", ClockTime{9, 0}, true},
		{"10h30", ClockTime{10, 30}, true},
		{"09:30", ClockTime{9, 30}, true},
		{"9:15", ClockTime{9, 15}, true},
		{"9H", ClockTime{9, 0}, true},      // "h" is case-insensitive
		{"99h99", ClockTime{99, 99}, true}, // no clock-range validation
		{"foo", ClockTime{}, false},
		{"9h5", ClockTime{}, false}, // minutes must be two digits
		{"123h", ClockTime{}, false},
		{"9:5", ClockTime{}, false},
		{"", ClockTime{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := parseTimeToken(tt.token)
			if ok != tt.wantOK {
				t.Fatalf("parseTimeToken(%q) ok = %v, want %v", tt.token, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("parseTimeToken(%q) = %+v, want %+v", tt.token, got, tt.want)
			}
		})
	}
}

func TestNextDateForWeekday_NeverSameDay(t *testing.T) {
	base := mondayRef(t)

	for target := 0; target <= 6; target++ {
		got := nextDateForWeekday(target, base)

		if int(got.Weekday()) != target {
			t.Errorf("target %d: got weekday %v", target, got.Weekday())
		}

		baseY, baseM, baseD := base.Date()
		gotY, gotM, gotD := got.Date()
		if baseY == gotY && baseM == gotM && baseD == gotD {
			t.Errorf("target %d: resolved to the same calendar date as the base", target)
		}

		if h, m, s := got.Clock(); h != 0 || m != 0 || s != 0 {
			t.Errorf("target %d: time of day not truncated: %02d:%02d:%02d", target, h, m, s)
		}
	}
}

func TestNextDateForWeekday_SameWeekdayIsNextWeek(t *testing.T) {
	base := mondayRef(t)

	// "next Monday" said on a Monday means next week's Monday.
	got := nextDateForWeekday(int(time.Monday), base)
	want := time.Date(2025, time.January, 13, 0, 0, 0, 0, base.Location())
	if !got.Equal(want) {
		t.Errorf("nextDateForWeekday(Monday) = %v, want %v", got, want)
	}
}

func TestParse_WeekdayWithRange(t *testing.T) {
	now := mondayRef(t)

	got := Parse("consulta na sexta das 9h as 10h", "America/Sao_Paulo", now)

	if got.Summary != "consulta" {
		t.Errorf("Summary = %q, want %q", got.Summary, "consulta")
	}
	if want := "2025-01-10T09:00:00-03:00"; got.StartISO != want {
		t.Errorf("StartISO = %q, want %q", got.StartISO, want)
	}
	if want := "2025-01-10T10:00:00-03:00"; got.EndISO != want {
		t.Errorf("EndISO = %q, want %q", got.EndISO, want)
	}
}

func TestParse_AnchorTimeDefaultsToOneHour(t *testing.T) {
	now := mondayRef(t)

	got := Parse("agendar reunião as 14h", "America/Sao_Paulo", now)

	// No date token, so the event lands on the reference date.
	if want := "2025-01-06T14:00:00-03:00"; got.StartISO != want {
		t.Errorf("StartISO = %q, want %q", got.StartISO, want)
	}
	if want := "2025-01-06T15:00:00-03:00"; got.EndISO != want {
		t.Errorf("EndISO = %q, want %q", got.EndISO, want)
	}
}

func TestParse_NoTokensFallsBackToDefaults(t *testing.T) {
	now := mondayRef(t)
	raw := "  qualquer coisa  "

	got := Parse(raw, "America/Sao_Paulo", now)

	if got.Summary != "qualquer coisa" {
		t.Errorf("Summary = %q, want the trimmed raw input", got.Summary)
	}
	if want := "2025-01-06T09:00:00-03:00"; got.StartISO != want {
		t.Errorf("StartISO = %q, want %q", got.StartISO, want)
	}
	if want := "2025-01-06T10:00:00-03:00"; got.EndISO != want {
		t.Errorf("EndISO = %q, want %q", got.EndISO, want)
	}
}

func TestParse_ExplicitDate(t *testing.T) {
	now := mondayRef(t)

	tests := []struct {
		name      string
		text      string
		wantStart string
		wantEnd   string
		wantTitle string
	}{
		{
			name:      "day and month, year defaults to now's",
			text:      "marcar dentista dia 12/3 as 9h",
			wantStart: "2025-03-12T09:00:00-03:00",
			wantEnd:   "2025-03-12T10:00:00-03:00",
			wantTitle: "dentista",
		},
		{
			name:      "four-digit year",
			text:      "criar revisão dia 25/11/2026 das 10h30 as 11h",
			wantStart: "2026-11-25T10:30:00-03:00",
			wantEnd:   "2026-11-25T11:00:00-03:00",
			wantTitle: "revisao",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text, "America/Sao_Paulo", now)
			if got.StartISO != tt.wantStart {
				t.Errorf("StartISO = %q, want %q", got.StartISO, tt.wantStart)
			}
			if got.EndISO != tt.wantEnd {
				t.Errorf("EndISO = %q, want %q", got.EndISO, tt.wantEnd)
			}
			if got.Summary != tt.wantTitle {
				t.Errorf("Summary = %q, want %q", got.Summary, tt.wantTitle)
			}
		})
	}
}

func TestParse_PeriodSeparatedTimes(t *testing.T) {
	now := mondayRef(t)

	got := Parse("consulta na quarta das 9.30 as 10.45", "America/Sao_Paulo", now)

	if want := "2025-01-08T09:30:00-03:00"; got.StartISO != want {
		t.Errorf("StartISO = %q, want %q", got.StartISO, want)
	}
	if want := "2025-01-08T10:45:00-03:00"; got.EndISO != want {
		t.Errorf("EndISO = %q, want %q", got.EndISO, want)
	}
}

func TestParse_RangeSidesOverrideIndependently(t *testing.T) {
	now := mondayRef(t)

	// The start token matches the range shape but fails to parse, so the
	// start default stands while the end is still overridden.
	got := Parse("plantão das 9hh as 11h", "America/Sao_Paulo", now)

	if want := "2025-01-06T09:00:00-03:00"; got.StartISO != want {
		t.Errorf("StartISO = %q, want %q", got.StartISO, want)
	}
	if want := "2025-01-06T11:00:00-03:00"; got.EndISO != want {
		t.Errorf("EndISO = %q, want %q", got.EndISO, want)
	}
}

func TestParse_AnchorNearMidnightRollsOver(t *testing.T) {
	now := mondayRef(t)

	got := Parse("agendar virada as 23h30", "America/Sao_Paulo", now)

	if want := "2025-01-06T23:30:00-03:00"; got.StartISO != want {
		t.Errorf("StartISO = %q, want %q", got.StartISO, want)
	}
	// End hour 24 rolls into the next calendar day.
	if want := "2025-01-07T00:30:00-03:00"; got.EndISO != want {
		t.Errorf("EndISO = %q, want %q", got.EndISO, want)
	}
}

func TestParse_UnknownTimezoneDegrades(t *testing.T) {
	now := mondayRef(t)

	got := Parse("agendar reunião as 14h", "Not/AZone", now)

	// Falls back to the default zone rather than failing.
	if want := "2025-01-06T14:00:00-03:00"; got.StartISO != want {
		t.Errorf("StartISO = %q, want %q", got.StartISO, want)
	}
}

func TestParse_OffsetIsAlwaysNumeric(t *testing.T) {
	got := Parse("reunião as 10h", "UTC", time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC))

	if strings.Contains(got.StartISO, "Z") {
		t.Errorf("StartISO = %q, want a signed numeric offset, not Z", got.StartISO)
	}
	if !strings.HasSuffix(got.StartISO, "+00:00") {
		t.Errorf("StartISO = %q, want a +00:00 suffix for UTC", got.StartISO)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	now := mondayRef(t)

	got := Parse("consulta na sexta das 9h as 10h", "America/Sao_Paulo", now)

	parsed, err := time.Parse(isoLayout, got.StartISO)
	if err != nil {
		t.Fatalf("StartISO %q does not parse back: %v", got.StartISO, err)
	}
	if parsed.Format(isoLayout) != got.StartISO {
		t.Errorf("round trip changed the timestamp: %q -> %q", got.StartISO, parsed.Format(isoLayout))
	}
}

func TestParse_TitleFromVerbPhrase(t *testing.T) {
	now := mondayRef(t)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"verb with locative terminator", "adicionar almoço com o time na sexta", "almoco com o time"},
		{"verb with dia terminator", "marcar consulta dia 12/3", "consulta"},
		{"verb to end of string", "criar retrospectiva", "retrospectiva"},
		{"trailing punctuation stripped", "agendar revisão, na segunda", "revisao"},
		{"no verb, no marker, raw preserved", "Almoço com a Maria", "Almoço com a Maria"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text, "America/Sao_Paulo", now)
			if got.Summary != tt.want {
				t.Errorf("Summary = %q, want %q", got.Summary, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Terça-Feira", "terca-feira"},
		{"SÁBADO às 9h", "sabado as 9h"},
		{"ja normalizado", "ja normalizado"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	once := Normalize("Reunião de Terça às 10h")
	twice := Normalize(once)
	if once != twice {
		t.Errorf("Normalize is not idempotent: %q -> %q", once, twice)
	}
}

func TestExtractDate_WeekdayTableOrderIsDeterministic(t *testing.T) {
	now := mondayRef(t)

	// "terca-feira" also contains the earlier-declared "terca" at a word
	// boundary; both resolve to the same day, deterministically.
	a := extractDate("compromisso na terca", now)
	b := extractDate("compromisso na terca-feira", now)
	if !a.Equal(b) {
		t.Errorf("terca and terca-feira resolved differently: %v vs %v", a, b)
	}
	if a.Weekday() != time.Tuesday {
		t.Errorf("resolved weekday = %v, want Tuesday", a.Weekday())
	}
}

func TestExtractDate_InvalidCalendarDateNormalizes(t *testing.T) {
	now := mondayRef(t)

	// Day 31 of a 30-day month overflows through standard date
	// arithmetic rather than being rejected.
	got := extractDate("plantao dia 31/4", now)
	want := time.Date(2025, time.May, 1, 0, 0, 0, 0, now.Location())
	if !got.Equal(want) {
		t.Errorf("extractDate(31/4) = %v, want %v", got, want)
	}
}

func TestExtractTimeRange_Defaults(t *testing.T) {
	got := extractTimeRange("nada de horario aqui")
	if got != defaultTimeRange {
		t.Errorf("extractTimeRange = %+v, want defaults %+v", got, defaultTimeRange)
	}
}
