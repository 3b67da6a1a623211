package scheduler

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

var ErrInvalidSchedule = zerr.New("invalid schedule")

// SpecKind is the normalized kind of a schedule string.
type SpecKind int

const (
	SpecCron SpecKind = iota
	SpecInterval
)

func (k SpecKind) String() string {
	if k == SpecInterval {
		return "interval"
	}
	return "cron"
}

// ParsedSpec is a schedule string resolved to either a cron expression or a
// fixed interval.
//
// Accepted forms:
//   - cron: "*/5 * * * *", "@hourly", "@every 5m"
//   - interval duration: "55m", "2h30m"
//   - interval HH:MM: "00:50" (50 minutes), "02:30" (2h30m)
//
// A "cron:" prefix forces cron parsing; "interval:" or "every:" force an interval.
type ParsedSpec struct {
	Kind  SpecKind
	Cron  string
	Every time.Duration
}

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

func ParseSchedule(raw string) (ParsedSpec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ParsedSpec{}, zerr.Wrap(ErrInvalidSchedule, "schedule required")
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		expr := strings.TrimSpace(s[len("cron:"):])
		if expr == "" {
			return ParsedSpec{}, zerr.Wrap(ErrInvalidSchedule, "cron expression required after 'cron:'")
		}
		return ParsedSpec{Kind: SpecCron, Cron: expr}, nil
	case strings.HasPrefix(low, "interval:"):
		return intervalSpec(s[len("interval:"):])
	case strings.HasPrefix(low, "every:"):
		return intervalSpec(s[len("every:"):])
	}

	// Whitespace or a leading '@' means cron.
	if strings.ContainsAny(s, " \t\n\r") || strings.HasPrefix(s, "@") {
		return ParsedSpec{Kind: SpecCron, Cron: s}, nil
	}
	ps, err := intervalSpec(s)
	if err != nil {
		return ParsedSpec{}, zerr.With(
			zerr.Wrap(ErrInvalidSchedule, "use cron like '*/5 * * * *', HH:MM like '02:30', or a duration like '55m'"),
			"schedule", raw,
		)
	}
	return ps, nil
}

func intervalSpec(v string) (ParsedSpec, error) {
	d, err := parseInterval(v)
	if err != nil {
		return ParsedSpec{}, err
	}
	return ParsedSpec{Kind: SpecInterval, Every: d}, nil
}

func parseInterval(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, zerr.Wrap(ErrInvalidSchedule, "interval required")
	}
	var d time.Duration
	if m := reHHMM.FindStringSubmatch(v); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if mm > 59 {
			return 0, zerr.With(zerr.Wrap(ErrInvalidSchedule, "minutes out of range"), "interval", v)
		}
		d = time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	} else {
		var err error
		d, err = time.ParseDuration(v)
		if err != nil {
			return 0, zerr.With(zerr.Wrap(ErrInvalidSchedule, "bad interval"), "interval", v)
		}
	}
	if d <= 0 {
		return 0, zerr.With(zerr.Wrap(ErrInvalidSchedule, "interval must be > 0"), "interval", v)
	}
	return d, nil
}
