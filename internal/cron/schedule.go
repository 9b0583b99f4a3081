package cron

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// schedule is the parsed, validated form of a ScheduleSpec.
type schedule struct {
	Kind     string
	CronExpr string
	Every    time.Duration
	At       time.Time
	Timezone string
}

// parseSchedule validates spec and returns its parsed form. Exactly one of
// Cron/Every/At must resolve.
func parseSchedule(spec ScheduleSpec) (schedule, error) {
	if strings.TrimSpace(spec.Cron) == "" && spec.Every == 0 && strings.TrimSpace(spec.At) == "" {
		return schedule{}, fmt.Errorf("schedule is required")
	}
	s := schedule{
		CronExpr: strings.TrimSpace(spec.Cron),
		Every:    spec.Every,
		Timezone: strings.TrimSpace(spec.Timezone),
	}
	if strings.TrimSpace(spec.At) != "" {
		at, err := parseAt(spec.At, s.Timezone)
		if err != nil {
			return schedule{}, err
		}
		s.At = at
		s.Kind = "at"
		return s, nil
	}
	if s.Every > 0 {
		s.Kind = "every"
		return s, nil
	}
	if s.CronExpr != "" {
		if _, err := cronParser.Parse(s.CronExpr); err != nil {
			return schedule{}, fmt.Errorf("invalid cron expression: %w", err)
		}
		s.Kind = "cron"
		return s, nil
	}
	return schedule{}, fmt.Errorf("invalid schedule")
}

// next returns the schedule's next run time after now.
func (s schedule) next(now time.Time) (time.Time, bool, error) {
	switch s.Kind {
	case "at":
		if s.At.IsZero() {
			return time.Time{}, false, fmt.Errorf("at schedule missing timestamp")
		}
		if now.After(s.At) {
			return time.Time{}, false, nil
		}
		return s.At, true, nil
	case "every":
		if s.Every <= 0 {
			return time.Time{}, false, fmt.Errorf("every schedule missing duration")
		}
		return now.Add(s.Every), true, nil
	case "cron":
		if s.CronExpr == "" {
			return time.Time{}, false, fmt.Errorf("cron schedule missing expression")
		}
		loc := now.Location()
		if s.Timezone != "" {
			if tz, err := time.LoadLocation(s.Timezone); err == nil {
				loc = tz
			}
		}
		parsed, err := cronParser.Parse(s.CronExpr)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("parse cron expression: %w", err)
		}
		next := parsed.Next(now.In(loc))
		return next, !next.IsZero(), nil
	default:
		return time.Time{}, false, fmt.Errorf("unknown schedule kind")
	}
}

func parseAt(value, tz string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("at schedule value required")
	}
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			if parsed, err := time.ParseInLocation(time.RFC3339, value, loc); err == nil {
				return parsed, nil
			}
			if parsed, err := time.ParseInLocation("2006-01-02 15:04", value, loc); err == nil {
				return parsed, nil
			}
		}
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	if parsed, err := time.Parse("2006-01-02 15:04", value); err == nil {
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("invalid at schedule: %s", value)
}
