package scheduler

import (
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/robfig/cron/v3"
)

// cronParser accepts a standard 5-field cron expression, minute
// granularity, interpreted in UTC (spec §4.9), grounded on the pack's own
// cron/schedule.go parser construction.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// validateCronExpr rejects a malformed cron string at task-registration
// time rather than at the first missed tick. gronx.IsValid is a cheap
// syntactic pre-check; robfig/cron.Parse is the actual evaluator and is
// tried second so a gronx false-positive can't mask a real parse error.
func validateCronExpr(expr string) error {
	if !gronx.IsValid(expr) {
		return fmt.Errorf("invalid cron expression %q", expr)
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// trigger computes successive fire times for a task, either from a fixed
// interval or a cron schedule evaluated in UTC.
type trigger struct {
	interval time.Duration
	schedule cron.Schedule
}

func newTrigger(cfg TaskConfig) (*trigger, error) {
	if cfg.Interval > 0 {
		return &trigger{interval: cfg.Interval}, nil
	}
	schedule, err := cronParser.Parse(cfg.Cron)
	if err != nil {
		return nil, fmt.Errorf("scheduler: parse cron expression: %w", err)
	}
	return &trigger{schedule: schedule}, nil
}

// next returns the next fire time strictly after now.
func (t *trigger) next(now time.Time) time.Time {
	if t.schedule != nil {
		return t.schedule.Next(now.UTC())
	}
	return now.Add(t.interval)
}
