package app

import (
	"context"
	"log/slog"
	"time"

	"btc-data/internal/ingest"
	"btc-data/internal/model"
)

// Handler is satisfied by *ingest.Runner.
type Handler interface {
	Handle(ctx context.Context, req ingest.Request) (ingest.Response, error)
}

// Schedule fires an incremental run for Interval at Hour:Minute UTC.
// Weekly schedules fire on Weekday only; 4-hourly schedules fire at Minute
// past every fourth hour counted from Hour.
type Schedule struct {
	Interval model.Interval
	Weekday  time.Weekday
	Hour     int
	Minute   int
}

// DefaultSchedules gives each window a few minutes to close before running.
func DefaultSchedules() []Schedule {
	return []Schedule{
		{Interval: model.FourHour, Hour: 0, Minute: 5},
		{Interval: model.Daily, Hour: 2, Minute: 0},
		{Interval: model.Weekly, Weekday: time.Monday, Hour: 2, Minute: 30},
	}
}

// Next returns the first fire time strictly after now.
func (s Schedule) Next(now time.Time) time.Time {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	at := func(d time.Time, h int) time.Time {
		return d.Add(time.Duration(h)*time.Hour + time.Duration(s.Minute)*time.Minute)
	}
	switch s.Interval {
	case model.FourHour:
		step := int(s.Interval.Duration() / time.Hour)
		for h := s.Hour % step; ; h += step {
			if t := at(day, h); t.After(now) {
				return t
			}
		}
	case model.Weekly:
		for i := 0; ; i++ {
			d := day.AddDate(0, 0, i)
			if t := at(d, s.Hour); d.Weekday() == s.Weekday && t.After(now) {
				return t
			}
		}
	default:
		if t := at(day, s.Hour); t.After(now) {
			return t
		}
		return at(day.AddDate(0, 0, 1), s.Hour)
	}
}

// Scheduler drives incremental runs on a fixed timetable.
type Scheduler struct {
	Handler   Handler
	Schedules []Schedule
	Now       func() time.Time
	After     func(time.Duration) <-chan time.Time
}

func NewScheduler(h Handler, schedules []Schedule) *Scheduler {
	return &Scheduler{
		Handler:   h,
		Schedules: schedules,
		Now:       func() time.Time { return time.Now().UTC() },
		After:     time.After,
	}
}

// due returns the earliest upcoming fire time and every schedule firing then.
func (s *Scheduler) due(now time.Time) (time.Time, []Schedule) {
	var next time.Time
	var firing []Schedule
	for _, sc := range s.Schedules {
		t := sc.Next(now)
		switch {
		case next.IsZero() || t.Before(next):
			next, firing = t, []Schedule{sc}
		case t.Equal(next):
			firing = append(firing, sc)
		}
	}
	return next, firing
}

func (s *Scheduler) fire(ctx context.Context, schedules []Schedule) {
	for _, sc := range schedules {
		if ctx.Err() != nil {
			return
		}
		req := ingest.Request{Mode: ingest.ModeIncremental, Interval: sc.Interval.String()}
		resp, err := s.Handler.Handle(ctx, req)
		if err != nil {
			slog.Error("scheduled run failed", "interval", sc.Interval, "error", err)
			continue
		}
		slog.Info("scheduled run done", "interval", sc.Interval, "message", resp.Message, "records", resp.TotalRecords)
	}
}

// Run catches up every schedule once (runs are idempotent per window), then
// fires each schedule at its time until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.Schedules) == 0 {
		return nil
	}
	slog.Info("catch-up run", "schedules", len(s.Schedules))
	s.fire(ctx, s.Schedules)

	for {
		next, firing := s.due(s.Now())
		wait := next.Sub(s.Now())
		slog.Info("timer waiting", "hours", wait.Hours(), "until", next.Format("2006-01-02 15:04"), "jobs", len(firing))
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopping", "reason", context.Cause(ctx), "next_run", next.Format("2006-01-02 15:04"))
			return nil
		case <-s.After(wait):
		}
		s.fire(ctx, firing)
	}
}
