package devotional

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hearthhq/hearth/pkg/logger"
)

// Refresher pre-fills each day's verse on a schedule so the first reader of
// the morning does not pay for the fetch.
type Refresher struct {
	svc  *Service
	cron *cron.Cron
	log  *logger.Logger
}

// NewRefresher creates a refresher around svc.
func NewRefresher(svc *Service, log *logger.Logger) *Refresher {
	if log == nil {
		log = logger.NewDefault("devotional-refresher")
	}
	return &Refresher{svc: svc, cron: cron.New(), log: log}
}

// Start schedules the daily fill and fills today's entry immediately.
func (r *Refresher) Start() error {
	if _, err := r.cron.AddFunc("@daily", r.fill); err != nil {
		return err
	}
	r.cron.Start()
	go r.fill()
	return nil
}

// Stop halts the schedule.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Refresher) fill() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dateKey := Today()
	if _, err := r.svc.Entry(ctx, dateKey); err != nil {
		r.log.WithError(err).WithField("date", dateKey).Warn("daily verse fill failed")
		return
	}
	r.log.WithField("date", dateKey).Debug("daily verse filled")
}
