package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/jessiesmp/intake/internal/app/services/applications"
	"github.com/jessiesmp/intake/pkg/logger"
)

// Digest periodically posts a summary of pending applications to the review
// channel so submissions do not go stale unnoticed.
type Digest struct {
	apps      *applications.Service
	transport Transport
	schedule  string
	cron      *cron.Cron
	log       *logger.Logger
}

// NewDigest constructs the digest job. schedule is a standard cron
// expression.
func NewDigest(apps *applications.Service, transport Transport, schedule string, log *logger.Logger) *Digest {
	if log == nil {
		log = logger.NewDefault("review-digest")
	}
	return &Digest{apps: apps, transport: transport, schedule: schedule, log: log}
}

// Name implements system.Service.
func (d *Digest) Name() string { return "review-digest" }

// Start schedules the digest job.
func (d *Digest) Start(ctx context.Context) error {
	d.cron = cron.New()
	if _, err := d.cron.AddFunc(d.schedule, func() { d.run(ctx) }); err != nil {
		return fmt.Errorf("schedule digest %q: %w", d.schedule, err)
	}
	d.cron.Start()
	d.log.WithField("schedule", d.schedule).Info("pending-application digest scheduled")
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (d *Digest) Stop(context.Context) error {
	if d.cron != nil {
		<-d.cron.Stop().Done()
	}
	return nil
}

func (d *Digest) run(ctx context.Context) {
	pending, err := d.apps.ListPending(ctx)
	if err != nil {
		d.log.WithError(err).Warn("list pending applications for digest")
		return
	}
	if len(pending) == 0 {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 *%d application(s) awaiting review*\n", len(pending))
	for _, app := range pending {
		fmt.Fprintf(&sb, "\n• %s — submitted %s", app.Payload.Nickname, app.CreatedAt.Format("2006-01-02 15:04"))
	}

	if err := d.transport.Post(ctx, sb.String()); err != nil {
		d.log.WithError(err).Warn("post pending digest")
	}
}
