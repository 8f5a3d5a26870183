package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lueurxax/cryptosavings-server/internal/models"
)

// Notifier delivers planning reminders. Implementations may push to email,
// chat webhooks, etc.; failures are logged and never affect the lifecycle.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// LogNotifier writes reminders to the structured log. The default sink when
// no external channel is configured.
type LogNotifier struct {
	Log *slog.Logger
}

func (n *LogNotifier) Notify(_ context.Context, subject, body string) error {
	n.Log.Info("notification", "subject", subject, "body", body)
	return nil
}

// NotificationScheduler fires periodic planning reminders: which goals need
// attention and whether the current month has uncommitted plans.
type NotificationScheduler struct {
	planning *PlanningService
	notifier Notifier
	log      *slog.Logger
	cron     *cron.Cron
	now      func() time.Time
}

// NewNotificationScheduler wires a scheduler. Call Start with a cron spec
// (e.g. "0 9 1 * *" for 09:00 on the 1st) to begin firing.
func NewNotificationScheduler(planning *PlanningService, notifier Notifier, log *slog.Logger) *NotificationScheduler {
	if log == nil {
		log = slog.Default()
	}
	if notifier == nil {
		notifier = &LogNotifier{Log: log}
	}
	return &NotificationScheduler{
		planning: planning,
		notifier: notifier,
		log:      log,
		cron:     cron.New(),
		now:      time.Now,
	}
}

// Start registers the reminder job under the given cron spec and starts the
// scheduler.
func (s *NotificationScheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, s.remind)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("notification scheduler started", "spec", spec)
	return nil
}

// Stop halts the scheduler, waiting for a running job to finish.
func (s *NotificationScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// remind derives the current requirements and notifies about goals that need
// attention. Fire-and-forget: failures are logged, never retried.
func (s *NotificationScheduler) remind() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reqs, err := s.planning.Requirements(ctx)
	if err != nil {
		s.log.Error("reminder: failed to compute requirements", "error", err)
		return
	}

	month := models.MonthLabel(s.now())
	urgent := 0
	for _, req := range reqs {
		if req.Status == models.RequirementAttention || req.Status == models.RequirementCritical {
			urgent++
		}
	}
	if urgent == 0 {
		s.log.Debug("reminder: all goals on track", "month", month)
		return
	}

	body := ""
	for _, req := range reqs {
		if req.Status != models.RequirementAttention && req.Status != models.RequirementCritical {
			continue
		}
		if body != "" {
			body += "\n"
		}
		body += req.GoalName + " needs attention: " +
			models.MonthLabel(req.Deadline) + " deadline, status " + string(req.Status)
	}
	if err := s.notifier.Notify(ctx, "Savings plan reminder for "+month, body); err != nil {
		s.log.Error("reminder: notification failed", "error", err)
	}
}
