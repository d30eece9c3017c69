// Package scheduler is the delivery engine: a single timer-driven loop that
// finds due reminders, renders and dispatches each one, and deletes the row
// only after the platform confirms the send. Delivery is at-least-once: on
// any failure the row stays put and the next tick tries again.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"reminder-bot/internal/discord"
	"reminder-bot/internal/models"
	"reminder-bot/internal/prefs"
	"reminder-bot/internal/storage"
)

type ReminderSource interface {
	DueNow(ctx context.Context, asOf time.Time, limit int) ([]models.Reminder, error)
	MarkDelivered(ctx context.Context, id int64) error
}

type Platform interface {
	FetchChannel(ctx context.Context, channelID string) (*discord.Channel, error)
	Send(ctx context.Context, channelID string, payload discord.SendPayload) (*discord.Message, error)
}

type Renderer interface {
	Build(ctx context.Context, rem *models.Reminder, p prefs.Preferences, ch *discord.Channel) discord.SendPayload
}

type PrefsResolver interface {
	Resolve(ctx context.Context, userID string) prefs.Preferences
}

// Counter tracks delivery stats for the operator surface. Satisfied by the
// redis client; nil disables counting.
type Counter interface {
	Increment(ctx context.Context, key string, expiration time.Duration) (int64, error)
}

type Options struct {
	Interval   time.Duration // poll period, default 30s
	MaxPerTick int           // backlog cap per tick, <= 0 means unbounded
}

type Engine struct {
	log      *slog.Logger
	src      ReminderSource
	platform Platform
	renderer Renderer
	prefs    PrefsResolver
	audit    storage.DeliveryLog
	counters Counter
	opts     Options

	// now is swapped out in tests
	now func() time.Time
}

func New(log *slog.Logger, src ReminderSource, platform Platform, renderer Renderer, pr PrefsResolver, audit storage.DeliveryLog, counters Counter, opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	return &Engine{
		log:      log,
		src:      src,
		platform: platform,
		renderer: renderer,
		prefs:    pr,
		audit:    audit,
		counters: counters,
		opts:     opts,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled. Ticks run inline on this goroutine, so
// a slow tick delays the next one instead of overlapping it; the timer keeps
// firing regardless of individual tick failures. An in-flight tick finishes
// its current reminder before shutdown.
func (e *Engine) Run(ctx context.Context) {
	e.log.Info("delivery_engine_started", "interval", e.opts.Interval.String(), "max_per_tick", e.opts.MaxPerTick)

	ticker := time.NewTicker(e.opts.Interval)
	defer ticker.Stop()

	// Run immediately on start, then on every tick.
	e.runTick(ctx)

	for {
		select {
		case <-ctx.Done():
			e.log.Info("delivery_engine_stopped")
			return
		case <-ticker.C:
			e.runTick(ctx)
		}
	}
}

// runTick processes one batch of due reminders. A failed due-query ends the
// tick early; per-reminder failures are isolated so one bad reminder never
// blocks the rest of the batch.
func (e *Engine) runTick(ctx context.Context) {
	asOf := e.now()

	// The tick context is detached from the run context on purpose: an
	// in-flight dispatch is never hard-interrupted by shutdown, only bounded
	// by the timeout. Cancellation is honored between reminders.
	tickCtx, cancel := context.WithTimeout(context.Background(), 2*e.opts.Interval)
	defer cancel()

	due, err := e.src.DueNow(tickCtx, asOf, e.opts.MaxPerTick)
	if err != nil {
		e.log.Error("due_query_failed", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	e.log.Info("processing_due_reminders", "count", len(due))

	delivered := 0
	for i := range due {
		select {
		case <-ctx.Done():
			e.log.Info("tick_cancelled", "remaining", len(due)-i)
			return
		default:
		}

		if e.process(tickCtx, &due[i]) {
			delivered++
		}
	}

	e.log.Info("tick_completed", "due", len(due), "delivered", delivered, "retained", len(due)-delivered)
}

// process attempts one delivery. Returns true only when the platform
// confirmed the send and the row was discharged. Every failure path retains
// the row: an occasional stuck reminder beats a silently lost one.
func (e *Engine) process(ctx context.Context, rem *models.Reminder) bool {
	ch, err := e.platform.FetchChannel(ctx, rem.ChannelID)
	if err != nil {
		e.retain(rem, "resolve_channel", err)
		return false
	}

	p := e.prefs.Resolve(ctx, rem.TargetID)
	payload := e.renderer.Build(ctx, rem, p, ch)

	msg, err := e.platform.Send(ctx, rem.ChannelID, payload)
	if err != nil {
		e.retain(rem, "dispatch", err)
		return false
	}

	// The obligation is discharged the moment the platform accepts the
	// message, so the audit record is written even if the delete below
	// fails and the next tick redelivers; that is the at-least-once
	// tradeoff.
	e.recordDelivery(ctx, rem, msg)

	if err := e.src.MarkDelivered(ctx, rem.ID); err != nil {
		e.log.Error("mark_delivered_failed",
			"reminder_id", rem.ID,
			"error", err,
		)
		return true
	}

	e.log.Info("reminder_delivered",
		"reminder_id", rem.ID,
		"target_id", rem.TargetID,
		"channel_id", rem.ChannelID,
	)
	return true
}

// retain logs a failed attempt. The row is untouched, so the next tick
// retries. Permanent-looking failures (missing access, unknown channel) are
// logged at error level for operator cleanup, but still never deleted.
func (e *Engine) retain(rem *models.Reminder, stage string, err error) {
	reason := discord.ClassifyFailure(err)

	attrs := []any{
		"reminder_id", rem.ID,
		"channel_id", rem.ChannelID,
		"stage", stage,
		"reason", string(reason),
		"error", err,
	}

	switch reason {
	case discord.FailureMissingAccess, discord.FailureMissingPermissions, discord.FailureUnknownChannel:
		e.log.Error("reminder_retained_destination_unreachable", attrs...)
	default:
		e.log.Warn("reminder_retained", attrs...)
	}
}

// recordDelivery appends to the audit log and bumps counters, best-effort.
func (e *Engine) recordDelivery(ctx context.Context, rem *models.Reminder, msg *discord.Message) {
	deliveredAt := e.now()

	if e.audit != nil {
		rec := storage.DeliveryRecord{
			ReminderID:  rem.ID,
			OwnerID:     rem.OwnerID,
			TargetID:    rem.TargetID,
			GuildID:     rem.GuildID,
			ChannelID:   rem.ChannelID,
			Body:        rem.Body,
			DueAt:       rem.DueAt,
			DeliveredAt: deliveredAt,
		}
		if msg != nil {
			rec.MessageID = msg.ID
		}
		if _, err := e.audit.AppendDelivery(ctx, rec); err != nil {
			e.log.Warn("audit_append_failed", "reminder_id", rem.ID, "error", err)
		}
	}

	if e.counters != nil {
		key := "reminders:delivered:" + deliveredAt.UTC().Format("2006-01-02")
		if _, err := e.counters.Increment(ctx, key, 48*time.Hour); err != nil {
			e.log.Debug("delivery_counter_failed", "error", err)
		}
	}
}
