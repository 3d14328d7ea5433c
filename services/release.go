package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cafe-backend/events"
	"cafe-backend/models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReleaseScheduler frees paid tables after a delay. Jobs are rows, so a
// restart picks pending ones up again.
type ReleaseScheduler struct {
	db        *gorm.DB
	publisher events.Publisher
	log       *slog.Logger
	now       func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func NewReleaseScheduler(db *gorm.DB, publisher events.Publisher, log *slog.Logger, now func() time.Time) *ReleaseScheduler {
	return &ReleaseScheduler{db: db, publisher: publisher, log: log, now: now}
}

// Enqueue stores a pending release inside the caller's transaction.
func (s *ReleaseScheduler) Enqueue(tx *gorm.DB, tableID, invoiceID uint, version int, due time.Time) (*models.ReleaseJob, error) {
	job := models.ReleaseJob{
		TableID:      tableID,
		InvoiceID:    invoiceID,
		TableVersion: version,
		DueAt:        due.UTC(),
		Status:       models.ReleasePending,
	}
	if err := tx.Omit(clause.Associations).Create(&job).Error; err != nil {
		return nil, fmt.Errorf("enqueue release of table %d: %w", tableID, err)
	}
	return &job, nil
}

// RunDue processes every pending job whose due time has passed and returns
// how many were handled. Each job runs in its own transaction.
func (s *ReleaseScheduler) RunDue(ctx context.Context) (int, error) {
	now := s.now()
	// due_at is stored in UTC so the comparison also holds on sqlite text columns.
	var pending []models.ReleaseJob
	if err := s.db.WithContext(ctx).
		Where("status = ? AND due_at <= ?", models.ReleasePending, now.UTC()).
		Order("due_at, id").Find(&pending).Error; err != nil {
		return 0, fmt.Errorf("load due releases: %w", err)
	}

	handled := 0
	for _, job := range pending {
		if err := s.run(ctx, job.ID, now); err != nil {
			return handled, err
		}
		handled++
	}
	return handled, nil
}

func (s *ReleaseScheduler) run(ctx context.Context, jobID string, now time.Time) error {
	outcome := models.ReleaseSkipped
	reason := ""
	u, err := transact(ctx, s.db, now, func(u *unit) error {
		q := u.tx.Where("id = ? AND status = ?", jobID, models.ReleasePending)
		if supportsRowLocks(u.tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var job models.ReleaseJob
		if err := q.First(&job).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Another sweeper finished it.
				reason = "already handled"
				return nil
			}
			return fmt.Errorf("load release job %s: %w", jobID, err)
		}

		outcome, reason = models.ReleaseSkipped, ""
		tables, err := u.tables.Lock(job.TableID)
		switch {
		case IsKind(err, KindNotFound):
			reason = "table removed"
		case err != nil:
			return err
		default:
			t := tables[job.TableID]
			inv, err := u.ledger.FindOpenInvoice(t.ID)
			if err != nil {
				return err
			}
			switch {
			case t.Version != job.TableVersion:
				reason = "table changed since payment"
			case t.Status != models.TableOccupied:
				reason = "table no longer occupied"
			case inv != nil:
				reason = "table has a new open invoice"
			default:
				if err := u.tables.SetStatus(t, models.TableAvailable); err != nil {
					return err
				}
				outcome, reason = models.ReleaseDone, "released"
				if err := u.record(events.TableReleased, 0, []uint{t.ID}, job.InvoiceID,
					map[string]any{"job_id": job.ID}); err != nil {
					return err
				}
			}
		}

		return u.tx.Model(&models.ReleaseJob{}).Where("id = ?", job.ID).Updates(map[string]any{
			"status":      outcome,
			"reason":      reason,
			"finished_at": now,
		}).Error
	})
	if err != nil {
		s.log.Error("deferred release failed", "job_id", jobID, "error", err)
		return err
	}
	s.log.Info("deferred release", "job_id", jobID, "outcome", string(outcome), "reason", reason)
	publishAll(ctx, s.publisher, s.log, u.events)
	return nil
}

// Start runs RunDue on the given cron spec (e.g. "@every 1s").
func (s *ReleaseScheduler) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("release scheduler already started")
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.log})))
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.RunDue(context.Background()); err != nil {
			s.log.Error("release sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid release sweep spec %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	s.log.Info("release scheduler started", "spec", spec)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *ReleaseScheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
