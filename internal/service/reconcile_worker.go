package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

const (
	jobReconcileTeacher = "reconcile_teacher"
	jobReconcileSweep   = "reconcile_sweep"
	sweepJobKey         = "sweep"
)

type teacherReconciler interface {
	ReconcileTeacher(ctx context.Context, teacherID string) (*models.ReconcileReport, error)
	ReconcileAll(ctx context.Context) ([]models.ReconcileReport, error)
}

// ReconcileWorkerConfig tunes the background reconciler.
type ReconcileWorkerConfig struct {
	Interval   time.Duration
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// ReconcileWorker runs reconciliation off the request path: on demand for
// teachers flagged by drift reports, and as a periodic full sweep.
type ReconcileWorker struct {
	reconciler teacherReconciler
	queue      *jobs.Queue
	interval   time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	stopChan chan struct{}
	loopDone chan struct{}
}

// NewReconcileWorker constructs a worker. A zero interval disables the sweep.
func NewReconcileWorker(reconciler teacherReconciler, cfg ReconcileWorkerConfig, logger *zap.Logger) *ReconcileWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &ReconcileWorker{
		reconciler: reconciler,
		interval:   cfg.Interval,
		logger:     logger,
	}
	w.queue = jobs.NewQueue("reconcile", w.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return w
}

// Start launches the queue workers and the periodic sweep.
func (w *ReconcileWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopChan != nil {
		return
	}
	w.queue.Start(ctx)
	w.stopChan = make(chan struct{})
	w.loopDone = make(chan struct{})
	w.logger.Info("reconcile worker started", zap.Duration("interval", w.interval))
	go w.run(ctx, w.stopChan, w.loopDone)
}

// Stop halts the sweep loop and drains the queue workers.
func (w *ReconcileWorker) Stop() {
	w.mu.Lock()
	stop, done := w.stopChan, w.loopDone
	w.stopChan, w.loopDone = nil, nil
	w.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
	w.queue.Stop()
	w.logger.Info("reconcile worker stopped")
}

// ScheduleTeacher queues a repair for one teacher. Repeated requests for a
// teacher that is already queued are collapsed.
func (w *ReconcileWorker) ScheduleTeacher(teacherID string) error {
	_, err := w.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobReconcileTeacher,
		Key:     "teacher:" + teacherID,
		Payload: teacherID,
	})
	return err
}

// ScheduleSweep queues a full reconciliation pass.
func (w *ReconcileWorker) ScheduleSweep() error {
	_, err := w.queue.Enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: jobReconcileSweep,
		Key:  sweepJobKey,
	})
	return err
}

func (w *ReconcileWorker) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if w.interval <= 0 {
		select {
		case <-stop:
		case <-ctx.Done():
		}
		return
	}

	w.enqueueSweep()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.enqueueSweep()
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *ReconcileWorker) enqueueSweep() {
	if err := w.ScheduleSweep(); err != nil {
		w.logger.Warn("failed to queue reconcile sweep", zap.Error(err))
	}
}

func (w *ReconcileWorker) handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobReconcileTeacher:
		teacherID, _ := job.Payload.(string)
		if teacherID == "" {
			return fmt.Errorf("reconcile job %s missing teacher id", job.ID)
		}
		report, err := w.reconciler.ReconcileTeacher(ctx, teacherID)
		if err != nil {
			return err
		}
		w.logger.Info("teacher reconciled", zap.String("teacher_id", teacherID), zap.Int("drift", report.Drift()))
		return nil
	case jobReconcileSweep:
		reports, err := w.reconciler.ReconcileAll(ctx)
		if err != nil {
			return err
		}
		w.logger.Info("reconcile sweep finished", zap.Int("teachers_repaired", len(reports)))
		return nil
	default:
		return fmt.Errorf("unknown reconcile job type %q", job.Type)
	}
}
