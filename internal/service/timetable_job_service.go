package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

const timetableJobType = "timetable.solve"

type timetableSolveRunner interface {
	Solve(ctx context.Context, req dto.SolveTimetableRequest) (*dto.SolveTimetableResponse, error)
}

// TimetableJobConfig governs the asynchronous solve queue.
type TimetableJobConfig struct {
	Workers    int
	BufferSize int
	JobTTL     time.Duration
	RetryDelay time.Duration
}

// TimetableJobService runs solves on a background queue and keeps their outcome for JobTTL.
type TimetableJobService struct {
	runner    timetableSolveRunner
	queue     *jobs.Queue
	store     *jobStore
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableJobService wires the queue around runner.
func NewTimetableJobService(runner timetableSolveRunner, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg TimetableJobConfig) *TimetableJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 30 * time.Minute
	}
	svc := &TimetableJobService{
		runner:    runner,
		store:     newJobStore(cfg.JobTTL),
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
	svc.queue = jobs.NewQueue("timetable-solve", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: 1,
		RetryDelay: cfg.RetryDelay,
		OnFailure:  svc.fail,
		Logger:     logger,
	})
	return svc
}

// Start launches the queue workers.
func (s *TimetableJobService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop cancels running solves and waits for the workers.
func (s *TimetableJobService) Stop() {
	s.queue.Stop()
}

// Submit validates the request and enqueues it.
func (s *TimetableJobService) Submit(ctx context.Context, req dto.SolveTimetableRequest) (*dto.TimetableJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid solve payload")
	}
	job := dto.TimetableJobResponse{
		ID:          uuid.NewString(),
		Status:      dto.TimetableJobQueued,
		SubmittedAt: time.Now().UTC(),
	}
	s.store.Save(job)

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: timetableJobType, Payload: req}); err != nil {
		s.store.Delete(job.ID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue solve")
	}
	s.logger.Info("timetable solve queued",
		zap.String("job_id", job.ID),
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.Int("pending", s.queue.Len()),
	)
	return &job, nil
}

// Status returns the job, or NOT_FOUND once it expired.
func (s *TimetableJobService) Status(id string) (*dto.TimetableJobResponse, error) {
	job, ok := s.store.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found or expired")
	}
	return &job, nil
}

func (s *TimetableJobService) handle(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.SolveTimetableRequest)
	if !ok {
		return jobs.Permanent(errors.New("unexpected job payload"))
	}
	s.store.Update(job.ID, func(item *dto.TimetableJobResponse) {
		item.Status = dto.TimetableJobRunning
	})

	resp, err := s.runner.Solve(ctx, req)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Status < 500 {
			return jobs.Permanent(err)
		}
		return err
	}

	finished := time.Now().UTC()
	s.store.Update(job.ID, func(item *dto.TimetableJobResponse) {
		item.Status = dto.TimetableJobSucceeded
		item.Result = resp
		item.FinishedAt = &finished
	})
	s.metrics.ObserveJob(string(dto.TimetableJobSucceeded))
	return nil
}

func (s *TimetableJobService) fail(job jobs.Job, err error) {
	finished := time.Now().UTC()
	s.store.Update(job.ID, func(item *dto.TimetableJobResponse) {
		item.Status = dto.TimetableJobFailed
		item.Error = err.Error()
		item.FinishedAt = &finished
	})
	s.metrics.ObserveJob(string(dto.TimetableJobFailed))
}

type jobStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]dto.TimetableJobResponse
}

func newJobStore(ttl time.Duration) *jobStore {
	return &jobStore{
		ttl:   ttl,
		items: make(map[string]dto.TimetableJobResponse),
	}
}

func (s *jobStore) Save(job dto.TimetableJobResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(time.Now())
	s.items[job.ID] = job
}

func (s *jobStore) Update(id string, fn func(*dto.TimetableJobResponse)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return
	}
	fn(&item)
	s.items[id] = item
}

func (s *jobStore) Get(id string) (dto.TimetableJobResponse, bool) {
	s.mu.RLock()
	job, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return dto.TimetableJobResponse{}, false
	}
	if time.Since(job.SubmittedAt) > s.ttl {
		s.Delete(id)
		return dto.TimetableJobResponse{}, false
	}
	return job, true
}

func (s *jobStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// purgeLocked drops expired jobs; callers hold the write lock.
func (s *jobStore) purgeLocked(now time.Time) {
	for id, job := range s.items {
		if now.Sub(job.SubmittedAt) > s.ttl {
			delete(s.items, id)
		}
	}
}
