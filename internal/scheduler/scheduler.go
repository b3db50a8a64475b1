package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Task runs once, Delay after its job was scheduled.
type Task struct {
	Name  string
	Delay time.Duration
	Run   func(ctx context.Context) error
}

type job struct {
	id     uuid.UUID
	cancel context.CancelFunc
}

// Scheduler runs delayed tasks grouped in jobs. Jobs are keyed: scheduling a
// key that still has a pending job cancels that job first. Task failures are
// logged and never reach the caller that scheduled them.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*job
	stopped bool
	logger  zerolog.Logger
	ctx     context.Context
	stopAll context.CancelFunc
	wg      sync.WaitGroup
}

func New(logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:    make(map[string]*job),
		logger:  logger,
		ctx:     ctx,
		stopAll: cancel,
	}
}

// Schedule starts a job for key and returns its id. Tasks run in delay order;
// ties keep their input order. After Stop nothing is scheduled and the
// returned id is uuid.Nil.
func (s *Scheduler) Schedule(key string, tasks []Task) uuid.UUID {
	ordered := make([]Task, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Delay < ordered[j].Delay })

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.logger.Debug().Str("key", key).Msg("scheduler stopped, dropping job")
		return uuid.Nil
	}

	ctx, cancel := context.WithCancel(s.ctx)
	j := &job{id: uuid.New(), cancel: cancel}
	if prev, ok := s.jobs[key]; ok {
		prev.cancel()
		s.logger.Debug().Str("key", key).Str("job_id", prev.id.String()).Msg("superseded pending job")
	}
	s.jobs[key] = j
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx, key, j, ordered)
	return j.id
}

// Cancel stops the pending job of key, if any.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[key]
	if !ok {
		return false
	}
	j.cancel()
	delete(s.jobs, key)
	return true
}

// pending reports how many keys still have a running job.
func (s *Scheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Stop cancels every job and waits for their goroutines to exit. It returns
// the number of jobs that were still pending.
func (s *Scheduler) Stop() int {
	s.mu.Lock()
	s.stopped = true
	pending := len(s.jobs)
	s.mu.Unlock()

	s.stopAll()
	s.wg.Wait()
	return pending
}

func (s *Scheduler) run(ctx context.Context, key string, j *job, tasks []Task) {
	defer s.wg.Done()
	defer s.finish(key, j)

	start := time.Now()
	for _, task := range tasks {
		timer := time.NewTimer(task.Delay - time.Since(start))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.runTask(ctx, key, task)
	}
}

func (s *Scheduler) runTask(ctx context.Context, key string, task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("key", key).Str("task", task.Name).Interface("panic", r).Msg("scheduled task panicked")
		}
	}()

	if err := task.Run(ctx); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Str("task", task.Name).Msg("scheduled task failed")
	}
}

func (s *Scheduler) finish(key string, j *job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.jobs[key]; ok && cur == j {
		delete(s.jobs, key)
	}
}
