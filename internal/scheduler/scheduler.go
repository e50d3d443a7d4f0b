// Package scheduler manages background periodic tasks with gocron.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// TaskFunc is the function signature for scheduled tasks.
type TaskFunc func(ctx context.Context) error

// TaskConfig contains configuration for a scheduled task.
type TaskConfig struct {
	ID          string
	Name        string
	Description string
	Interval    time.Duration
	Func        TaskFunc
	RunOnStart  bool // execute immediately on startup
}

// TaskInfo describes a scheduled task for status responses.
type TaskInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Interval    string     `json:"interval"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
	Running     bool       `json:"running"`
}

type taskEntry struct {
	config  TaskConfig
	job     gocron.Job
	lastRun *time.Time
	running bool
}

// Scheduler manages background scheduled tasks.
type Scheduler struct {
	gocron gocron.Scheduler
	logger zerolog.Logger
	tasks  map[string]*taskEntry
	mu     sync.RWMutex
}

// New creates a scheduler.
func New(logger zerolog.Logger) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{
		gocron: gs,
		logger: logger.With().Str("component", "scheduler").Logger(),
		tasks:  make(map[string]*taskEntry),
	}, nil
}

// RegisterTask registers a new scheduled task.
func (s *Scheduler) RegisterTask(config TaskConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[config.ID]; exists {
		return fmt.Errorf("task with ID %q already registered", config.ID)
	}
	if config.Interval <= 0 {
		return fmt.Errorf("task %q needs a positive interval", config.ID)
	}

	taskFunc := func() {
		s.executeTask(config.ID)
	}
	job, err := s.gocron.NewJob(
		gocron.DurationJob(config.Interval),
		gocron.NewTask(taskFunc),
		gocron.WithName(config.Name),
		gocron.WithTags(config.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to create job for task %q: %w", config.ID, err)
	}

	s.tasks[config.ID] = &taskEntry{config: config, job: job}
	s.logger.Info().
		Str("id", config.ID).
		Str("name", config.Name).
		Dur("interval", config.Interval).
		Bool("runOnStart", config.RunOnStart).
		Msg("Registered task")
	return nil
}

// executeTask runs a task and updates its state.
func (s *Scheduler) executeTask(taskID string) {
	s.mu.Lock()
	entry, exists := s.tasks[taskID]
	if !exists || entry.running {
		s.mu.Unlock()
		return
	}
	entry.running = true
	s.mu.Unlock()

	startTime := time.Now()
	s.logger.Info().
		Str("id", taskID).
		Str("name", entry.config.Name).
		Msg("Starting task")

	err := entry.config.Func(context.Background())

	s.mu.Lock()
	entry.running = false
	entry.lastRun = &startTime
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().
			Err(err).
			Str("id", taskID).
			Dur("duration", time.Since(startTime)).
			Msg("Task failed")
		return
	}
	s.logger.Info().
		Str("id", taskID).
		Dur("duration", time.Since(startTime)).
		Msg("Task completed")
}

// Start begins executing scheduled tasks and fires RunOnStart tasks.
func (s *Scheduler) Start() {
	s.gocron.Start()

	s.mu.RLock()
	var startNow []string
	for id, entry := range s.tasks {
		if entry.config.RunOnStart {
			startNow = append(startNow, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range startNow {
		go s.executeTask(id)
	}
	s.logger.Info().Int("tasks", len(s.tasks)).Msg("Scheduler started")
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() error {
	if err := s.gocron.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// RunTaskNow triggers a task out of schedule.
func (s *Scheduler) RunTaskNow(taskID string) error {
	s.mu.RLock()
	_, exists := s.tasks[taskID]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("task %q not found", taskID)
	}
	go s.executeTask(taskID)
	return nil
}

// Tasks lists all registered tasks.
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]TaskInfo, 0, len(s.tasks))
	for _, entry := range s.tasks {
		info := TaskInfo{
			ID:          entry.config.ID,
			Name:        entry.config.Name,
			Description: entry.config.Description,
			Interval:    entry.config.Interval.String(),
			LastRun:     entry.lastRun,
			Running:     entry.running,
		}
		if next, err := entry.job.NextRun(); err == nil && !next.IsZero() {
			info.NextRun = &next
		}
		infos = append(infos, info)
	}
	return infos
}
