package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task периодическая фоновая задача со своим интервалом
type Task struct {
	Name     string
	Interval time.Duration
	// Run получает момент срабатывания таймера
	Run func(ctx context.Context, now time.Time) error
}

type RunRecorder interface {
	SchedulerRun(task, result string)
}

// Scheduler управляет фоновыми задачами. Каждая задача крутится в своей горутине,
// ошибка или паника одного запуска только логируется.
type Scheduler struct {
	tasks    []Task
	recorder RunRecorder
	logger   *zap.Logger
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler создаёт новый планировщик
func NewScheduler(logger *zap.Logger, recorder RunRecorder, tasks ...Task) *Scheduler {
	return &Scheduler{
		tasks:    tasks,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Int("tasks", len(s.tasks)))

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.runTask(ctx, task)
	}
}

// Stop останавливает фоновые задачи и ждёт завершения текущих запусков
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) runTask(ctx context.Context, task Task) {
	defer s.wg.Done()

	// Первый запуск сразу при старте
	s.runOnce(ctx, task)

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx, task)
		case <-s.stopChan:
			s.logger.Info("Task stopped", zap.String("task", task.Name))
			return
		case <-ctx.Done():
			s.logger.Info("Task cancelled", zap.String("task", task.Name))
			return
		}
	}
}

// runOnce выполняет один запуск, ограниченный интервалом задачи
func (s *Scheduler) runOnce(ctx context.Context, task Task) {
	runCtx, cancel := context.WithTimeout(ctx, task.Interval)
	defer cancel()

	started := s.now()
	err := s.safeRun(runCtx, task, started)

	result := "ok"
	if err != nil {
		result = "error"
		s.logger.Error("Task run failed",
			zap.String("task", task.Name),
			zap.Duration("elapsed", s.now().Sub(started)),
			zap.Error(err),
		)
	} else {
		s.logger.Debug("Task run completed",
			zap.String("task", task.Name),
			zap.Duration("elapsed", s.now().Sub(started)),
		)
	}

	if s.recorder != nil {
		s.recorder.SchedulerRun(task.Name, result)
	}
}

func (s *Scheduler) safeRun(ctx context.Context, task Task, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task.Run(ctx, now)
}
