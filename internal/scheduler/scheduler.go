// Package scheduler runs background work on a single worker goroutine.
package scheduler

import (
	"errors"
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("leptosls.scheduler")

// ErrStopped is returned when scheduling on a stopped scheduler.
var ErrStopped = errors.New("scheduler stopped")

type Task struct {
	Name    string
	Execute func() error
}

type Scheduler struct {
	taskQueue chan Task
	stopChan  chan struct{}
	wg        sync.WaitGroup

	// mu guards stopped and sends on taskQueue, so nothing is sent after
	// the queue is closed.
	mu      sync.RWMutex
	stopped bool
}

// NewScheduler creates a new Scheduler with the specified queue size
func NewScheduler(queueSize int) *Scheduler {
	return &Scheduler{
		taskQueue: make(chan Task, queueSize),
		stopChan:  make(chan struct{}),
	}
}

// RunScheduler starts the worker loop. Queued tasks run one at a time.
func (s *Scheduler) RunScheduler() {
	go func() {
		for task := range s.taskQueue {
			s.execute(task)
		}
	}()
}

func (s *Scheduler) execute(task Task) {
	defer s.wg.Done()
	log.Debugf("executing %s", task.Name)
	if err := task.Execute(); err != nil {
		log.Errorf("task %s failed: %v", task.Name, err)
	}
}

// SchedulePeriodicTask queues lowTask now and then every interval. A tick
// is skipped when the queue is full.
func (s *Scheduler) SchedulePeriodicTask(interval time.Duration, lowTask Task) error {
	if err := s.enqueue(lowTask, false); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.enqueue(lowTask, false); err != nil {
					return
				}
			case <-s.stopChan:
				return
			}
		}
	}()
	return nil
}

// ScheduleHighPriorityTask queues task, waiting for room in the queue.
func (s *Scheduler) ScheduleHighPriorityTask(task Task) error {
	return s.enqueue(task, true)
}

func (s *Scheduler) enqueue(task Task, block bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return ErrStopped
	}

	s.wg.Add(1)
	if block {
		s.taskQueue <- task
		return nil
	}
	select {
	case s.taskQueue <- task:
		log.Debugf("scheduled %s", task.Name)
	default:
		s.wg.Done()
		log.Warningf("skipped scheduling %s, queue is full", task.Name)
	}
	return nil
}

// StopScheduler stops periodic scheduling, lets queued tasks finish, and
// waits for them.
func (s *Scheduler) StopScheduler() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	log.Info("stopping scheduler")
	s.stopped = true
	close(s.stopChan)
	close(s.taskQueue)
	s.mu.Unlock()

	s.wg.Wait()
	log.Info("scheduler stopped")
}
