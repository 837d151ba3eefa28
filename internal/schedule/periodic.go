// Package schedule runs independent periodic tasks that share one
// cancellation signal. Each task runs on its own goroutine and its runs never
// overlap; a slow task delays only its own next tick.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrInvalidInterval = errors.New("task interval must be positive")

type Task struct {
	Name     string
	Interval time.Duration
	// Immediate runs the task once before the first tick.
	Immediate bool
	Run       func(ctx context.Context)
}

func (t Task) validate() error {
	if t.Interval <= 0 {
		return fmt.Errorf("task %q: %w", t.Name, ErrInvalidInterval)
	}
	if t.Run == nil {
		return fmt.Errorf("task %q: run func is nil", t.Name)
	}
	return nil
}

// Run blocks until ctx is done and every task goroutine has returned.
func Run(ctx context.Context, tasks ...Task) error {
	for _, task := range tasks {
		if err := task.validate(); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()
			loop(ctx, task)
		}(task)
	}

	wg.Wait()
	return nil
}

func loop(ctx context.Context, task Task) {
	if task.Immediate {
		if ctx.Err() != nil {
			return
		}
		task.Run(ctx)
	}

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task.Run(ctx)
		}
	}
}
