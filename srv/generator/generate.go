package generator

import (
	"context"
	"fmt"
	"time"
)

// Run executes one generation step under a timeout, reporting its start
// and outcome through p.
func Run(ctx context.Context, p *Progress, timeout time.Duration, step string, fn func(ctx context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	p.UpdateState(StateGenerating)
	p.UpdateOutput(step)
	start := time.Now()

	if err := fn(ctx); err != nil {
		p.UpdateState(StateError)
		return fmt.Errorf("%s: %w", step, err)
	}

	p.logger.Info("generation step finished")
	p.mu.Lock()
	p.Output = fmt.Sprintf("%s done in %s", step, time.Since(start).Round(time.Millisecond))
	p.mu.Unlock()
	p.UpdateState(StateCompleted)
	return nil
}
