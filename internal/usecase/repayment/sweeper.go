package repayment

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// NewSweeper schedules MarkOverdue on spec. The caller starts and stops the
// returned cron.
func NewSweeper(s *Scheduler, spec string, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() { s.sweep(timeout) })
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Scheduler) sweep(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	n, err := s.MarkOverdue(ctx, s.now())
	if err != nil {
		s.log.Error("overdue sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("installments marked overdue", zap.Int64("count", n))
	}
}
