package cache

import (
	"github.com/robfig/cron/v3"

	"github.com/vnykmshr/gopulse/pkg/common/errors"
	"github.com/vnykmshr/gopulse/pkg/common/validation"
)

// CleanupJanitor runs a cache's CleanUp on a cron schedule. Without a
// janitor, expired entries are only reclaimed incrementally as reads and
// writes touch them; a cache that goes quiet can pin memory until the next
// access. Standard cron expressions and the @every descriptor are
// accepted:
//
//	j, _ := cache.NewCleanupJanitor(sessions, "@every 5m")
//	j.Start()
//	defer j.Stop()
type CleanupJanitor struct {
	cron *cron.Cron
}

// NewCleanupJanitor schedules CleanUp on the given cron expression. The
// expression is validated immediately.
func NewCleanupJanitor[K comparable, V any](c Cache[K, V], cronExpr string) (*CleanupJanitor, error) {
	if c == nil {
		return nil, validation.ValidateNotNil("cache", "cache", nil)
	}
	if err := validation.ValidateNotEmpty("cache", "cronExpr", cronExpr); err != nil {
		return nil, err
	}

	runner := cron.New()
	if _, err := runner.AddFunc(cronExpr, c.CleanUp); err != nil {
		return nil, errors.NewValidationError("cache", "cronExpr", cronExpr, "not a valid cron expression").
			WithHint(err.Error())
	}
	return &CleanupJanitor{cron: runner}, nil
}

// Start begins running the schedule on its own goroutine.
func (j *CleanupJanitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule. A CleanUp already in flight finishes.
func (j *CleanupJanitor) Stop() {
	j.cron.Stop()
}
