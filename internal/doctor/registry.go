package doctor

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages health checkers and fixers. Checkers run concurrently but
// results keep registration order.
type Registry struct {
	mu       sync.RWMutex
	checkers []HealthChecker
	fixers   []Fixer
}

// NewRegistry creates a new Registry
func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterChecker registers a health checker
func (r *Registry) RegisterChecker(checker HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.checkers = append(r.checkers, checker)
}

// RegisterFixer registers a fixer
func (r *Registry) RegisterFixer(fixer Fixer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fixers = append(r.fixers, fixer)
}

// RunAll executes all registered health checkers concurrently
func (r *Registry) RunAll(ctx context.Context) []CheckResult {
	return r.Run(ctx, nil)
}

// Run executes the checkers in the given categories, or all of them when
// categories is empty.
func (r *Registry) Run(ctx context.Context, categories []Category) []CheckResult {
	r.mu.RLock()

	selected := make([]HealthChecker, 0, len(r.checkers))

	for _, c := range r.checkers {
		if len(categories) == 0 || slices.Contains(categories, c.Category()) {
			selected = append(selected, c)
		}
	}

	r.mu.RUnlock()

	results := make([]CheckResult, len(selected))
	g, gctx := errgroup.WithContext(ctx)

	for i, checker := range selected {
		g.Go(func() error {
			result := checker.Check(gctx)
			result.Category = checker.Category()
			results[i] = result

			return nil
		})
	}

	_ = g.Wait()

	return results
}

// FixerFor returns the first fixer that can fix result.
//
//nolint:ireturn // Fixer interface for polymorphism
func (r *Registry) FixerFor(result CheckResult) (Fixer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.fixers {
		if f.CanFix(result) {
			return f, true
		}
	}

	return nil, false
}

// CheckerCount returns the total number of registered checkers
func (r *Registry) CheckerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.checkers)
}

// FixerCount returns the total number of registered fixers
func (r *Registry) FixerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.fixers)
}
