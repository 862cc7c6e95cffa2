// Package dirty decides which sources a compilation round has to rebuild.
package dirty

import (
	"context"
	"slices"
	"sync"

	"go.trai.ch/incr/internal/adapters/telemetry"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/incr/internal/engine/caches"
)

// FileStatus is the state of a source within the current round.
type FileStatus string

const (
	// StatusPending marks a source scheduled for compilation.
	StatusPending FileStatus = "Pending"
	// StatusCompiled marks a source already compiled in this round.
	StatusCompiled FileStatus = "Compiled"
)

// Plan is the outcome of classifying the project against the caches.
type Plan struct {
	// Changes is the raw classification of the current files.
	Changes domain.ChangeSet
	// Dirty holds the sorted absolute paths to compile: added and modified sources
	// plus the dependents of symbols declared by removed sources.
	Dirty []string
}

// Planner drives one compilation round over the caches of a manager.
type Planner struct {
	caches *caches.Manager
	tracer ports.Tracer

	mu     sync.Mutex
	status map[domain.PathKey]FileStatus
}

// New creates a planner. A nil tracer disables tracing.
func New(m *caches.Manager, tracer ports.Tracer) *Planner {
	if tracer == nil {
		tracer = telemetry.NewNoOpTracer()
	}
	return &Planner{
		caches: m,
		tracer: tracer,
		status: make(map[domain.PathKey]FileStatus),
	}
}

// Initial starts a round. Removed sources are purged from every cache and
// their outputs deleted; files referencing a symbol they declared become dirty.
func (p *Planner) Initial(ctx context.Context, files []string) (Plan, error) {
	ctx, span := p.tracer.Start(ctx, "dirty.initial", ports.WithAttribute("files", len(files)))
	defer span.End()

	cs, err := p.caches.Inputs().Classify(ctx, files)
	if err != nil {
		span.RecordError(err)
		return Plan{}, err
	}

	conv := p.caches.PathConverter()
	dependents, err := Dependents(p.caches, cs.Removed, slices.Concat(cs.Dirty(), cs.Removed))
	if err != nil {
		span.RecordError(err)
		return Plan{}, err
	}
	for _, path := range cs.Removed {
		if err := p.caches.RemoveSource(path); err != nil {
			span.RecordError(err)
			return Plan{}, err
		}
	}

	dirty := slices.Concat(cs.Dirty(), dependents)
	slices.Sort(dirty)

	plan := Plan{Changes: cs, Dirty: dirty}

	p.mu.Lock()
	p.status = make(map[domain.PathKey]FileStatus, len(plan.Dirty))
	for _, path := range plan.Dirty {
		p.status[conv.ToKey(path)] = StatusPending
	}
	p.mu.Unlock()

	span.SetAttribute("dirty", len(plan.Dirty))
	return plan, nil
}

// Dependents returns the sorted absolute paths of files referencing a symbol
// declared by one of paths, minus the files in exclude. It reads the caches only.
func Dependents(m *caches.Manager, paths, exclude []string) ([]string, error) {
	conv := m.PathConverter()

	var declared []domain.LookupSymbol
	for _, path := range paths {
		record, ok, err := m.Platform().Get(conv.ToKey(path))
		if err != nil {
			return nil, err
		}
		if ok {
			declared = append(declared, domain.DiffABI(record, domain.OutputRecord{}).Removed...)
		}
	}
	if len(declared) == 0 {
		return nil, nil
	}

	keys, err := m.Lookups().Affected(declared)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, path := range exclude {
		skip[path] = struct{}{}
	}
	var result []string
	for _, key := range keys {
		abs := conv.ToAbsolute(key)
		if _, ok := skip[abs]; !ok {
			result = append(result, abs)
		}
	}
	slices.Sort(result)
	return result, nil
}

// AfterCompile records a successful compilation of path and returns the sorted
// absolute paths of sources that must be compiled next: files referencing a
// symbol whose declared signature changed, minus files compiled in this round.
// The lookups of the file are fully replaced by refs.
func (p *Planner) AfterCompile(path string, outputs []string, refs []domain.LookupSymbol, abi map[string]string) ([]string, error) {
	conv := p.caches.PathConverter()
	key := conv.ToKey(path)

	if err := p.caches.Lookups().ReplaceLookupsFrom(path, refs); err != nil {
		return nil, err
	}
	diff, err := p.caches.Platform().Record(key, domain.OutputRecord{Outputs: outputs, ABI: abi})
	if err != nil {
		return nil, err
	}
	snapshot, err := p.caches.Inputs().Snapshot(path)
	if err != nil {
		return nil, err
	}
	if err := p.caches.Inputs().RecordCompiled(path, snapshot); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.status[key] = StatusCompiled

	if diff.IsEmpty() {
		return nil, nil
	}
	dependents, err := p.caches.Lookups().Affected(diff.Symbols())
	if err != nil {
		return nil, err
	}

	var next []string
	for _, dep := range dependents {
		if p.status[dep] == StatusCompiled {
			continue
		}
		p.status[dep] = StatusPending
		next = append(next, conv.ToAbsolute(dep))
	}
	slices.Sort(next)
	return next, nil
}

// Status returns the state of a source in the current round.
func (p *Planner) Status(path string) (FileStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.status[p.caches.PathConverter().ToKey(path)]
	return s, ok
}

// Pending returns the sorted absolute paths still waiting for compilation.
func (p *Planner) Pending() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	conv := p.caches.PathConverter()
	var pending []string
	for key, s := range p.status {
		if s == StatusPending {
			pending = append(pending, conv.ToAbsolute(key))
		}
	}
	slices.Sort(pending)
	return pending
}
