package app

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/engine/caches"
	"go.trai.ch/incr/internal/engine/dirty"
	"go.trai.ch/incr/internal/ui/style"
)

// StatusReport compares the project with its caches.
type StatusReport struct {
	// Changes classifies every project source.
	Changes domain.ChangeSet
	// Dependents are unchanged sources referencing a symbol declared by a modified or removed source.
	Dependents []string
	// MissingOutputs maps a recorded source key to the outputs no longer on disk.
	MissingOutputs map[domain.PathKey][]string
}

// UpToDate reports whether nothing needs to be compiled.
func (r StatusReport) UpToDate() bool {
	return r.Changes.IsEmpty() && len(r.Dependents) == 0 && len(r.MissingOutputs) == 0
}

// Status classifies the project sources without modifying the caches and prints the result.
func (a *App) Status(ctx context.Context, o Options) (StatusReport, error) {
	var report StatusReport
	err := a.withCaches(o, func(m *caches.Manager) error {
		opts := m.Options()
		ctx, span := a.tracer.Start(ctx, "app.status")
		defer span.End()

		files, err := a.walker.Sources(opts.ProjectRoot, opts.SourceExtensions, opts.Ignores)
		if err != nil {
			return err
		}
		report.Changes, err = m.Inputs().Classify(ctx, files)
		if err != nil {
			span.RecordError(err)
			return err
		}

		changed := slices.Concat(report.Changes.Modified, report.Changes.Removed)
		exclude := slices.Concat(report.Changes.Added, changed)
		report.Dependents, err = dirty.Dependents(m, changed, exclude)
		if err != nil {
			return err
		}

		report.MissingOutputs, err = a.missingOutputs(m, report.Changes.Removed)
		if err != nil {
			return err
		}

		printStatus(a.out, m, report)
		return nil
	})
	return report, err
}

// missingOutputs checks the recorded outputs of every source that still exists.
func (a *App) missingOutputs(m *caches.Manager, removed []string) (map[domain.PathKey][]string, error) {
	outputDir := m.Options().OutputDir
	if outputDir == "" {
		return nil, nil
	}

	manifest, err := m.Platform().SourceToOutputs()
	if err != nil {
		return nil, err
	}

	gone := make(map[domain.PathKey]struct{}, len(removed))
	for _, path := range removed {
		gone[m.PathConverter().ToKey(path)] = struct{}{}
	}

	var missing map[domain.PathKey][]string
	for key, outputs := range manifest {
		if _, ok := gone[key]; ok {
			continue
		}
		lost, err := a.verifier.MissingOutputs(outputDir, outputs)
		if err != nil {
			return nil, err
		}
		if len(lost) > 0 {
			if missing == nil {
				missing = make(map[domain.PathKey][]string)
			}
			missing[key] = lost
		}
	}
	return missing, nil
}

func printStatus(w io.Writer, m *caches.Manager, r StatusReport) {
	conv := m.PathConverter()
	line := func(icon, path string) {
		_, _ = fmt.Fprintf(w, "%s %s\n", icon, conv.ToKey(path))
	}

	for _, path := range r.Changes.Added {
		line(style.Plus, path)
	}
	for _, path := range r.Changes.Modified {
		line(style.Tilde, path)
	}
	for _, path := range r.Changes.Removed {
		line(style.Minus, path)
	}
	for _, path := range r.Dependents {
		line(style.Arrow, path)
	}
	for _, key := range slices.Sorted(maps.Keys(r.MissingOutputs)) {
		_, _ = fmt.Fprintf(w, "%s %s: missing %s\n", style.Warning, key, strings.Join(r.MissingOutputs[key], ", "))
	}

	if r.UpToDate() {
		_, _ = fmt.Fprintf(w, "%s up to date (%d sources)\n", style.Check, len(r.Changes.Unchanged))
		return
	}
	_, _ = fmt.Fprintf(w, "%d added, %d modified, %d removed, %d unchanged, %d dependent\n",
		len(r.Changes.Added), len(r.Changes.Modified), len(r.Changes.Removed),
		len(r.Changes.Unchanged), len(r.Dependents))
}
