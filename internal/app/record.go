package app

import (
	"context"
	"fmt"
	"os"

	"go.trai.ch/incr/internal/adapters/platform"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/engine/caches"
	"go.trai.ch/incr/internal/engine/dirty"
	"go.trai.ch/incr/internal/ui/style"
	"go.trai.ch/zerr"
)

// RecordRequest describes one successful compilation of a source.
type RecordRequest struct {
	// File is the compiled source, absolute or relative to the working directory.
	File string
	// Outputs are glob patterns of the produced artifacts, relative to the output directory.
	Outputs []string
	// Refs are the symbols the source references, as scope:name.
	Refs []string
	// ABI lists the declared symbols with their signature hash, as scope:name=signature.
	ABI []string
	// MetadataFile holds the serialized module header of a js source.
	MetadataFile string
}

// RecordResult is what a recorded compilation changed.
type RecordResult struct {
	// Outputs are the resolved artifacts, relative to the output directory.
	Outputs []string
	// Dependents are the absolute paths of sources to recompile because the ABI changed.
	Dependents []string
}

// Record stores the compilation of a source in every cache and prints the
// dependents that must be recompiled.
func (a *App) Record(ctx context.Context, o Options, req RecordRequest) (RecordResult, error) {
	refs := make([]domain.LookupSymbol, 0, len(req.Refs))
	for _, ref := range req.Refs {
		sym, err := domain.ParseLookupSymbol(ref)
		if err != nil {
			return RecordResult{}, err
		}
		refs = append(refs, sym)
	}

	var abi map[string]string
	for _, entry := range req.ABI {
		sym, sig, err := domain.ParseABIEntry(entry)
		if err != nil {
			return RecordResult{}, err
		}
		if abi == nil {
			abi = make(map[string]string, len(req.ABI))
		}
		abi[sym.String()] = sig
	}

	cwd, err := workingDir(o)
	if err != nil {
		return RecordResult{}, err
	}
	path := absolute(cwd, req.File)
	metadataFile := req.MetadataFile
	if metadataFile != "" {
		metadataFile = absolute(cwd, metadataFile)
	}

	var result RecordResult
	err = a.withCaches(o, func(m *caches.Manager) error {
		_, span := a.tracer.Start(ctx, "app.record")
		defer span.End()

		opts := m.Options()
		outputRoot := opts.OutputDir
		if outputRoot == "" {
			outputRoot = opts.ProjectRoot
		}
		if len(req.Outputs) > 0 {
			result.Outputs, err = a.resolver.ResolveOutputs(req.Outputs, outputRoot)
			if err != nil {
				span.RecordError(err)
				return err
			}
		}

		if err := a.recordMetadata(m, path, metadataFile); err != nil {
			span.RecordError(err)
			return err
		}

		planner := dirty.New(m, a.tracer)
		result.Dependents, err = planner.AfterCompile(path, result.Outputs, refs, abi)
		if err != nil {
			span.RecordError(err)
			return err
		}

		key := m.PathConverter().ToKey(path)
		a.logger.Info(fmt.Sprintf("%s recorded %s (%d outputs)", style.Check, key, len(result.Outputs)))
		for _, dep := range result.Dependents {
			_, _ = fmt.Fprintf(a.out, "%s %s\n", style.Arrow, m.PathConverter().ToKey(dep))
		}
		return nil
	})
	return result, err
}

func (a *App) recordMetadata(m *caches.Manager, path, metadataFile string) error {
	if metadataFile == "" {
		return nil
	}
	js, ok := m.Platform().(*platform.JSCache)
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrMetadataRequiresJS, "record metadata"), "platform", string(m.Platform().Platform()))
	}

	// #nosec G304 -- metadataFile is passed explicitly by the user
	header, err := os.ReadFile(metadataFile)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", metadataFile)
	}
	return js.SetMetadata(m.PathConverter().ToKey(path), header)
}

func workingDir(o Options) (string, error) {
	if o.Cwd != "" {
		return o.Cwd, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", zerr.Wrap(err, "failed to get working directory")
	}
	return wd, nil
}
