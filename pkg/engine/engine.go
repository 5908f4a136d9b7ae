// Package engine drives the heal/scan pipeline: heal text, decode,
// evaluate rules, correlate across resources, optionally mutate and
// atomically persist.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fixmyk8s/kubecuro/pkg/document"
	"github.com/fixmyk8s/kubecuro/pkg/graph"
	"github.com/fixmyk8s/kubecuro/pkg/healer"
	"github.com/fixmyk8s/kubecuro/pkg/rules"
	"github.com/fixmyk8s/kubecuro/pkg/types"
)

// ErrMissingInput marks a root input path that does not exist. It is the
// only fatal condition: every other failure degrades to a per-file or
// per-document finding.
var ErrMissingInput = errors.New("input path does not exist")

// WriteError reports a failed atomic persist. The original file has
// already been restored from its backup when this is returned.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Config carries the engine's immutable configuration. The deprecation
// table is copied per catalog, so concurrent engines never share state.
type Config struct {
	Deprecations map[string]rules.Replacement
	Logger       *zap.Logger
}

// Engine is the healing orchestrator.
type Engine struct {
	catalog *rules.Catalog
	log     *zap.Logger
}

// New builds an engine. Zero-value Config selects the bundled deprecation
// table and a no-op logger.
func New(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		catalog: rules.NewCatalog(cfg.Deprecations, log),
		log:     log,
	}
}

// Heal runs the single-file pipeline: heal each segment, decode, apply
// auto-fixes, re-encode mutated documents, and persist atomically when
// the result differs from the original. It returns the rewritten content
// (when opts.ReturnContent is set and the file changed) and the set of
// triggered codes.
//
// Untouched documents keep their healed text verbatim rather than being
// re-encoded, so running Heal on its own output is always a byte-level
// no-op.
func (e *Engine) Heal(path string, opts types.HealOptions) ([]byte, map[string]bool, error) {
	original, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	segs, leading := document.Split(string(original))
	codes := make(map[string]bool)
	parts := make([]string, 0, len(segs))

	for _, seg := range segs {
		healed := healer.Heal(seg.Raw)
		if healed != seg.Raw {
			codes[types.CodeSyntaxHealed] = true
		}

		doc, err := document.Decode(path, document.Segment{Raw: healed, StartLine: seg.StartLine})
		if err != nil {
			// Healed-but-undecodable: better malformed-but-closer text
			// than a crash.
			codes[types.CodeSyntaxError] = true
			e.log.Warn("segment still undecodable after healing",
				zap.String("file", path), zap.Error(err))
			parts = append(parts, healed)
			continue
		}
		if doc == nil {
			parts = append(parts, healed)
			continue
		}

		mutated := false
		if opts.ApplyFixes {
			applied := e.catalog.ApplyFixes(doc, opts.ApplyDefaults)
			for _, code := range applied {
				codes[code] = true
			}
			mutated = len(applied) > 0
		}

		if !mutated {
			parts = append(parts, healed)
			continue
		}
		encoded, err := doc.Encode()
		if err != nil {
			e.log.Warn("re-encode failed, keeping healed text",
				zap.String("file", path), zap.Error(err))
			parts = append(parts, healed)
			continue
		}
		parts = append(parts, string(encoded))
	}

	final := document.Join(parts, leading)
	if final == string(original) {
		if opts.ReturnContent {
			return original, codes, nil
		}
		return nil, codes, nil
	}

	if !opts.DryRun {
		if err := persist(path, []byte(final)); err != nil {
			codes[types.CodeWriteFail] = true
			return nil, codes, &WriteError{Path: path, Err: err}
		}
	}
	if opts.ReturnContent {
		return []byte(final), codes, nil
	}
	return nil, codes, nil
}

type fileResult struct {
	docs     []*document.Document
	findings []types.Finding
}

// Scan evaluates the whole corpus: per-file ingestion runs in parallel,
// then the relationship graph is built once every file has been ingested
// (the one hard ordering barrier) and audited in a single pass.
func (e *Engine) Scan(ctx context.Context, paths []string, opts types.ScanOptions) ([]types.Finding, error) {
	files, err := Discover(paths, opts.Recursive)
	if err != nil {
		return nil, err
	}

	results := make([]fileResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			// Interrupt stops scheduling new files; work already started
			// runs to completion.
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.ingestFile(file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var docs []*document.Document
	var findings []types.Finding
	for _, r := range results {
		docs = append(docs, r.docs...)
		findings = append(findings, r.findings...)
	}

	snapshot := graph.Build(docs)
	findings = append(findings, snapshot.Audit(len(files) > 1)...)

	findings = dedupe(findings)
	if opts.MinSeverity != "" {
		findings = filterSeverity(findings, opts.MinSeverity)
	}
	sortFindings(findings)
	return findings, nil
}

// ingestFile heals and decodes one file and evaluates the per-document
// rule catalog. Failures degrade to findings; a scan is never aborted by
// a single bad file.
func (e *Engine) ingestFile(path string) fileResult {
	var res fileResult

	content, err := os.ReadFile(path)
	if err != nil {
		res.findings = append(res.findings, types.Finding{
			Code:     types.CodeSyntaxError,
			Severity: types.High,
			File:     path,
			Line:     1,
			Message:  fmt.Sprintf("file could not be read: %v", err),
		})
		return res
	}

	segs, _ := document.Split(string(content))
	for _, seg := range segs {
		healed := healer.Heal(seg.Raw)
		doc, err := document.Decode(path, document.Segment{Raw: healed, StartLine: seg.StartLine})
		if err != nil {
			line := 1
			var derr *document.DecodeError
			if errors.As(err, &derr) && derr.Line > 0 {
				line = derr.Line
			}
			res.findings = append(res.findings, types.Finding{
				Code:     types.CodeSyntaxError,
				Severity: types.High,
				File:     path,
				Line:     line,
				Message:  fmt.Sprintf("document is not parseable after healing: %v", err),
			})
			continue
		}
		if doc == nil {
			continue
		}
		res.docs = append(res.docs, doc)
		res.findings = append(res.findings, e.catalog.Evaluate(doc)...)
	}
	return res
}

// dedupe drops exact (file, line, code) duplicates, then suppresses a
// generic line-1 finding when a more specific instance of the same code
// exists anywhere in the same file.
func dedupe(findings []types.Finding) []types.Finding {
	seen := make(map[string]bool, len(findings))
	specific := make(map[string]bool)
	for _, f := range findings {
		if f.Line > 1 {
			specific[f.Fingerprint()] = true
		}
	}

	out := findings[:0]
	for _, f := range findings {
		if seen[f.Key()] {
			continue
		}
		seen[f.Key()] = true
		if f.Line <= 1 && specific[f.Fingerprint()] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func filterSeverity(findings []types.Finding, min types.Severity) []types.Finding {
	out := findings[:0]
	for _, f := range findings {
		if f.Severity.AtLeast(min) {
			out = append(out, f)
		}
	}
	return out
}

func sortFindings(findings []types.Finding) {
	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Code < b.Code
	})
}
