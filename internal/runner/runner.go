// Package runner executes resolved check plans against live layers.
//
// Concurrency model: a bounded worker pool fans out over tables; inside
// one table, layer snapshots are read in parallel and cross-layer checks
// wait on their operand reads through a join barrier. Workers only ever
// append whole results to the shared sink, so partial states are never
// observable.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/datavet/datavet/internal/catalog"
	"github.com/datavet/datavet/internal/checks"
	"github.com/datavet/datavet/internal/compare"
	"github.com/datavet/datavet/internal/config"
	"github.com/datavet/datavet/internal/report"
	"github.com/datavet/datavet/internal/scd"
	"github.com/datavet/datavet/internal/scope"
	"github.com/datavet/datavet/internal/snapshot"
)

// DefaultWorkers bounds the table-level worker pool.
const DefaultWorkers = 4

// RunContext carries everything one run needs, as an explicit value.
// Nothing here is ambient; two runs with equal contexts and equal layer
// data produce byte-identical reports.
type RunContext struct {
	RunMode        config.RunMode
	Environment    string
	TriggerCounter int

	Connector snapshot.Connector
	Sink      *report.Sink
	Clock     Clock
	Tokens    TokenGenerator

	// Workers bounds table-level parallelism; zero means DefaultWorkers.
	Workers int
}

// Run executes the plans of all documents and returns the finalized
// report. Per-table failures degrade to error results; only an empty
// document set or a nil connector is a run-level error.
func Run(ctx context.Context, rc RunContext, docs []*config.Document) (*report.Report, error) {
	if rc.Connector == nil {
		return nil, errors.New("runner: no connector configured")
	}
	if rc.Clock == nil {
		rc.Clock = SystemClock{}
	}
	if rc.Tokens == nil {
		rc.Tokens = UUIDv7Generator{}
	}
	if rc.Sink == nil {
		rc.Sink = report.NewSink()
	}
	workers := rc.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	started := rc.Clock.Now()
	token := rc.Tokens.Generate()
	slog.Info("run started", "token", token, "mode", rc.RunMode, "tables", len(docs))

	jobs := make(chan *config.Document)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				runTable(ctx, rc, doc)
			}
		}()
	}
	tables := make([]string, 0, len(docs))
	for _, doc := range docs {
		tables = append(tables, doc.Table)
		jobs <- doc
	}
	close(jobs)
	wg.Wait()

	rep := rc.Sink.Finalize(report.Meta{
		RunToken:       token,
		TriggerCounter: rc.TriggerCounter,
		Environment:    rc.Environment,
		RunMode:        rc.RunMode,
		StartedAt:      started,
		Tables:         tables,
	})
	slog.Info("run finished", "token", token, "verdict", rep.Verdict,
		"pass", rep.Totals.Pass, "fail", rep.Totals.Fail, "error", rep.Totals.Error)
	return rep, nil
}

// layerRead is the outcome of one snapshot read.
type layerRead struct {
	snap *snapshot.Snapshot
	err  error
}

// runTable resolves and executes one table's plan. Every resolved
// (layer, check) pair emits exactly one result, whatever fails.
func runTable(ctx context.Context, rc RunContext, doc *config.Document) {
	cat, err := config.BuildCatalog(doc)
	if err != nil {
		// Without a catalog no check can run; the plan itself is still
		// resolvable, so each planned check reports the config error.
		emitPlanErrors(rc, doc, "invalid column metadata: %v", err)
		return
	}
	plan, err := scope.Resolve(doc, rc.RunMode)
	if err != nil {
		emitPlanErrors(rc, doc, "plan resolution failed: %v", err)
		return
	}
	if len(plan.Checks) == 0 {
		slog.Debug("empty plan", "table", doc.Table, "mode", rc.RunMode)
		return
	}

	reads := readLayers(ctx, rc, doc, plan)

	for _, rcheck := range plan.Checks {
		res := execute(rc, doc, cat, rcheck, reads)
		rc.Sink.Add(res)
	}
}

// readLayers reads every layer the plan touches, in parallel, exactly
// once per layer. The returned map is complete before any check runs,
// which is the join barrier cross-layer checks rely on.
func readLayers(ctx context.Context, rc RunContext, doc *config.Document, plan *scope.Plan) map[config.Layer]layerRead {
	needed := map[config.Layer]bool{}
	for _, c := range plan.Checks {
		needed[c.Layer] = true
		if c.DetectFrom == scope.DetectReferenceLayer {
			if c.Kind == checks.KindHistory {
				needed[config.LayerHistory] = true
				continue
			}
			if left, _, ok := scope.ReferencePair(c.Layer); ok {
				needed[left] = true
			}
		}
	}

	reads := make(map[config.Layer]layerRead, len(needed))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for layer := range needed {
		wg.Add(1)
		go func(layer config.Layer) {
			defer wg.Done()
			snap, err := readLayer(ctx, rc, doc, layer)
			mu.Lock()
			reads[layer] = layerRead{snap: snap, err: err}
			mu.Unlock()
		}(layer)
	}
	wg.Wait()
	return reads
}

func readLayer(ctx context.Context, rc RunContext, doc *config.Document, layer config.Layer) (*snapshot.Snapshot, error) {
	ref, ok := doc.Ref(layer)
	if !ok && layer == config.LayerHistory {
		// No explicit history reference: the history table sits next to
		// the warehouse table under the conventional _hist suffix.
		if wref, wok := doc.Ref(config.LayerWarehouse); wok {
			ref = config.LayerRef{Schema: wref.Schema, Table: wref.Table + "_hist"}
			ok = true
		}
	}
	if !ok {
		return nil, &snapshot.ConnectorError{Layer: layer, Table: doc.Table,
			Err: errors.New("no layer reference configured")}
	}
	return rc.Connector.Read(ctx, doc.Table, layer, ref)
}

// execute runs one resolved check against the read snapshots.
func execute(rc RunContext, doc *config.Document, cat *catalog.Catalog, rcheck scope.ResolvedCheck, reads map[config.Layer]layerRead) checks.Result {
	main := reads[rcheck.Layer]
	if main.err != nil {
		return checks.Errorf(rcheck.Kind, doc.Table, rcheck.Layer, "layer unavailable: %v", main.err)
	}

	switch rcheck.Kind {
	case checks.KindConsistency:
		return runConsistency(doc, cat, rcheck, reads)
	case checks.KindSCD:
		return runSCD(rc, doc, cat, rcheck, reads)
	}

	in := checks.Input{
		Catalog:    cat,
		Snapshot:   main.snap,
		Now:        rc.Clock.Now(),
		BatchType:  batchType(doc, rcheck.Layer),
		Tolerances: doc.Tolerances,
	}
	if rcheck.Kind == checks.KindHistory {
		hist := reads[config.LayerHistory]
		if hist.err != nil {
			return checks.Errorf(rcheck.Kind, doc.Table, rcheck.Layer, "history layer unavailable: %v", hist.err)
		}
		in.History = hist.snap
	}
	return checks.Run(rcheck.Kind, in)
}

func runConsistency(doc *config.Document, cat *catalog.Catalog, rcheck scope.ResolvedCheck, reads map[config.Layer]layerRead) checks.Result {
	left, right, ok := scope.ReferencePair(rcheck.Layer)
	if !ok {
		return checks.Errorf(rcheck.Kind, doc.Table, rcheck.Layer,
			"consistency needs an upstream layer; %s has none", rcheck.Layer)
	}
	lr, rr := reads[left], reads[right]
	if lr.err != nil {
		return checks.Errorf(rcheck.Kind, doc.Table, rcheck.Layer, "reference layer %s unavailable: %v", left, lr.err)
	}
	if rr.err != nil {
		return checks.Errorf(rcheck.Kind, doc.Table, rcheck.Layer, "layer unavailable: %v", rr.err)
	}

	keys := cat.BusinessKey()
	if len(keys) == 0 {
		return checks.Errorf(rcheck.Kind, doc.Table, rcheck.Layer, "no business key configured")
	}
	out, err := compare.Reconcile(lr.snap, rr.snap, cat, compare.Options{
		Keys:         keys,
		Tolerance:    doc.Tolerances.Consistency,
		SkipRowCount: doc.Synthetic.Enabled,
	})
	if err != nil {
		return checks.Errorf(rcheck.Kind, doc.Table, rcheck.Layer, "reconcile failed: %v", err)
	}
	return checks.ConsistencyResult(doc.Table, left, right, out)
}

func runSCD(rc RunContext, doc *config.Document, cat *catalog.Catalog, rcheck scope.ResolvedCheck, reads map[config.Layer]layerRead) checks.Result {
	landing, warehouse := reads[config.LayerLanding], reads[rcheck.Layer]
	if landing.err != nil {
		return checks.Errorf(rcheck.Kind, doc.Table, rcheck.Layer, "landing layer unavailable: %v", landing.err)
	}
	if warehouse.err != nil {
		return checks.Errorf(rcheck.Kind, doc.Table, rcheck.Layer, "layer unavailable: %v", warehouse.err)
	}

	out, err := scd.Validate(scd.Input{
		Catalog:  cat,
		Info:     doc.SCDInfo,
		Landing:  landing.snap,
		Current:  warehouse.snap,
		LoadDate: rc.Clock.Now(),
	})
	if err != nil {
		return checks.Errorf(rcheck.Kind, doc.Table, rcheck.Layer, "scd validation failed: %v", err)
	}
	return checks.SCDResult(doc.Table, rcheck.Layer, out)
}

// batchType selects the rows duplication considers: versioned warehouse
// tables deduplicate the current batch only, everything else the full
// snapshot.
func batchType(doc *config.Document, layer config.Layer) snapshot.BatchType {
	if layer == config.LayerWarehouse && doc.SCDInfo.Enabled {
		return snapshot.BatchLatest
	}
	return snapshot.BatchAll
}

// emitPlanErrors records one error result per planned check when the
// table cannot run at all. Resolution failure leaves no plan to walk, so
// the scoped cells are expanded directly, deduplicated per (layer, kind)
// the same way scope.Resolve collapses repeated entries.
func emitPlanErrors(rc RunContext, doc *config.Document, format string, args ...any) {
	modeScope := doc.TestScope[rc.RunMode]
	type cell struct {
		layer config.Layer
		kind  checks.Kind
	}
	seen := map[cell]bool{}
	for _, layer := range doc.PresentLayers() {
		for _, names := range modeScope[layer] {
			for _, name := range names {
				if i := strings.IndexByte(name, ':'); i >= 0 {
					name = strings.TrimSpace(name[:i])
				}
				kind := checks.Kind(strings.TrimSpace(name))
				if !checks.Known(kind) {
					kind = checks.Kind("unknown")
				}
				c := cell{layer, kind}
				if seen[c] {
					continue
				}
				seen[c] = true
				rc.Sink.Add(checks.Errorf(kind, doc.Table, layer, format, args...))
			}
		}
	}
}
