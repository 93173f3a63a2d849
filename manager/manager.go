// Package manager implements SearchEngineManager (spec.md §4.8): the
// single entry point that fans a query out across a set of memory
// regions, merges per-region results into one ordered set, reports
// progress while it runs, and exposes the refine/results/filter
// operations a host UI drives afterward.
//
// Grounded on original_source/app/src/main/rust/src/search/engine/manager.rs,
// which owns exactly this set of operations around a shared result
// set and a rayon thread pool, and on
// original_source/.../jni_interface/app.rs's
// ThreadPoolBuilder::new().num_threads(8), which fixes this package's
// default worker count. Error aggregation across regions uses
// github.com/hashicorp/go-multierror, the same pattern
// intel-cri-resource-manager uses for collecting errors from
// concurrent per-resource workers; per-search correlation IDs for log
// lines use github.com/google/uuid, mirroring that repo's per-request
// tracing IDs.
package manager

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/fuqiuluo/memscan/chunkreader"
	"github.com/fuqiuluo/memscan/config"
	"github.com/fuqiuluo/memscan/progress"
	"github.com/fuqiuluo/memscan/query"
	"github.com/fuqiuluo/memscan/reader"
	"github.com/fuqiuluo/memscan/region"
	"github.com/fuqiuluo/memscan/resultset"
	"github.com/fuqiuluo/memscan/resultstore"
	"github.com/fuqiuluo/memscan/scan"
	"github.com/fuqiuluo/memscan/value"
)

// SearchOptions configures one SearchMemory call.
type SearchOptions struct {
	// Deep selects exhaustive backtracking matching for group
	// queries instead of the faster first-fit pass (spec.md §4.7).
	// Ignored for single-value queries.
	Deep bool

	// ProgressTick overrides how often the progress buffer is
	// flushed; zero uses the manager's configured default.
	ProgressTick time.Duration
}

// Manager is a single search session over one memory reader: it owns
// the accumulated result store and the last query run, so a later
// RefineSearch call knows what to narrow.
type Manager struct {
	rdr reader.Reader
	cfg config.Config
	log *logrus.Entry

	store *resultstore.Store

	mu        sync.Mutex
	lastQuery *query.Query
}

// New creates a Manager reading through rdr, tuned by cfg. log may be
// nil, in which case a disabled logger is used.
func New(rdr reader.Reader, cfg config.Config, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Manager{
		rdr:   rdr,
		cfg:   cfg,
		log:   log.WithField("component", "memscan.manager"),
		store: resultstore.New(),
	}
}

// SearchMemory runs q against every region in regions, fanning the
// work out across a bounded worker pool, merging all matches into the
// manager's result store, and returning the progress buffer its
// updater wrote during the scan (spec.md §4.8, §4.11). It blocks until
// every region has been scanned, so the returned buffer holds the
// final state. The combined error lists every region whose scan could
// not run (chunkreader.ScanRegion refuses a window larger than the
// chunk size); a chunk whose read fails is skipped by the chunk driver
// and is not reported as an error.
func (m *Manager) SearchMemory(regions []region.Region, q *query.Query, opts SearchOptions) (*progress.Buffer, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	m.store.Clear()

	searchID := uuid.NewString()
	log := m.log.WithField("search_id", searchID)
	log.WithFields(logrus.Fields{
		"regions": len(regions),
		"deep":    opts.Deep,
		"mode":    q.Mode,
	}).Info("search starting")

	buf := &progress.Buffer{}
	updater := progress.NewUpdater(buf, len(regions))
	tick := opts.ProgressTick
	if tick <= 0 {
		tick = time.Duration(m.cfg.ProgressTickMillis) * time.Millisecond
	}
	go updater.Run(tick)
	defer updater.Stop()

	workers := m.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs *multierror.Error

	for _, reg := range regions {
		reg := reg
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			local := resultset.New()
			scanFn := m.buildScanFunc(q, opts.Deep, local)

			overlap := uint64(0)
			if !q.IsSingle() {
				overlap = q.Window()
			}

			if err := chunkreader.ScanRegion(m.rdr, reg, m.cfg.ChunkSize, overlap, scanFn); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("region %s-%s: %w", reg.Start, reg.End, err))
				mu.Unlock()
				log.WithError(err).WithField("region", reg.Start.String()).Warn("region scan failed")
			}

			m.store.AddResultsBatch(local.All())
			updater.AddFound(local.Len())
			updater.RegionDone()
		}()
	}
	wg.Wait()

	m.mu.Lock()
	m.lastQuery = q
	m.mu.Unlock()

	log.WithField("matches", m.store.TotalCount()).Info("search finished")
	return buf, errs.ErrorOrNil()
}

func (m *Manager) buildScanFunc(q *query.Query, deep bool, into *resultset.Set) chunkreader.ScanFunc {
	switch {
	case q.IsSingle():
		return scan.Single(q.Values[0], into)
	case deep:
		return scan.Deep(q, scan.DeepOptions{MaxCombinations: m.cfg.DeepSearchMaxCombinations}, into)
	default:
		return scan.Group(q, into)
	}
}

// RefineSearch narrows the current result set to only those matches
// that still satisfy q, re-reading each candidate address rather than
// re-scanning whole regions (spec.md §4.8).
func (m *Manager) RefineSearch(q *query.Query) error {
	if err := q.Validate(); err != nil {
		return err
	}
	snap := m.store.Snapshot()
	refined, err := scan.Refine(m.rdr, snap, q)
	if err != nil {
		return err
	}
	m.store.Replace(refined)
	m.mu.Lock()
	m.lastQuery = q
	m.mu.Unlock()
	m.log.WithField("matches", refined.Len()).Info("refine finished")
	return nil
}

// GetResults pages through the current, filtered result set.
func (m *Manager) GetResults(start, size int) []resultset.Pair {
	return m.store.GetResults(start, size)
}

// GetAllExactResults returns every unfiltered match of the given
// types.
func (m *Manager) GetAllExactResults(types ...value.Type) []resultset.Pair {
	return m.store.GetAllExact(types...)
}

// GetTotalCount returns the number of matches passing the current
// filter.
func (m *Manager) GetTotalCount() int {
	return m.store.TotalCount()
}

// ClearResults discards all accumulated matches.
func (m *Manager) ClearResults() {
	m.store.Clear()
}

// RemoveResult removes a single match.
func (m *Manager) RemoveResult(p resultset.Pair) {
	m.store.RemoveResult(p)
}

// RemoveResultsBatch removes a batch of matches.
func (m *Manager) RemoveResultsBatch(ps []resultset.Pair) {
	m.store.RemoveResultsBatch(ps)
}

// SetFilter installs an enumeration filter.
func (m *Manager) SetFilter(f resultstore.Filter) {
	m.store.SetFilter(f)
}

// ClearFilter removes any installed enumeration filter.
func (m *Manager) ClearFilter() {
	m.store.ClearFilter()
}

var (
	globalMu sync.Mutex
	global   *Manager
)

// Init installs the process-wide Manager singleton, replacing any
// previous one. Most hosts need exactly one active search session at
// a time, mirroring the Rust original's single static
// SearchEngineManager behind a OnceCell (original_source/.../manager.rs).
func Init(rdr reader.Reader, cfg config.Config, log *logrus.Logger) *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = New(rdr, cfg, log)
	return global
}

// Get returns the process-wide Manager singleton, or nil if Init
// hasn't been called.
func Get() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()
	return global
}

// Shutdown releases the process-wide Manager singleton.
func Shutdown() {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = nil
}
