package cleanup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/aatumaykin/docsweep/internal/logger"
	"github.com/aatumaykin/docsweep/internal/workers"
	"github.com/aatumaykin/docsweep/internal/workspace"
)

const fallbackCheckInterval = 5 * time.Minute

// Options configures a Manager. Every field is optional.
type Options struct {
	Logger     *logger.Logger
	Metrics    *Metrics
	Pool       *workers.WorkerPool // concurrent category scans
	Extensions []Extension
	Remove     Remover
	Now        func() time.Time
}

// Manager owns the monitor loop, the session tracker and the published status.
// The application creates one Manager and passes it to whoever needs it.
type Manager struct {
	registry *Registry
	sessions *SessionTracker
	sampler  *Sampler
	executor *Executor
	metrics  *Metrics
	logger   *logger.Logger
	now      func() time.Time

	extMu      sync.RWMutex
	extensions []Extension

	lastActivity atomic.Int64

	// cycleMu serializes everything that deletes files.
	cycleMu sync.Mutex

	statusMu sync.Mutex
	status   atomic.Pointer[Status]

	loopMu   sync.Mutex
	baseCtx  context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	reloadCh chan struct{}
}

// NewManager creates a stopped manager for policy.
func NewManager(policy *Policy, opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Field{Key: "component", Value: "cleanup"})

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	sessions := NewSessionTracker()
	executor := NewExecutor(sessions, log, opts.Remove)
	executor.now = now

	m := &Manager{
		registry:   NewRegistry(policy),
		sessions:   sessions,
		sampler:    NewSampler(opts.Pool, log),
		executor:   executor,
		metrics:    opts.Metrics,
		logger:     log,
		now:        now,
		extensions: append([]Extension(nil), opts.Extensions...),
		reloadCh:   make(chan struct{}, 1),
	}
	m.lastActivity.Store(now().UnixNano())
	m.status.Store(&Status{})
	return m
}

// Policy returns the active policy.
func (m *Manager) Policy() *Policy {
	return m.registry.Load()
}

// Sessions returns the session tracker.
func (m *Manager) Sessions() *SessionTracker {
	return m.sessions
}

// Start launches the monitor loop. Starting a running manager is a no-op,
// and so is starting with monitoring disabled.
func (m *Manager) Start(ctx context.Context) {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()

	m.baseCtx = ctx

	if m.cancel != nil {
		m.logger.Debug(ErrAlreadyRunning.Error())
		return
	}

	p := m.registry.Load()
	if !p.Enabled {
		m.logger.Info("auto cleanup disabled")
		return
	}
	m.ensureDirs(p)

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.publish(func(s *Status) { s.MonitorRunning = true })

	go m.loop(loopCtx, done)
}

// Stop terminates the monitor loop and waits for it. A cycle in progress
// stops deleting before its next file. Stopping a stopped manager is a no-op.
func (m *Manager) Stop() {
	m.loopMu.Lock()
	cancel, done := m.cancel, m.done
	m.loopMu.Unlock()

	if cancel == nil {
		m.logger.Debug(ErrNotRunning.Error())
		return
	}
	cancel()
	<-done
}

// Running reports whether the monitor loop is active.
func (m *Manager) Running() bool {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()
	return m.cancel != nil
}

func (m *Manager) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		m.loopMu.Lock()
		if m.done == done {
			m.cancel = nil
			m.done = nil
		}
		m.publish(func(s *Status) { s.MonitorRunning = false })
		m.loopMu.Unlock()
		close(done)
	}()

	interval := checkInterval(m.registry.Load())
	m.logger.Info("cleanup monitor started",
		logger.Field{Key: "interval", Value: interval.String()})

	m.runCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("cleanup monitor stopped")
			return

		case <-m.reloadCh:
			if next := checkInterval(m.registry.Load()); next != interval {
				interval = next
				ticker.Reset(interval)
				m.logger.Info("cleanup interval changed",
					logger.Field{Key: "interval", Value: interval.String()})
			}

		case <-ticker.C:
			m.runCycle(ctx)
		}
	}
}

func checkInterval(p *Policy) time.Duration {
	if p.CheckInterval <= 0 {
		return fallbackCheckInterval
	}
	return p.CheckInterval
}

// runCycle runs one automatic cycle. Nothing escapes it: failures and panics
// are logged and counted.
func (m *Manager) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	cycleID := uuid.NewString()
	if err := m.safeCycle(ctx, cycleID); err != nil {
		m.metrics.RecordCycleError()
		m.publish(func(s *Status) {
			s.CycleID = cycleID
			s.ErrorCount++
			s.LastCheckTime = m.now()
		})
		m.logger.Error("cleanup cycle failed", err,
			logger.Field{Key: "cycle_id", Value: cycleID})
	}
}

func (m *Manager) safeCycle(ctx context.Context, cycleID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &SchedulingError{CycleID: cycleID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	_, err = m.sweep(ctx, cycleID, "", false)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil
		}
		return &SchedulingError{CycleID: cycleID, Err: err}
	}
	return nil
}

// sweep scans, decides and executes. An empty mode lets the policy pick one.
// The caller holds cycleMu.
func (m *Manager) sweep(ctx context.Context, cycleID string, mode Mode, dryRun bool) (Result, error) {
	p := m.registry.Load()
	log := m.logger.With(logger.Field{Key: "cycle_id", Value: cycleID})

	records, usage, err := m.sampler.Scan(ctx, p.Categories())
	if err != nil {
		return Result{}, fmt.Errorf("scan: %w", err)
	}
	m.metrics.SetUsage(usage)

	if n := m.sessions.Reconcile(fileExists); n > 0 {
		log.Debug("dropped vanished session files", logger.Field{Key: "count", Value: n})
	}

	now := m.now()
	if mode == "" {
		mode = SelectMode(p, usage, m.idleFor(now))
	}

	sessionPaths := m.sessions.All()
	markSessionRecords(records, sessionPaths)

	decisions := Decide(Input{
		Mode:         mode,
		Records:      records,
		SessionPaths: sessionPaths,
		Usage:        usage,
		Now:          now,
	}, p)

	log.Info("cleanup cycle",
		logger.Field{Key: "mode", Value: string(mode)},
		logger.Field{Key: "disk_usage", Value: FormatSize(usage.TotalBytes)},
		logger.Field{Key: "files", Value: usage.TotalFiles},
		logger.Field{Key: "selected", Value: len(decisions)})

	// A started batch runs to completion; Stop waits for it.
	res := m.apply(context.WithoutCancel(ctx), p, mode, decisions, dryRun || p.DryRun)

	if mode == ModeIdle && !res.DryRun {
		m.touchAt(m.now())
	}

	after := usageAfter(usage, res)
	m.publish(func(s *Status) {
		s.CycleID = cycleID
		s.Mode = mode
		s.DiskUsageBytes = after.TotalBytes
		s.FileCount = after.TotalFiles
		s.Categories = after.Categories
		s.LastCheckTime = now
		m.recordResult(s, res)
	})
	m.metrics.SetSessionFiles(m.sessions.Len())

	return res, nil
}

// apply runs the executor (or a preview), prunes empty directories and
// notifies extensions.
func (m *Manager) apply(ctx context.Context, p *Policy, mode Mode, decisions []Decision, dryRun bool) Result {
	started := time.Now()

	var res Result
	if dryRun {
		res = m.executor.Preview(mode, decisions)
	} else {
		res = m.executor.Execute(ctx, mode, decisions)
		if p.RemoveEmptyDirs && mode != ModeSessionTeardown && len(res.Deleted) > 0 {
			m.pruneEmptyDirs(p)
		}
	}

	m.metrics.RecordRun(res, time.Since(started))
	m.runExtensions(ctx, Event{Mode: mode, Result: res, Policy: p})

	if len(res.Deleted) > 0 || len(res.Failed) > 0 {
		m.logger.Info("cleanup finished",
			logger.Field{Key: "mode", Value: string(mode)},
			logger.Field{Key: "deleted", Value: len(res.Deleted)},
			logger.Field{Key: "failed", Value: len(res.Failed)},
			logger.Field{Key: "freed", Value: FormatSize(res.BytesFreed)},
			logger.Field{Key: "dry_run", Value: res.DryRun})
	}
	return res
}

func (m *Manager) recordResult(s *Status, res Result) {
	if res.DryRun || len(res.Deleted) == 0 {
		return
	}
	s.CleanupCount++
	s.FilesDeleted += int64(len(res.Deleted))
	s.BytesFreed += res.BytesFreed
	s.LastCleanupTime = res.Finished
}

// TriggerManualCleanup runs one cleanup in mode right away and returns its result.
// Session teardown is reserved for the shutdown hook.
func (m *Manager) TriggerManualCleanup(ctx context.Context, mode Mode) (Result, error) {
	return m.manual(ctx, mode, false)
}

// Preview reports what a cleanup in mode would delete without deleting anything.
func (m *Manager) Preview(ctx context.Context, mode Mode) (Result, error) {
	return m.manual(ctx, mode, true)
}

func (m *Manager) manual(ctx context.Context, mode Mode, dryRun bool) (Result, error) {
	switch mode {
	case ModeRoutine, ModeNormal, ModeEmergency, ModeIdle:
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	m.Touch()

	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	cycleID := uuid.NewString()
	m.logger.Info("manual cleanup triggered",
		logger.Field{Key: "cycle_id", Value: cycleID},
		logger.Field{Key: "mode", Value: string(mode)},
		logger.Field{Key: "dry_run", Value: dryRun})

	res, err := m.sweep(ctx, cycleID, mode, dryRun)
	if err != nil {
		return Result{}, &SchedulingError{CycleID: cycleID, Err: err}
	}
	return res, nil
}

// Teardown deletes every registered session file and clears the tracker.
// It ignores age, category rules and the grace period. It does nothing when
// session cleanup is disabled.
func (m *Manager) Teardown(ctx context.Context) Result {
	ctx = context.WithoutCancel(ctx)

	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	p := m.registry.Load()
	if !p.SessionCleanup {
		m.logger.Info("session cleanup disabled, keeping session files",
			logger.Field{Key: "count", Value: m.sessions.Len()})
		return Result{Mode: ModeSessionTeardown, Deleted: []Deletion{}, Failed: []Failure{}}
	}

	paths := m.sessions.All()
	records := make([]FileRecord, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		rec := FileRecord{Path: path, Size: info.Size(), ModTime: info.ModTime(), Session: true}
		if c, ok := p.CategoryFor(path); ok {
			rec.Category = c.Name
		}
		records = append(records, rec)
	}

	decisions := Decide(Input{
		Mode:         ModeSessionTeardown,
		Records:      records,
		SessionPaths: paths,
		Now:          m.now(),
	}, p)

	m.logger.Info("session teardown",
		logger.Field{Key: "session_files", Value: len(paths)})

	res := m.apply(ctx, p, ModeSessionTeardown, decisions, p.DryRun)
	if !res.DryRun {
		m.sessions.Clear()
	}

	m.publish(func(s *Status) {
		s.Mode = ModeSessionTeardown
		m.recordResult(s, res)
	})
	m.metrics.SetSessionFiles(m.sessions.Len())
	return res
}

// RegisterSessionFile tracks path for the session teardown sweep.
// Safe to call at any time, before Start included.
func (m *Manager) RegisterSessionFile(path string) bool {
	m.Touch()
	added := m.sessions.Register(path)
	if added {
		m.metrics.SetSessionFiles(m.sessions.Len())
	}
	return added
}

// Status returns the latest published snapshot. It never waits for a running cycle.
func (m *Manager) Status() Status {
	m.Touch()
	s := m.status.Load().clone()
	s.SessionFiles = m.sessions.Len()
	return s
}

// Touch records application activity, postponing the idle sweep.
func (m *Manager) Touch() {
	m.touchAt(m.now())
}

func (m *Manager) touchAt(t time.Time) {
	m.lastActivity.Store(t.UnixNano())
}

func (m *Manager) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, m.lastActivity.Load()))
}

// Reload installs a new policy atomically. The running loop picks up a new
// check interval; disabling monitoring stops the loop and enabling it again
// restarts the loop with the context of the last Start.
func (m *Manager) Reload(p *Policy) {
	if p == nil {
		return
	}
	old := m.registry.Swap(p)
	m.logger.Info("cleanup policy reloaded",
		logger.Field{Key: "categories", Value: len(p.categories)},
		logger.Field{Key: "enabled", Value: p.Enabled})

	m.loopMu.Lock()
	running := m.cancel != nil
	base := m.baseCtx
	m.loopMu.Unlock()

	switch {
	case running && !p.Enabled:
		m.Stop()
	case running:
		m.ensureDirs(p)
		select {
		case m.reloadCh <- struct{}{}:
		default:
		}
	case p.Enabled && !old.Enabled && base != nil && base.Err() == nil:
		m.Start(base)
	}
}

// AddExtension appends ext to the extension list.
func (m *Manager) AddExtension(ext Extension) {
	m.extMu.Lock()
	m.extensions = append(m.extensions, ext)
	m.extMu.Unlock()
}

func (m *Manager) runExtensions(ctx context.Context, ev Event) {
	m.extMu.RLock()
	exts := append([]Extension(nil), m.extensions...)
	m.extMu.RUnlock()

	for _, ext := range exts {
		m.runExtension(ctx, ext, ev)
	}
}

func (m *Manager) runExtension(ctx context.Context, ext Extension, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("cleanup extension panicked", fmt.Errorf("panic: %v", r),
				logger.Field{Key: "extension", Value: ext.Name()})
		}
	}()
	if err := ext.AfterCleanup(ctx, ev); err != nil {
		m.logger.Error("cleanup extension failed", err,
			logger.Field{Key: "extension", Value: ext.Name()})
	}
}

func (m *Manager) publish(fn func(*Status)) {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()

	next := m.status.Load().clone()
	fn(&next)
	m.status.Store(&next)
}

func (m *Manager) ensureDirs(p *Policy) {
	for _, c := range p.categories {
		if !c.Enabled {
			continue
		}
		if err := workspace.EnsureDir(c.Dir); err != nil {
			m.logger.Warn("cannot create category directory",
				logger.Field{Key: "category", Value: c.Name},
				logger.Field{Key: "dir", Value: c.Dir},
				logger.Field{Key: "error", Value: err.Error()})
		}
	}
}

func (m *Manager) pruneEmptyDirs(p *Policy) {
	now := m.now()
	for _, c := range p.categories {
		if !c.Enabled {
			continue
		}
		n, err := workspace.RemoveEmptySubdirs(c.Dir, p.GracePeriod, now)
		if err != nil {
			m.logger.Warn("cannot prune empty directories",
				logger.Field{Key: "category", Value: c.Name},
				logger.Field{Key: "error", Value: err.Error()})
			continue
		}
		if n > 0 {
			m.logger.Debug("removed empty directories",
				logger.Field{Key: "category", Value: c.Name},
				logger.Field{Key: "count", Value: n})
		}
	}
}

func markSessionRecords(records []FileRecord, sessionPaths []string) {
	if len(sessionPaths) == 0 {
		return
	}
	set := make(map[string]struct{}, len(sessionPaths))
	for _, p := range sessionPaths {
		set[p] = struct{}{}
	}
	for i := range records {
		if _, ok := set[records[i].Path]; ok {
			records[i].Session = true
		}
	}
}

// usageAfter subtracts the effect of res from the sampled usage.
func usageAfter(u Usage, res Result) Usage {
	out := Usage{
		TotalBytes: u.TotalBytes,
		TotalFiles: u.TotalFiles,
		Categories: make(map[string]CategoryUsage, len(u.Categories)),
	}
	for k, v := range u.Categories {
		out.Categories[k] = v
	}
	if res.DryRun {
		return out
	}
	for _, d := range res.Deleted {
		cu, ok := out.Categories[d.Category]
		if !ok || d.Size == 0 {
			continue
		}
		cu.Bytes -= d.Size
		cu.Files--
		out.Categories[d.Category] = cu
		out.TotalBytes -= d.Size
		out.TotalFiles--
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
