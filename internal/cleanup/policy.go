package cleanup

import (
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aatumaykin/docsweep/internal/config"
)

const (
	bytesPerMB = 1024 * 1024
	day        = 24 * time.Hour
)

// Category is a managed scratch directory with its own retention rule.
type Category struct {
	Name          string
	Dir           string
	Enabled       bool
	RetentionDays int
}

// Retention returns the retention window as a duration.
func (c Category) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * day
}

// Policy is an immutable view of one configuration load.
// Thresholds of zero disable the corresponding check.
type Policy struct {
	Enabled            bool
	CheckInterval      time.Duration
	DiskThreshold      int64
	EmergencyThreshold int64
	SessionCleanup     bool
	IdleTimeout        time.Duration
	IdleRetention      time.Duration
	EmergencyRetention time.Duration
	GracePeriod        time.Duration
	RemoveEmptyDirs    bool
	DryRun             bool

	categories []Category
	byName     map[string]int
}

// NewPolicy builds a policy from a loaded configuration. Category
// directories are made absolute against the working directory.
func NewPolicy(cfg *config.Config) *Policy {
	if cfg == nil {
		cfg = config.Default()
	}
	ac := cfg.AutoCleanup

	cats := make([]Category, 0, len(cfg.CleanupRules))
	for name, rule := range cfg.CleanupRules {
		cats = append(cats, Category{
			Name:          name,
			Dir:           absPath(cfg.CategoryDir(name)),
			Enabled:       rule.IsEnabled(),
			RetentionDays: rule.Days(),
		})
	}

	p := &Policy{
		Enabled:            ac.Enabled,
		CheckInterval:      time.Duration(ac.CheckIntervalSeconds) * time.Second,
		DiskThreshold:      ac.DiskThresholdMB * bytesPerMB,
		EmergencyThreshold: ac.EmergencyThresholdMB * bytesPerMB,
		SessionCleanup:     ac.SessionCleanup,
		IdleTimeout:        time.Duration(ac.IdleTimeoutMinutes) * time.Minute,
		IdleRetention:      time.Duration(ac.IdleKeepDays) * day,
		EmergencyRetention: time.Duration(ac.EmergencyKeepDays) * day,
		GracePeriod:        time.Duration(ac.GracePeriodSeconds) * time.Second,
		RemoveEmptyDirs:    ac.RemoveEmptyDirs,
		DryRun:             ac.DryRun,
	}
	p.setCategories(cats)
	return p
}

// DefaultPolicy returns the policy of a missing configuration file.
func DefaultPolicy() *Policy {
	return NewPolicy(config.Default())
}

// WithCategories returns a copy of p managing cats instead of its own categories.
func (p *Policy) WithCategories(cats ...Category) *Policy {
	cp := *p
	normalized := make([]Category, len(cats))
	for i, c := range cats {
		c.Dir = absPath(c.Dir)
		normalized[i] = c
	}
	cp.setCategories(normalized)
	return &cp
}

func (p *Policy) setCategories(cats []Category) {
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	p.categories = cats
	p.byName = make(map[string]int, len(cats))
	for i, c := range cats {
		p.byName[c.Name] = i
	}
}

// Categories returns a copy of the managed categories sorted by name.
func (p *Policy) Categories() []Category {
	out := make([]Category, len(p.categories))
	copy(out, p.categories)
	return out
}

// Resolve looks up a category by name.
func (p *Policy) Resolve(name string) (Category, bool) {
	i, ok := p.byName[name]
	if !ok {
		return Category{}, false
	}
	return p.categories[i], true
}

// CategoryFor returns the category whose directory contains path.
// Nested category directories resolve to the deepest match.
func (p *Policy) CategoryFor(path string) (Category, bool) {
	path = absPath(path)
	var (
		best  Category
		found bool
	)
	for _, c := range p.categories {
		if !within(c.Dir, path) {
			continue
		}
		if !found || len(c.Dir) > len(best.Dir) {
			best, found = c, true
		}
	}
	return best, found
}

// within reports whether path lies strictly below dir.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

// Registry holds the current policy. A reload swaps the whole policy at once,
// so readers never see categories from two different loads.
type Registry struct {
	current atomic.Pointer[Policy]
}

// NewRegistry creates a registry holding p.
func NewRegistry(p *Policy) *Registry {
	if p == nil {
		p = DefaultPolicy()
	}
	r := &Registry{}
	r.current.Store(p)
	return r
}

// Load returns the current policy.
func (r *Registry) Load() *Policy {
	return r.current.Load()
}

// Swap installs p and returns the previous policy.
func (r *Registry) Swap(p *Policy) *Policy {
	return r.current.Swap(p)
}

// Resolve looks up a category in the current policy.
func (r *Registry) Resolve(name string) (Category, bool) {
	return r.Load().Resolve(name)
}
