package cleanup

import (
	"sort"
	"time"
)

// Input is everything Decide needs to know about the world.
type Input struct {
	Mode         Mode
	Records      []FileRecord
	SessionPaths []string
	Usage        Usage
	Now          time.Time
}

// Decide returns the files to delete for in.Mode. It has no side effects.
//
// Outside session teardown only files of enabled categories that are older
// than the policy grace period are considered. The per-category retention
// rule applies in every mode; idle and emergency add their own selector on top.
// When the projected usage in emergency mode is still above the emergency
// threshold, every file outside the grace period is selected.
func Decide(in Input, p *Policy) []Decision {
	if in.Now.IsZero() {
		in.Now = time.Now()
	}

	sel := newSelection()

	if in.Mode == ModeSessionTeardown {
		byPath := make(map[string]FileRecord, len(in.Records))
		for _, r := range in.Records {
			byPath[r.Path] = r
		}
		for _, path := range in.SessionPaths {
			d := Decision{Path: path, Reason: ReasonSessionTeardown}
			if r, ok := byPath[path]; ok {
				d.Category, d.Size, d.ModTime = r.Category, r.Size, r.ModTime
			} else if c, ok := p.CategoryFor(path); ok {
				d.Category = c.Name
			}
			sel.add(d)
		}
		return sel.sorted()
	}

	eligible := make([]FileRecord, 0, len(in.Records))
	for _, r := range in.Records {
		cat, ok := p.Resolve(r.Category)
		if !ok || !cat.Enabled {
			continue
		}
		age := in.Now.Sub(r.ModTime)
		if age <= p.GracePeriod {
			continue
		}
		eligible = append(eligible, r)

		if age > cat.Retention() {
			sel.add(decisionFor(r, ReasonAgeExpired))
		}
		switch in.Mode {
		case ModeIdle:
			if age > p.IdleRetention {
				sel.add(decisionFor(r, ReasonIdleSweep))
			}
		case ModeEmergency:
			if age > p.EmergencyRetention {
				sel.add(decisionFor(r, ReasonDiskPressure))
			}
		}
	}

	// Escalation: still above the threshold after the age windows, so
	// everything outside the grace period goes.
	if in.Mode == ModeEmergency && p.EmergencyThreshold > 0 &&
		in.Usage.TotalBytes-sel.bytes() > p.EmergencyThreshold {
		for _, r := range eligible {
			sel.add(decisionFor(r, ReasonDiskPressure))
		}
	}

	return sel.sorted()
}

// SelectMode picks the periodic mode for the sampled usage and idle time.
// Session teardown is never selected here.
func SelectMode(p *Policy, usage Usage, idle time.Duration) Mode {
	switch {
	case p.EmergencyThreshold > 0 && usage.TotalBytes > p.EmergencyThreshold:
		return ModeEmergency
	case p.DiskThreshold > 0 && usage.TotalBytes > p.DiskThreshold:
		return ModeNormal
	case p.IdleTimeout > 0 && idle >= p.IdleTimeout:
		return ModeIdle
	default:
		return ModeRoutine
	}
}

func decisionFor(r FileRecord, reason Reason) Decision {
	return Decision{
		Path:     r.Path,
		Category: r.Category,
		Reason:   reason,
		Size:     r.Size,
		ModTime:  r.ModTime,
	}
}

// selection deduplicates decisions by path, keeping the strongest reason.
type selection struct {
	index     map[string]int
	decisions []Decision
}

func newSelection() *selection {
	return &selection{index: make(map[string]int)}
}

func (s *selection) add(d Decision) {
	if i, ok := s.index[d.Path]; ok {
		if d.Reason.rank() > s.decisions[i].Reason.rank() {
			s.decisions[i].Reason = d.Reason
		}
		return
	}
	s.index[d.Path] = len(s.decisions)
	s.decisions = append(s.decisions, d)
}

func (s *selection) bytes() int64 {
	var total int64
	for _, d := range s.decisions {
		total += d.Size
	}
	return total
}

// sorted returns decisions oldest first, then by path.
func (s *selection) sorted() []Decision {
	out := s.decisions
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].Path < out[j].Path
		}
		return out[i].ModTime.Before(out[j].ModTime)
	})
	return out
}
