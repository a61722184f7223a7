package cleanup

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects which selectors the rules engine applies.
type Mode string

const (
	ModeRoutine         Mode = "routine"
	ModeIdle            Mode = "idle"
	ModeNormal          Mode = "normal"
	ModeEmergency       Mode = "emergency"
	ModeSessionTeardown Mode = "session_teardown"
)

// ParseMode parses a mode name. "disk_pressure" is accepted as an alias of emergency.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeRoutine, ModeIdle, ModeNormal, ModeEmergency, ModeSessionTeardown:
		return m, nil
	case "disk_pressure":
		return ModeEmergency, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Reason explains why a file was selected.
type Reason string

const (
	ReasonAgeExpired      Reason = "age_expired"
	ReasonDiskPressure    Reason = "disk_pressure"
	ReasonIdleSweep       Reason = "idle_sweep"
	ReasonSessionTeardown Reason = "session_teardown"
)

// rank orders reasons for deduplication, higher wins.
func (r Reason) rank() int {
	switch r {
	case ReasonSessionTeardown:
		return 4
	case ReasonDiskPressure:
		return 3
	case ReasonAgeExpired:
		return 2
	case ReasonIdleSweep:
		return 1
	default:
		return 0
	}
}

// FileRecord describes one file found on disk or registered in the session.
type FileRecord struct {
	Path     string
	Category string // empty for session files outside every category
	Size     int64
	ModTime  time.Time
	Session  bool
}

// Decision is a single file selected for deletion.
type Decision struct {
	Path     string
	Category string
	Reason   Reason
	Size     int64
	ModTime  time.Time
}

// CategoryUsage is the footprint of a single category.
type CategoryUsage struct {
	Bytes int64 `json:"bytes"`
	Files int   `json:"files"`
}

// Usage is the aggregate footprint of the managed directories.
type Usage struct {
	TotalBytes int64
	TotalFiles int
	Categories map[string]CategoryUsage
}

// Deletion is a successfully removed file.
type Deletion struct {
	Path     string `json:"path"`
	Category string `json:"category,omitempty"`
	Reason   Reason `json:"reason"`
	Size     int64  `json:"size_bytes"`
}

// Failure is a file the executor could not remove.
type Failure struct {
	Path     string `json:"path"`
	Category string `json:"category,omitempty"`
	Reason   Reason `json:"reason"`
	Err      error  `json:"-"`
}

// Result is the outcome of one executor run.
type Result struct {
	Mode       Mode       `json:"mode"`
	Deleted    []Deletion `json:"deleted"`
	Failed     []Failure  `json:"failed"`
	Skipped    int        `json:"skipped,omitempty"`
	BytesFreed int64      `json:"bytes_freed"`
	DryRun     bool       `json:"dry_run"`
	Started    time.Time  `json:"started"`
	Finished   time.Time  `json:"finished"`
}

// DeletedPaths returns the paths of all deleted files.
func (r Result) DeletedPaths() []string {
	paths := make([]string, 0, len(r.Deleted))
	for _, d := range r.Deleted {
		paths = append(paths, d.Path)
	}
	return paths
}

// Status is the snapshot published by the monitor loop after every cycle.
// A published Status is never mutated.
type Status struct {
	CycleID         string                   `json:"cycle_id,omitempty"`
	Mode            Mode                     `json:"mode,omitempty"`
	DiskUsageBytes  int64                    `json:"disk_usage_bytes"`
	FileCount       int                      `json:"file_count"`
	SessionFiles    int                      `json:"session_files_count"`
	LastCheckTime   time.Time                `json:"last_check_time"`
	LastCleanupTime time.Time                `json:"last_cleanup_time"`
	CleanupCount    int64                    `json:"cleanup_count"`
	FilesDeleted    int64                    `json:"files_deleted"`
	BytesFreed      int64                    `json:"bytes_freed"`
	ErrorCount      int64                    `json:"error_count"`
	MonitorRunning  bool                     `json:"monitor_running"`
	Categories      map[string]CategoryUsage `json:"categories,omitempty"`
}

func (s Status) clone() Status {
	if s.Categories != nil {
		cats := make(map[string]CategoryUsage, len(s.Categories))
		for k, v := range s.Categories {
			cats[k] = v
		}
		s.Categories = cats
	}
	return s
}
