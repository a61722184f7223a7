// Package pidfile keeps two engines from sweeping the same base directory.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// FileName is created in the base directory while an engine runs.
const FileName = ".docsweep.pid"

// ErrLocked is returned when a live process already holds the base directory.
var ErrLocked = errors.New("base directory is locked by another docsweep process")

// Path возвращает путь к PID файлу
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Acquire записывает PID текущего процесса. Файл завершившегося процесса
// перезаписывается, для живого процесса возвращается ErrLocked.
func Acquire(dir string) error {
	path := Path(dir)

	if pid, err := Read(dir); err == nil && IsRunning(pid) {
		return fmt.Errorf("%w (pid %d, %s)", ErrLocked, pid, path)
	}

	data := fmt.Sprintf("%d\n", os.Getpid())
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// Release удаляет PID файл, если он принадлежит текущему процессу.
func Release(dir string) error {
	pid, err := Read(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if pid != os.Getpid() {
		return nil
	}
	if err := os.Remove(Path(dir)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Read читает PID из файла
func Read(dir string) (int, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return 0, err
	}

	var pid int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(data)), "%d", &pid); err != nil {
		return 0, fmt.Errorf("malformed PID file: %w", err)
	}
	return pid, nil
}

// IsRunning проверяет что процесс запущен
func IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 только проверяет существование процесса
	return process.Signal(syscall.Signal(0)) == nil
}
