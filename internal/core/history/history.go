package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"spots/internal/shared"
)

// DefaultFileName is used when no history file is configured
const DefaultFileName = ".spots_download_history.txt"

// FileLedger is the plain-text history ledger: one "Artist - Title" entry per
// line, append-only. The file is re-read on every Contains so a second
// process appending to it is seen.
type FileLedger struct {
	mu   sync.Mutex
	path string
}

// NewFileLedger returns a ledger backed by path. The file is created on
// first use.
func NewFileLedger(path string) *FileLedger {
	return &FileLedger{path: path}
}

// Path returns the backing file path
func (l *FileLedger) Path() string {
	return l.path
}

func (l *FileLedger) ensureFile() error {
	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Contains reports whether entry is already in the ledger. Surrounding
// whitespace is ignored, as in Record.
func (l *FileLedger) Contains(entry string) (bool, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureFile(); err != nil {
		return false, fmt.Errorf("failed to create history file: %w", err)
	}

	f, err := os.Open(l.path)
	if err != nil {
		return false, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == entry {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("failed to read history file: %w", err)
	}
	return false, nil
}

// Record appends entry. It does not check for an existing entry; callers
// decide with Contains first.
func (l *FileLedger) Record(entry string) error {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureFile(); err != nil {
		return fmt.Errorf("failed to create history file: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, entry); err != nil {
		return fmt.Errorf("failed to append to history file: %w", err)
	}
	return nil
}

// Entries returns every entry in file order
func (l *FileLedger) Entries() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			entries = append(entries, line)
		}
	}
	return entries, nil
}

// FormatEntry builds the ledger entry for a track
func FormatEntry(artist, title string) string {
	return shared.FormatHistoryEntry(artist, title)
}
