package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Rotator is an io.Writer backed by a size-rotated log file.
type Rotator struct {
	config   *Config
	file     *os.File
	size     int64
	filename string
	cleaner  *Cleaner
	mu       sync.Mutex
}

// NewRotator opens (or creates) horloge.log under cfg.Directory.
func NewRotator(cfg *Config) (*Rotator, error) {
	filename := filepath.Join(cfg.Directory, "horloge.log")

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to get file stats: %w", err)
	}

	r := &Rotator{
		config:   cfg,
		file:     file,
		size:     stat.Size(),
		filename: filename,
		cleaner:  NewCleaner(cfg),
	}

	go r.cleaner.CleanOldFiles()

	return r, nil
}

func (r *Rotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shouldRotateBySize(len(p)) {
		if err := r.rotate(); err != nil {
			return 0, fmt.Errorf("failed to rotate log: %w", err)
		}
	}

	n, err := r.file.Write(p)
	if err != nil {
		return n, err
	}
	r.size += int64(n)
	return n, nil
}

func (r *Rotator) shouldRotateBySize(writeSize int) bool {
	maxSize := int64(r.config.MaxSize) * 1024 * 1024
	return r.size+int64(writeSize) > maxSize
}

func (r *Rotator) rotate() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close current log file: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	backupName := fmt.Sprintf("horloge-%s.log", timestamp)
	backupPath := filepath.Join(r.config.Directory, backupName)

	if err := os.Rename(r.filename, backupPath); err != nil {
		return fmt.Errorf("failed to rename log file: %w", err)
	}

	file, err := os.OpenFile(r.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create new log file: %w", err)
	}

	r.file = file
	r.size = 0

	go r.cleaner.CleanOldFiles()

	return nil
}

// Close releases the underlying file descriptor.
func (r *Rotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
