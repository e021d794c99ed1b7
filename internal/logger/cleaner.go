package logger

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Cleaner evicts rotated log files past the configured count/age cap.
type Cleaner struct {
	config *Config
}

func NewCleaner(cfg *Config) *Cleaner { return &Cleaner{config: cfg} }

func (c *Cleaner) CleanOldFiles() {
	c.cleanByCount()
	c.cleanByAge()
}

func (c *Cleaner) cleanByCount() {
	files, err := c.getLogFiles()
	if err != nil || len(files) <= c.config.MaxBackups {
		return
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime().Before(files[j].ModTime())
	})

	filesToRemove := len(files) - c.config.MaxBackups
	for i := 0; i < filesToRemove; i++ {
		os.Remove(filepath.Join(c.config.Directory, files[i].Name()))
	}
}

func (c *Cleaner) cleanByAge() {
	if c.config.MaxAge <= 0 {
		return
	}

	files, err := c.getLogFiles()
	if err != nil {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -c.config.MaxAge)
	for _, file := range files {
		if file.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(c.config.Directory, file.Name()))
		}
	}
}

func (c *Cleaner) getLogFiles() ([]os.FileInfo, error) {
	entries, err := os.ReadDir(c.config.Directory)
	if err != nil {
		return nil, err
	}

	var files []os.FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == "horloge.log" || (strings.HasPrefix(name, "horloge-") && strings.HasSuffix(name, ".log")) {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if name != "horloge.log" {
				files = append(files, info)
			}
		}
	}
	return files, nil
}
