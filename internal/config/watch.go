package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const reloadDebounce = 500 * time.Millisecond

// Watch observes the config file and invokes onChange with the reloaded
// configuration once writes settle. The parent directory is watched rather
// than the file itself because most editors replace the file on save. Watch
// blocks until ctx is cancelled.
func Watch(ctx context.Context, configFile string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	configFile = filepath.Clean(configFile)
	if err = watcher.Add(filepath.Dir(configFile)); err != nil {
		return fmt.Errorf("config watch: watch directory: %w", err)
	}

	var (
		mu       sync.Mutex
		timer    *time.Timer
		lastHash string
	)
	if data, readErr := os.ReadFile(configFile); readErr == nil {
		sum := sha256.Sum256(data)
		lastHash = hex.EncodeToString(sum[:])
	}

	reload := func() {
		data, readErr := os.ReadFile(configFile)
		if readErr != nil {
			log.Errorf("config watch: read config file: %v", readErr)
			return
		}
		if len(data) == 0 {
			log.Debug("config watch: ignoring empty config file write")
			return
		}
		sum := sha256.Sum256(data)
		newHash := hex.EncodeToString(sum[:])

		mu.Lock()
		unchanged := lastHash == newHash
		if !unchanged {
			lastHash = newHash
		}
		mu.Unlock()
		if unchanged {
			return
		}

		cfg, loadErr := LoadConfig(configFile)
		if loadErr != nil {
			log.Errorf("config watch: reload failed, keeping previous config: %v", loadErr)
			return
		}
		log.Info("config file changed, applying")
		onChange(cfg)
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != configFile {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, reload)
			mu.Unlock()
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("config watch: %v", watchErr)
		}
	}
}
