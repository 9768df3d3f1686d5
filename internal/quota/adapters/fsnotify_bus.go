package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	pquota "github.com/jittakal/quotaenforcer/pkg/quota"
)

// storeSnapshotDoc is the on-disk shape of the watched snapshot file, one
// document per store, decoded into pquota.StoreSnapshot.
type storeSnapshotDoc struct {
	Name                string                  `yaml:"name"`
	StorageQuotaInBytes int64                   `yaml:"storageQuotaInBytes"`
	Versions            map[int]versionStateDoc `yaml:"versions"`
}

type versionStateDoc struct {
	Status string `yaml:"status"`
}

func (d storeSnapshotDoc) toSnapshot() pquota.StoreSnapshot {
	versions := make(map[int]pquota.VersionSnapshot, len(d.Versions))
	for number, v := range d.Versions {
		versions[number] = pquota.VersionSnapshot{Number: number, Status: pquota.VersionStatus(v.Status)}
	}
	return pquota.StoreSnapshot{
		Name:                d.Name,
		StorageQuotaInBytes: d.StorageQuotaInBytes,
		Versions:            versions,
	}
}

// FileStoreChangeBus watches a directory of per-store YAML snapshot files
// and fans out HandleStoreCreated/HandleStoreChanged/HandleStoreDeleted
// callbacks to every registered listener, the way the teacher's config
// watcher fans out a reload callback on every write to a watched file.
//
// Each file under the watched directory is expected to decode to a single
// storeSnapshotDoc named "<storeName>.yaml"; a file's removal is reported
// as the store's deletion.
type FileStoreChangeBus struct {
	dir          string
	watcher      *fsnotify.Watcher
	logger       *slog.Logger
	debounceTime time.Duration

	mu        sync.RWMutex
	listeners []pquota.StoreChangeListener
	known     map[string]struct{}

	stopCh chan struct{}
}

// NewFileStoreChangeBus creates a bus watching dir for store snapshot files.
// The directory is watched rather than individual files so that editors and
// deployment tools that create-then-rename are handled the same as a
// straightforward write.
func NewFileStoreChangeBus(dir string, logger *slog.Logger) (*FileStoreChangeBus, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("adapters: creating store-change watcher: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &FileStoreChangeBus{
		dir:          dir,
		watcher:      watcher,
		logger:       logger,
		debounceTime: 250 * time.Millisecond,
		known:        make(map[string]struct{}),
		stopCh:       make(chan struct{}),
	}, nil
}

// Subscribe registers a listener to receive store lifecycle callbacks.
// Subscriptions made after Start are honored for subsequent events only.
func (b *FileStoreChangeBus) Subscribe(listener pquota.StoreChangeListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listener)
}

// Start begins watching the snapshot directory and blocks until ctx is
// cancelled or Stop is called.
func (b *FileStoreChangeBus) Start(ctx context.Context) error {
	if err := b.watcher.Add(b.dir); err != nil {
		return fmt.Errorf("adapters: watching %s: %w", b.dir, err)
	}

	b.logger.Info("store change bus started", "dir", b.dir)

	var debounceTimer *time.Timer
	pending := make(map[string]struct{})

	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return b.watcher.Close()
		case <-b.stopCh:
			return b.watcher.Close()
		case event, ok := <-b.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".yaml" && filepath.Ext(event.Name) != ".yml" {
				continue
			}

			pending[event.Name] = struct{}{}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(b.debounceTime, func() {
				b.mu.Lock()
				names := make([]string, 0, len(pending))
				for name := range pending {
					names = append(names, name)
				}
				pending = make(map[string]struct{})
				b.mu.Unlock()

				for _, name := range names {
					b.handleFileEvent(name)
				}
			})
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return nil
			}
			b.logger.Error("store change watcher error", "error", err)
		}
	}
}

// Stop halts the watch loop started by Start.
func (b *FileStoreChangeBus) Stop() {
	close(b.stopCh)
}

func (b *FileStoreChangeBus) handleFileEvent(path string) {
	storeName := storeNameFromPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			b.dispatchDeleted(storeName)
			return
		}
		b.logger.Error("reading store snapshot file", "path", path, "error", err)
		return
	}

	var doc storeSnapshotDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		b.logger.Error("decoding store snapshot file", "path", path, "error", err)
		return
	}
	if doc.Name == "" {
		doc.Name = storeName
	}

	snapshot := doc.toSnapshot()

	b.mu.Lock()
	_, existed := b.known[doc.Name]
	b.known[doc.Name] = struct{}{}
	listeners := append([]pquota.StoreChangeListener(nil), b.listeners...)
	b.mu.Unlock()

	for _, listener := range listeners {
		if !existed {
			listener.HandleStoreCreated(snapshot)
		}
		if err := listener.HandleStoreChanged(snapshot); err != nil {
			b.logger.Error("store change listener failed", "store", doc.Name, "error", err)
		}
	}
}

func (b *FileStoreChangeBus) dispatchDeleted(storeName string) {
	b.mu.Lock()
	delete(b.known, storeName)
	listeners := append([]pquota.StoreChangeListener(nil), b.listeners...)
	b.mu.Unlock()

	for _, listener := range listeners {
		listener.HandleStoreDeleted(storeName)
	}
}

func storeNameFromPath(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
