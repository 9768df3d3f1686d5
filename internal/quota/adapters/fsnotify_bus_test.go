package adapters

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	pquota "github.com/jittakal/quotaenforcer/pkg/quota"
)

type fakeStoreChangeListener struct {
	mu      sync.Mutex
	created []pquota.StoreSnapshot
	changed []pquota.StoreSnapshot
	deleted []string
	failing bool
}

func (l *fakeStoreChangeListener) HandleStoreCreated(store pquota.StoreSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.created = append(l.created, store)
}

func (l *fakeStoreChangeListener) HandleStoreDeleted(storeName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deleted = append(l.deleted, storeName)
}

func (l *fakeStoreChangeListener) HandleStoreChanged(store pquota.StoreSnapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changed = append(l.changed, store)
	if l.failing {
		return errTestListenerFailed
	}
	return nil
}

var errTestListenerFailed = &listenerError{"listener failed"}

type listenerError struct{ msg string }

func (e *listenerError) Error() string { return e.msg }

func TestStoreNameFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/tmp/stores/orders.yaml", "orders"},
		{"/tmp/stores/orders.yml", "orders"},
		{"events.yaml", "events"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := storeNameFromPath(tt.path); got != tt.want {
				t.Errorf("storeNameFromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestFileStoreChangeBus_HandleFileEvent(t *testing.T) {
	dir := filepath.Join(os.TempDir(), "quotaenforcer-test-storechange")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "orders.yaml")
	doc := []byte("name: orders\nstorageQuotaInBytes: 1000\nversions:\n  1:\n    status: ONLINE\n")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatalf("failed to write snapshot file: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	bus, err := NewFileStoreChangeBus(dir, logger)
	if err != nil {
		t.Fatalf("NewFileStoreChangeBus() error = %v", err)
	}

	listener := &fakeStoreChangeListener{}
	bus.Subscribe(listener)

	bus.handleFileEvent(path)

	if len(listener.created) != 1 {
		t.Fatalf("len(created) = %d, want 1", len(listener.created))
	}
	if listener.created[0].Name != "orders" {
		t.Errorf("created store name = %q, want orders", listener.created[0].Name)
	}
	if len(listener.changed) != 1 {
		t.Fatalf("len(changed) = %d, want 1", len(listener.changed))
	}

	// A second event for the same store is a change, not another creation.
	bus.handleFileEvent(path)
	if len(listener.created) != 1 {
		t.Errorf("len(created) after second event = %d, want 1", len(listener.created))
	}
	if len(listener.changed) != 2 {
		t.Errorf("len(changed) after second event = %d, want 2", len(listener.changed))
	}
}

func TestFileStoreChangeBus_HandleFileEvent_MissingFile(t *testing.T) {
	dir := filepath.Join(os.TempDir(), "quotaenforcer-test-storechange-missing")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	defer os.RemoveAll(dir)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	bus, err := NewFileStoreChangeBus(dir, logger)
	if err != nil {
		t.Fatalf("NewFileStoreChangeBus() error = %v", err)
	}

	listener := &fakeStoreChangeListener{}
	bus.Subscribe(listener)
	bus.known["orders"] = struct{}{}

	bus.handleFileEvent(filepath.Join(dir, "orders.yaml"))

	if len(listener.deleted) != 1 || listener.deleted[0] != "orders" {
		t.Errorf("deleted = %v, want [orders]", listener.deleted)
	}
}

func TestFileStoreChangeBus_HandleFileEvent_ListenerFailureIsLoggedNotPropagated(t *testing.T) {
	dir := filepath.Join(os.TempDir(), "quotaenforcer-test-storechange-failing")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "orders.yaml")
	if err := os.WriteFile(path, []byte("name: orders\n"), 0o644); err != nil {
		t.Fatalf("failed to write snapshot file: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	bus, err := NewFileStoreChangeBus(dir, logger)
	if err != nil {
		t.Fatalf("NewFileStoreChangeBus() error = %v", err)
	}

	listener := &fakeStoreChangeListener{failing: true}
	bus.Subscribe(listener)

	bus.handleFileEvent(path)

	if len(listener.changed) != 1 {
		t.Fatalf("len(changed) = %d, want 1 even though the listener returned an error", len(listener.changed))
	}
}

func TestFileStoreChangeBus_DispatchDeleted(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	bus, err := NewFileStoreChangeBus(os.TempDir(), logger)
	if err != nil {
		t.Fatalf("NewFileStoreChangeBus() error = %v", err)
	}

	listener := &fakeStoreChangeListener{}
	bus.Subscribe(listener)
	bus.known["orders"] = struct{}{}

	bus.dispatchDeleted("orders")

	if _, known := bus.known["orders"]; known {
		t.Error("store should no longer be known after dispatchDeleted")
	}
	if len(listener.deleted) != 1 || listener.deleted[0] != "orders" {
		t.Errorf("deleted = %v, want [orders]", listener.deleted)
	}
}
