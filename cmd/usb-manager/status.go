package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kennygrant/sanitize"

	"gopkg.in/yaml.v3"

	"k8s.io/klog/v2"

	"github.com/storagedev/usb-manager/internal/storage"
)

// statusWriter mirrors the connected set into a directory: one YAML file per
// device, created on connect and removed on disconnect. Lets other tooling
// see what is attached without talking to the daemon.
type statusWriter struct {
	dir string
}

type deviceStatus struct {
	MountPath   string    `yaml:"mountPath"`
	DevNode     string    `yaml:"devNode,omitempty"`
	Name        string    `yaml:"name,omitempty"`
	SizeBytes   uint64    `yaml:"sizeBytes,omitempty"`
	ConnectedAt time.Time `yaml:"connectedAt"`
}

func newStatusWriter(dir string) (*statusWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create status dir %q: %w", dir, err)
	}
	return &statusWriter{dir: dir}, nil
}

func (w *statusWriter) handle(ev storage.Event) {
	switch e := ev.(type) {
	case storage.Connected:
		w.write(e.Device)
	case storage.Removed:
		w.remove(e.Device)
	}
}

func (w *statusWriter) write(dev storage.Device) {
	data, err := yaml.Marshal(deviceStatus{
		MountPath:   dev.ID,
		DevNode:     dev.DevNode,
		Name:        dev.Name,
		SizeBytes:   dev.Size,
		ConnectedAt: time.Now().UTC(),
	})
	if err != nil {
		klog.Errorf("failed to marshal status for %s: %v", dev, err)
		return
	}
	path := w.path(dev)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		klog.Errorf("failed to write status file %q: %v", path, err)
	}
}

func (w *statusWriter) remove(dev storage.Device) {
	path := w.path(dev)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		klog.Errorf("failed to remove status file %q: %v", path, err)
	}
}

func (w *statusWriter) path(dev storage.Device) string {
	return filepath.Join(w.dir, sanitize.BaseName(dev.ID)+".yaml")
}
