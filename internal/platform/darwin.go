//go:build darwin

package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/storagedev/usb-manager/internal/storage"
)

const volumesRoot = "/Volumes"

type darwinBackend struct{}

func newBackend() (storage.Backend, error) {
	return &darwinBackend{}, nil
}

func mountRoots() []string {
	return []string{volumesRoot}
}

// Enumerate walks /Volumes and keeps the entries diskutil reports as
// removable USB media. A volume that disappears between the directory
// listing and the diskutil call is skipped, not an error.
func (b *darwinBackend) Enumerate(ctx context.Context) ([]storage.Device, error) {
	entries, err := os.ReadDir(volumesRoot)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", volumesRoot, err)
	}

	var devices []storage.Device
	for _, entry := range entries {
		mountPath := filepath.Join(volumesRoot, entry.Name())

		out, err := runCommand(ctx, "diskutil", "info", mountPath)
		if err != nil {
			klog.V(2).Infof("diskutil info %s failed, skipping volume: %v", mountPath, err)
			continue
		}

		info := parseDiskutilInfo(out)
		if !diskutilRemovable(info) {
			continue
		}

		name := info["Volume Name"]
		if name == "" {
			name = entry.Name()
		}
		size := diskutilBytes(info["Disk Size"])
		if size == 0 {
			size = diskutilBytes(info["Total Size"])
		}

		devices = append(devices, storage.Device{
			ID:      mountPath,
			DevNode: info["Device Node"],
			Name:    name,
			Size:    size,
		})
	}

	return devices, nil
}

func (b *darwinBackend) Unmount(ctx context.Context, device storage.Device) error {
	if _, err := runCommand(ctx, "diskutil", "unmount", device.ID); err != nil {
		return fmt.Errorf("unmount %s: %w", device.ID, err)
	}
	return nil
}
