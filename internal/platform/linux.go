//go:build linux && cgo

package platform

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	libudev "github.com/jochenvg/go-udev"

	"k8s.io/klog/v2"

	"github.com/storagedev/usb-manager/internal/storage"
)

// sectorSize is what the kernel reports block sizes in, regardless of the
// device's physical sector size.
const sectorSize = 512

type linuxBackend struct {
	udev       libudev.Udev
	mountsPath string
}

func newBackend() (storage.Backend, error) {
	return &linuxBackend{mountsPath: "/proc/mounts"}, nil
}

func mountRoots() []string {
	roots := []string{"/media"}
	if u, err := user.Current(); err == nil {
		roots = append(roots,
			filepath.Join("/media", u.Username),
			filepath.Join("/run/media", u.Username),
		)
	}
	return roots
}

// Enumerate joins the mount table with a udev scan of USB block partitions:
// a device counts as attached only when udev knows it as ID_BUS=usb and its
// node is currently mounted.
func (b *linuxBackend) Enumerate(ctx context.Context) ([]storage.Device, error) {
	file, err := os.Open(b.mountsPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", b.mountsPath, err)
	}
	defer file.Close()

	entries, err := parseMounts(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", b.mountsPath, err)
	}
	byNode := make(map[string]mountEntry, len(entries))
	for _, entry := range entries {
		byNode[entry.device] = entry
	}

	enum := b.udev.NewEnumerate()
	if err := enum.AddMatchSubsystem("block"); err != nil {
		return nil, fmt.Errorf("udev match subsystem: %w", err)
	}
	if err := enum.AddMatchProperty("DEVTYPE", "partition"); err != nil {
		return nil, fmt.Errorf("udev match devtype: %w", err)
	}
	devs, err := enum.Devices()
	if err != nil {
		return nil, fmt.Errorf("udev enumerate: %w", err)
	}

	var devices []storage.Device
	for _, dev := range devs {
		if dev == nil {
			klog.Error("udev device is nil!")
			continue
		}
		if dev.PropertyValue("ID_BUS") != "usb" {
			continue
		}
		node := dev.Devnode()
		entry, mounted := byNode[node]
		if !mounted {
			continue
		}

		name := dev.PropertyValue("ID_FS_LABEL")
		if name == "" {
			name = dev.PropertyValue("ID_MODEL")
		}
		if name == "" {
			name = filepath.Base(node)
		}

		var size uint64
		if sectors, err := strconv.ParseUint(dev.SysattrValue("size"), 10, 64); err == nil {
			size = sectors * sectorSize
		}

		devices = append(devices, storage.Device{
			ID:      entry.mountPoint,
			DevNode: node,
			Name:    name,
			Size:    size,
		})
	}

	return devices, nil
}

func (b *linuxBackend) Unmount(ctx context.Context, device storage.Device) error {
	if _, err := runCommand(ctx, "umount", device.ID); err != nil {
		return fmt.Errorf("unmount %s: %w", device.ID, err)
	}
	return nil
}
