//go:build windows

package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/storagedev/usb-manager/internal/storage"
)

type windowsBackend struct{}

func newBackend() (storage.Backend, error) {
	return &windowsBackend{}, nil
}

func mountRoots() []string {
	// Drive letters have no common parent directory to watch.
	return nil
}

// Enumerate lists logical disks with DriveType=2 (removable).
func (b *windowsBackend) Enumerate(ctx context.Context) ([]storage.Device, error) {
	out, err := runCommand(ctx, "wmic", "logicaldisk", "where", "drivetype=2",
		"get", "DeviceID,Size,VolumeName", "/format:csv")
	if err != nil {
		return nil, fmt.Errorf("list removable disks: %w", err)
	}

	disks := parseWmicDisks(out)
	devices := make([]storage.Device, 0, len(disks))
	for _, disk := range disks {
		name := disk.volumeName
		if name == "" {
			name = disk.deviceID
		}
		devices = append(devices, storage.Device{
			ID:      disk.deviceID + `\`,
			DevNode: disk.deviceID,
			Name:    name,
			Size:    disk.size,
		})
	}

	return devices, nil
}

// Unmount ejects the drive through the Shell.Application COM object, the
// same verb the Explorer "Eject" menu entry invokes.
func (b *windowsBackend) Unmount(ctx context.Context, device storage.Device) error {
	script := fmt.Sprintf(
		"$sh = New-Object -ComObject Shell.Application; $sh.Namespace(17).ParseName('%s').InvokeVerb('Eject')",
		strings.TrimSuffix(device.ID, `\`),
	)
	if _, err := runCommand(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script); err != nil {
		return fmt.Errorf("unmount %s: %w", device.ID, err)
	}
	return nil
}
