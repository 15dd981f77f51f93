package storage

import (
	"context"
	"fmt"
)

// Device describes one removable storage device attached to the host.
// Identity is the mount path: two devices with the same ID are the same
// device to the manager, whatever else differs. Values are immutable once
// built by an enumerator.
type Device struct {
	// ID is the mount path of the device's volume, e.g. "/media/user/STICK",
	// "/Volumes/STICK" or `E:\`.
	ID string
	// DevNode is the OS block-device path when known, e.g. "/dev/sdb1".
	DevNode string
	// Name is a human-readable label or model, best effort.
	Name string
	// Size is the device capacity in bytes, 0 when unknown.
	Size uint64
}

func (d Device) String() string {
	if d.Name != "" {
		return fmt.Sprintf("%s (%s)", d.ID, d.Name)
	}
	return d.ID
}

// Event is a device transition observed by one poll tick.
type Event interface {
	eventSealed()
}

// Connected reports a device seen for the first time.
type Connected struct {
	Device
}

func (Connected) eventSealed() {}

// Removed reports a previously seen device that is now gone.
type Removed struct {
	Device
}

func (Removed) eventSealed() {}

// Listener receives events synchronously from the dispatching goroutine.
// Handlers should return promptly; a slow handler delays later listeners in
// the same tick. A panicking handler is recovered and logged, it cannot take
// down the poll loop or starve other listeners. Listeners are tracked by
// identity (compared with ==), so register pointer values.
type Listener interface {
	OnDeviceEvent(Event)
}

// Enumerator lists the removable storage devices currently attached.
// Called once per poll tick and expected to complete quickly.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]Device, error)
}

// Unmounter performs the OS-level unmount of a device. Single attempt, the
// caller decides whether to retry.
type Unmounter interface {
	Unmount(ctx context.Context, device Device) error
}

// Backend is the capability set a Manager is built on. It is chosen once at
// construction, typically by the platform factory, so tests can substitute
// doubles without any process-wide state.
type Backend interface {
	Enumerator
	Unmounter
}
