package storage

import "sort"

// reconciler owns the authoritative set of connected devices, keyed by
// device ID. The set is mutated only by reconcile, which runs inside the
// poll tick; reads from other goroutines go through devices(). The lock
// covers only set access, never event delivery.
type reconciler struct {
	state map[string]Device
}

func newReconciler() *reconciler {
	return &reconciler{state: make(map[string]Device)}
}

// reconcile diffs a snapshot against the authoritative set and updates it.
// Returned slices are the devices that appeared and the devices that
// vanished since the previous snapshot. Connected devices come back in
// snapshot order (first occurrence wins when a snapshot repeats an ID);
// removed devices come back sorted by ID so event order is deterministic.
// A device present in both keeps its existing entry untouched.
func (r *reconciler) reconcile(snapshot []Device) (connected, removed []Device) {
	seen := make(map[string]struct{}, len(snapshot))
	for _, dev := range snapshot {
		if _, dup := seen[dev.ID]; dup {
			continue
		}
		seen[dev.ID] = struct{}{}
		if _, known := r.state[dev.ID]; !known {
			connected = append(connected, dev)
		}
	}

	for id, dev := range r.state {
		if _, present := seen[id]; !present {
			removed = append(removed, dev)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].ID < removed[j].ID })
	for _, dev := range removed {
		delete(r.state, dev.ID)
	}

	for _, dev := range connected {
		r.state[dev.ID] = dev
	}

	return connected, removed
}

// devices returns a copy of the authoritative set, sorted by ID.
func (r *reconciler) devices() []Device {
	devs := make([]Device, 0, len(r.state))
	for _, dev := range r.state {
		devs = append(devs, dev)
	}
	sort.Slice(devs, func(i, j int) bool { return devs[i].ID < devs[j].ID })
	return devs
}
