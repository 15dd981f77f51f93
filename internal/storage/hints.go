package storage

import (
	"github.com/fsnotify/fsnotify"

	"k8s.io/klog/v2"
)

// hintWatcher watches mount roots and nudges the poll loop when an entry
// appears or disappears under one of them. Hints only shorten the latency to
// the next tick; polling stays the source of truth, so every failure here is
// logged and ignored.
type hintWatcher struct {
	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}
}

// newHintWatcher starts watching the given roots. It returns a nil watcher
// and a nil error when none of the roots can be watched; the caller must
// treat that as "no hints" and keep polling on the interval alone.
func newHintWatcher(paths []string, notify chan<- struct{}) (*hintWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watched := 0
	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			klog.V(2).Infof("not watching mount root %q: %v", path, err)
			continue
		}
		watched++
	}
	if watched == 0 {
		watcher.Close()
		return nil, nil
	}

	hw := &hintWatcher{
		watcher: watcher,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go func() {
		defer close(hw.done)
		defer watcher.Close()

		for {
			select {
			case ev := <-watcher.Events:
				if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				klog.V(5).Infof("mount root changed (%s): %s", ev.Op, ev.Name)
				select {
				case notify <- struct{}{}:
				default:
					// a hint is already pending, coalesce
				}
			case err := <-watcher.Errors:
				klog.Errorf("mount root watcher error: %v", err)
			case <-hw.stop:
				return
			}
		}
	}()

	return hw, nil
}

func (hw *hintWatcher) close() {
	close(hw.stop)
	<-hw.done
}
