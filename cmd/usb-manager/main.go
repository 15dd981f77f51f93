package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/storagedev/usb-manager/internal/platform"
	"github.com/storagedev/usb-manager/internal/storage"
	"github.com/storagedev/usb-manager/internal/stream"
)

func main() {
	flags := initFlags()
	config := flags.config

	backend, err := platform.New()
	if err != nil {
		klog.Fatalf("failed to create storage backend: %v", err)
		os.Exit(1)
	}

	opts := []storage.Option{storage.WithPollingInterval(config.interval)}
	if config.MountHints {
		opts = append(opts, storage.WithMountHints(platform.MountRoots()...))
	}
	manager := storage.New(backend, opts...)
	defer manager.Close()

	devices, err := manager.RemovableDevices(context.Background())
	if err != nil {
		klog.Fatalf("failed to list removable devices: %v", err)
		os.Exit(1)
	}
	klog.Infof("%d removable device(s) currently attached", len(devices))
	for _, dev := range devices {
		klog.Infof("  %s", dev)
	}

	manager.AddListener(&logListener{})

	var status *statusWriter
	if config.StatusDir != "" {
		status, err = newStatusWriter(config.StatusDir)
		if err != nil {
			klog.Fatalf("failed to create status writer: %v", err)
			os.Exit(1)
		}
	}

	events := make(chan storage.Event, 16)
	var sink stream.Sink[storage.Event] = stream.SinkFromChan(events)
	if len(config.ignore) > 0 {
		sink = stream.FilterSink(sink, keepEvent(config.ignore))
	}
	cancel := manager.Subscribe(sink)
	defer cancel()

	go func() {
		for ev := range events { // exits when the manager closes the sink
			if status != nil {
				status.handle(ev)
			}
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	for sig := range sigs {
		switch sig {
		case syscall.SIGINT, syscall.SIGTERM:
			klog.Infof("Received signal %q, shutting down", sig.String())
			return
		}
	}
}

// logListener reports every transition through klog.
type logListener struct{}

func (l *logListener) OnDeviceEvent(ev storage.Event) {
	switch e := ev.(type) {
	case storage.Connected:
		klog.Infof("device connected: %s", e.Device)
	case storage.Removed:
		klog.Infof("device removed: %s", e.Device)
	}
}

// keepEvent drops events whose device name matches one of the ignore
// patterns.
func keepEvent(ignore []*regexp.Regexp) stream.FilterFunc[storage.Event] {
	return func(ev storage.Event) bool {
		var name string
		switch e := ev.(type) {
		case storage.Connected:
			name = e.Name
		case storage.Removed:
			name = e.Name
		}
		for _, matcher := range ignore {
			if matcher.MatchString(name) {
				return false
			}
		}
		return true
	}
}

type configSource interface {
	String() string
	open() (io.Reader, func() error, error)
}

type fileConfigSource struct {
	path string
}

func (fcs *fileConfigSource) open() (io.Reader, func() error, error) {
	file, err := os.Open(fcs.path)
	if err != nil {
		return nil, nil, err
	}
	return file, file.Close, nil
}

func (fcs *fileConfigSource) String() string {
	return "file:" + fcs.path
}

type envConfigSource struct {
	variable string
}

func (ecs *envConfigSource) open() (io.Reader, func() error, error) {
	data := os.Getenv(ecs.variable)
	if data == "" {
		return nil, nil, fmt.Errorf("config: environment variable %s is not set", ecs.variable)
	}
	return strings.NewReader(data), func() error { return nil }, nil
}

func (ecs *envConfigSource) String() string {
	return "env:" + ecs.variable
}

type stdinConfigSource struct{}

func (scs *stdinConfigSource) open() (io.Reader, func() error, error) {
	return os.Stdin, func() error { return nil }, nil
}

func (scs *stdinConfigSource) String() string {
	return "stdin"
}

type ConfigFlag struct {
	configSource
}

func (cf *ConfigFlag) Set(value string) error {
	if strings.HasPrefix(value, "file:") {
		cf.configSource = &fileConfigSource{path: strings.TrimPrefix(value, "file:")}
	} else if strings.HasPrefix(value, "env:") {
		cf.configSource = &envConfigSource{variable: strings.TrimPrefix(value, "env:")}
	} else if strings.HasPrefix(value, "stdin") {
		cf.configSource = &stdinConfigSource{}
	} else {
		return fmt.Errorf("invalid config source: %s", value)
	}

	return nil
}

func (cf *ConfigFlag) String() string {
	if cf.configSource == nil {
		return ""
	}
	return cf.configSource.String()
}

type FlagValues struct {
	Config ConfigFlag

	config *Config
}

func initFlags() FlagValues {
	values := FlagValues{}
	flags := flag.NewFlagSet("usb-manager", flag.ExitOnError)
	klog.InitFlags(flags)
	flags.Var(&values.Config, "config", `configuration source (in form "file:<path>", "env:<ENV_VARIABLE>" or "stdin"); defaults apply when omitted`)
	flags.Parse(os.Args[1:])
	if values.Config.configSource == nil {
		values.config = defaultConfig()
		return values
	}

	configReader, configCloser, err := values.Config.open()
	if err != nil {
		klog.Fatalf("failed to open --config %q: %v", values.Config.String(), err)
		os.Exit(1)
	}
	defer configCloser()

	config, err := parseConfig(configReader)
	if err != nil {
		klog.Fatalf("failed to parse --config %q: %v", values.Config.String(), err)
		os.Exit(1)
	}

	values.config = config

	return values
}
