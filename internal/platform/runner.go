package platform

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"k8s.io/klog/v2"
)

// commandTimeout bounds every OS command we shell out to. Enumeration gates
// the poll tick, so a wedged tool must not wedge the manager.
const commandTimeout = 10 * time.Second

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	klog.V(5).Infof("running %s %s", name, strings.Join(args, " "))
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return string(out), nil
}
