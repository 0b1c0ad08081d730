package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shipmobile/mobctl/internal/pipeline"
	"github.com/shipmobile/mobctl/internal/toolchain"
)

// SimctlRunner abstracts the iOS simulator tooling.
type SimctlRunner interface {
	ListDevices(ctx context.Context) (string, error)
	Boot(ctx context.Context, udid string) error
	OpenSimulatorApp(ctx context.Context) error
	Install(ctx context.Context, udid, appPath string) error
}

// ExecSimctl shells out to xcrun simctl.
type ExecSimctl struct {
	runner toolchain.Runner
}

func NewExecSimctl(runner toolchain.Runner) *ExecSimctl {
	return &ExecSimctl{runner: runner}
}

func (s *ExecSimctl) ListDevices(ctx context.Context) (string, error) {
	return toolchain.Check(ctx, s.runner, "", "xcrun", "simctl", "list", "devices", "--json")
}

func (s *ExecSimctl) Boot(ctx context.Context, udid string) error {
	_, err := toolchain.Check(ctx, s.runner, "", "xcrun", "simctl", "boot", udid)
	// Booting an already-booted simulator is not a failure.
	if err != nil {
		var exitErr *toolchain.ExitError
		if errors.As(err, &exitErr) && strings.Contains(exitErr.Stderr, "current state: Booted") {
			return nil
		}
	}
	return err
}

func (s *ExecSimctl) OpenSimulatorApp(ctx context.Context) error {
	_, err := toolchain.Check(ctx, s.runner, "", "open", "-a", "Simulator")
	return err
}

func (s *ExecSimctl) Install(ctx context.Context, udid, appPath string) error {
	_, err := toolchain.Check(ctx, s.runner, "", "xcrun", "simctl", "install", udid, appPath)
	return err
}

type simctlList struct {
	Devices map[string][]simctlDevice `json:"devices"`
}

type simctlDevice struct {
	UDID        string `json:"udid"`
	Name        string `json:"name"`
	State       string `json:"state"`
	IsAvailable bool   `json:"isAvailable"`
}

// ParseSimctlDevices parses `xcrun simctl list devices --json` output.
// Unavailable devices (missing runtimes) are dropped. Results are ordered
// by runtime so the listing is stable.
func ParseSimctlDevices(out string) ([]Device, error) {
	var list simctlList
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		return nil, fmt.Errorf("parse simctl output: %w", err)
	}

	runtimes := make([]string, 0, len(list.Devices))
	for runtime := range list.Devices {
		runtimes = append(runtimes, runtime)
	}
	sort.Strings(runtimes)

	var devices []Device
	for _, runtime := range runtimes {
		for _, d := range list.Devices[runtime] {
			if !d.IsAvailable {
				continue
			}
			devices = append(devices, Device{
				ID:       d.UDID,
				Name:     d.Name,
				Platform: pipeline.PlatformIOS,
				State:    d.State,
				Emulator: true,
			})
		}
	}
	return devices, nil
}
