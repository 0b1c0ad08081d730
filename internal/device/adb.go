package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/shipmobile/mobctl/internal/pipeline"
	"github.com/shipmobile/mobctl/internal/toolchain"
)

// AdbRunner abstracts the Android platform tools.
type AdbRunner interface {
	Devices(ctx context.Context) (string, error)
	Install(ctx context.Context, serial, apkPath string) error
	BootCompleted(ctx context.Context, serial string) (bool, error)
	ListAVDs(ctx context.Context) ([]string, error)
	StartAVD(ctx context.Context, name string) error
}

// ExecAdb shells out to adb and the emulator launcher.
type ExecAdb struct {
	runner toolchain.Runner
}

func NewExecAdb(runner toolchain.Runner) *ExecAdb {
	return &ExecAdb{runner: runner}
}

func (a *ExecAdb) Devices(ctx context.Context) (string, error) {
	return toolchain.Check(ctx, a.runner, "", "adb", "devices", "-l")
}

func (a *ExecAdb) Install(ctx context.Context, serial, apkPath string) error {
	_, err := toolchain.Check(ctx, a.runner, "", "adb", "-s", serial, "install", "-r", apkPath)
	return err
}

func (a *ExecAdb) BootCompleted(ctx context.Context, serial string) (bool, error) {
	out, err := toolchain.Check(ctx, a.runner, "", "adb", "-s", serial, "shell", "getprop", "sys.boot_completed")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "1", nil
}

func (a *ExecAdb) ListAVDs(ctx context.Context) ([]string, error) {
	out, err := toolchain.Check(ctx, a.runner, "", "emulator", "-list-avds")
	if err != nil {
		return nil, err
	}
	var avds []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		// Recent emulator builds print an INFO banner before the list.
		if line == "" || strings.HasPrefix(line, "INFO") {
			continue
		}
		avds = append(avds, line)
	}
	return avds, nil
}

func (a *ExecAdb) StartAVD(ctx context.Context, name string) error {
	// The emulator process keeps running; start it detached and let the
	// boot poll decide when it is usable.
	_, _, _, err := a.runner.Run(ctx, "", "sh", "-c",
		fmt.Sprintf("emulator -avd %s >/dev/null 2>&1 &", name))
	return err
}

// ParseAdbDevices parses `adb devices -l` output. The header line and
// blank lines are skipped.
func ParseAdbDevices(out string) []Device {
	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		d := Device{
			ID:       fields[0],
			Platform: pipeline.PlatformAndroid,
			State:    fields[1],
			Emulator: strings.HasPrefix(fields[0], "emulator-"),
			Name:     fields[0],
		}
		for _, f := range fields[2:] {
			if v, ok := strings.CutPrefix(f, "model:"); ok {
				d.Name = v
			}
		}
		devices = append(devices, d)
	}
	return devices
}
