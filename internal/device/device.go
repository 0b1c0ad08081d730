// Package device enumerates Android devices/emulators and iOS simulators
// and handles boot/install plumbing. The underlying tools (adb, the
// emulator launcher, xcrun simctl) are abstracted behind runner interfaces
// so everything here is testable without a device attached.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shipmobile/mobctl/internal/pipeline"
)

// ErrNoDevice means no usable device could be found or booted in time.
// Callers surface it as a warning, not a hard failure.
var ErrNoDevice = errors.New("no device available")

// Device is one attached device, emulator, or simulator.
type Device struct {
	ID       string
	Name     string
	Platform pipeline.Platform
	State    string // adb: device/offline/unauthorized; simctl: Booted/Shutdown
	Emulator bool
}

// Online reports whether the device can take an install right now.
func (d Device) Online() bool {
	return d.State == "device" || d.State == "Booted"
}

// Manager composes the platform runners.
type Manager struct {
	adb      AdbRunner
	simctl   SimctlRunner
	progress io.Writer // nil = silent

	bootTimeout  time.Duration
	bootInterval time.Duration
}

// NewManager creates a Manager. Either runner may be nil when its platform
// tooling is not installed; the corresponding listings come back empty.
func NewManager(adb AdbRunner, simctl SimctlRunner, progress io.Writer) *Manager {
	return &Manager{
		adb:          adb,
		simctl:       simctl,
		progress:     progress,
		bootTimeout:  60 * time.Second,
		bootInterval: 2 * time.Second,
	}
}

// SetBootTimeout overrides the boot wait ceiling (for testing).
func (m *Manager) SetBootTimeout(timeout, interval time.Duration) {
	m.bootTimeout = timeout
	m.bootInterval = interval
}

// List enumerates both platforms concurrently.
func (m *Manager) List(ctx context.Context) ([]Device, error) {
	var android, ios []Device
	var eg errgroup.Group

	eg.Go(func() error {
		var err error
		android, err = m.AndroidDevices(ctx)
		return err
	})
	eg.Go(func() error {
		var err error
		ios, err = m.IOSDevices(ctx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return append(android, ios...), nil
}

// AndroidDevices returns devices known to adb.
func (m *Manager) AndroidDevices(ctx context.Context) ([]Device, error) {
	if m.adb == nil {
		return nil, nil
	}
	out, err := m.adb.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("adb devices: %w", err)
	}
	return ParseAdbDevices(out), nil
}

// IOSDevices returns simulators known to simctl.
func (m *Manager) IOSDevices(ctx context.Context) ([]Device, error) {
	if m.simctl == nil {
		return nil, nil
	}
	out, err := m.simctl.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("simctl list: %w", err)
	}
	return ParseSimctlDevices(out)
}

// Boot starts an emulator (android) or simulator (ios) and waits for it to
// finish booting, up to the configured ceiling. On timeout it gives up and
// returns ErrNoDevice with a warning rather than hanging.
func (m *Manager) Boot(ctx context.Context, platform pipeline.Platform) (Device, error) {
	switch platform {
	case pipeline.PlatformAndroid:
		return m.bootAndroid(ctx)
	case pipeline.PlatformIOS:
		return m.bootIOS(ctx)
	}
	return Device{}, fmt.Errorf("unknown platform %q", platform)
}

func (m *Manager) bootAndroid(ctx context.Context) (Device, error) {
	if m.adb == nil {
		return Device{}, ErrNoDevice
	}

	// An already-online device wins over booting a fresh emulator.
	devices, err := m.AndroidDevices(ctx)
	if err != nil {
		return Device{}, err
	}
	for _, d := range devices {
		if d.Online() {
			return d, nil
		}
	}

	avds, err := m.adb.ListAVDs(ctx)
	if err != nil {
		return Device{}, fmt.Errorf("list avds: %w", err)
	}
	if len(avds) == 0 {
		return Device{}, ErrNoDevice
	}

	m.logf("starting emulator %s", avds[0])
	if err := m.adb.StartAVD(ctx, avds[0]); err != nil {
		return Device{}, fmt.Errorf("start emulator: %w", err)
	}

	return m.waitAndroidBoot(ctx)
}

// waitAndroidBoot polls for an online device reporting boot completion.
// The wait is bounded: past the ceiling we return ErrNoDevice instead of
// blocking the invocation forever.
func (m *Manager) waitAndroidBoot(ctx context.Context) (Device, error) {
	deadline := time.Now().Add(m.bootTimeout)
	for time.Now().Before(deadline) {
		devices, err := m.AndroidDevices(ctx)
		if err != nil {
			return Device{}, err
		}
		for _, d := range devices {
			if !d.Online() {
				continue
			}
			done, err := m.adb.BootCompleted(ctx, d.ID)
			if err == nil && done {
				return d, nil
			}
		}

		select {
		case <-ctx.Done():
			return Device{}, ctx.Err()
		case <-time.After(m.bootInterval):
		}
	}
	m.logf("emulator did not boot within %s, giving up", m.bootTimeout)
	return Device{}, ErrNoDevice
}

func (m *Manager) bootIOS(ctx context.Context) (Device, error) {
	if m.simctl == nil {
		return Device{}, ErrNoDevice
	}

	devices, err := m.IOSDevices(ctx)
	if err != nil {
		return Device{}, err
	}
	var target Device
	for _, d := range devices {
		if d.State == "Booted" {
			return d, nil
		}
		if target.ID == "" {
			target = d
		}
	}
	if target.ID == "" {
		return Device{}, ErrNoDevice
	}

	m.logf("booting simulator %s", target.Name)
	if err := m.simctl.Boot(ctx, target.ID); err != nil {
		return Device{}, fmt.Errorf("boot simulator: %w", err)
	}
	if err := m.simctl.OpenSimulatorApp(ctx); err != nil {
		m.logf("warning: could not open Simulator.app: %v", err)
	}

	deadline := time.Now().Add(m.bootTimeout)
	for time.Now().Before(deadline) {
		devices, err := m.IOSDevices(ctx)
		if err != nil {
			return Device{}, err
		}
		for _, d := range devices {
			if d.ID == target.ID && d.State == "Booted" {
				return d, nil
			}
		}
		select {
		case <-ctx.Done():
			return Device{}, ctx.Err()
		case <-time.After(m.bootInterval):
		}
	}
	m.logf("simulator did not boot within %s, giving up", m.bootTimeout)
	return Device{}, ErrNoDevice
}

// Install pushes an artifact onto a device. An empty deviceID picks the
// first online device for the platform.
func (m *Manager) Install(ctx context.Context, platform pipeline.Platform, deviceID, artifactPath string) (Device, error) {
	target, err := m.resolve(ctx, platform, deviceID)
	if err != nil {
		return Device{}, err
	}

	switch platform {
	case pipeline.PlatformAndroid:
		if err := m.adb.Install(ctx, target.ID, artifactPath); err != nil {
			return target, fmt.Errorf("adb install: %w", err)
		}
	case pipeline.PlatformIOS:
		if err := m.simctl.Install(ctx, target.ID, artifactPath); err != nil {
			return target, fmt.Errorf("simctl install: %w", err)
		}
	}
	return target, nil
}

func (m *Manager) resolve(ctx context.Context, platform pipeline.Platform, deviceID string) (Device, error) {
	var devices []Device
	var err error
	if platform == pipeline.PlatformAndroid {
		devices, err = m.AndroidDevices(ctx)
	} else {
		devices, err = m.IOSDevices(ctx)
	}
	if err != nil {
		return Device{}, err
	}

	if deviceID != "" {
		for _, d := range devices {
			if d.ID == deviceID {
				return d, nil
			}
		}
		return Device{}, fmt.Errorf("device %q not found", deviceID)
	}
	for _, d := range devices {
		if d.Online() {
			return d, nil
		}
	}
	return Device{}, ErrNoDevice
}

func (m *Manager) logf(format string, args ...interface{}) {
	if m.progress != nil {
		fmt.Fprintf(m.progress, format+"\n", args...)
	}
}
