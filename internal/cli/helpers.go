package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/shipmobile/mobctl/internal/config"
	"github.com/shipmobile/mobctl/internal/db"
	"github.com/shipmobile/mobctl/internal/device"
	"github.com/shipmobile/mobctl/internal/store"
	"github.com/shipmobile/mobctl/internal/toolchain"
)

var (
	okf   = color.New(color.FgGreen).SprintfFunc()
	warnf = color.New(color.FgYellow).SprintfFunc()
	failf = color.New(color.FgRed).SprintfFunc()
)

// loadProject locates the project root from the working directory and loads
// its descriptors.
func loadProject() (*config.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	root, err := config.FindProjectDir(cwd)
	if err != nil {
		return nil, err
	}
	return config.Load(root)
}

// openHistory returns the build history store, or nil with a warning when
// the home directory is unusable. History is best-effort.
func openHistory() *store.Store {
	h, err := store.DefaultStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, warnf("warning: build history disabled: %v", err))
		return nil
	}
	return h
}

// openEvents returns the migrated event log, or nil with a warning. The
// event log is best-effort too.
func openEvents() *db.DB {
	path, err := db.DefaultDBPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, warnf("warning: event log disabled: %v", err))
		return nil
	}
	d, err := db.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, warnf("warning: event log disabled: %v", err))
		return nil
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		fmt.Fprintln(os.Stderr, warnf("warning: event log disabled: %v", err))
		return nil
	}
	return d
}

func newDeviceManager(progress *os.File) *device.Manager {
	runner := toolchain.NewExecRunner()
	return device.NewManager(device.NewExecAdb(runner), device.NewExecSimctl(runner), progress)
}
