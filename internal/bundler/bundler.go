// Package bundler runs the JS dev server for local development. Release
// bundling happens inside the build pipelines; this only covers the
// interactive `start` flow.
package bundler

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/shipmobile/mobctl/internal/config"
	"github.com/shipmobile/mobctl/internal/toolchain"
)

// DefaultPort is the metro dev-server default.
const DefaultPort = 8081

// Server runs the dev bundler in the foreground until it exits or the
// context is cancelled.
type Server struct {
	runner toolchain.Runner
	store  *config.Store
	out    io.Writer
	errOut io.Writer
}

func NewServer(runner toolchain.Runner, store *config.Store, out, errOut io.Writer) *Server {
	return &Server{runner: runner, store: store, out: out, errOut: errOut}
}

// StartOpts configures a dev-server run.
type StartOpts struct {
	Environment string
	Port        int
	ResetCache  bool
}

// Start writes the environment constants file for the requested
// environment, then hands the terminal to the bundler. The constants
// file is left in place: the running dev server reads it on every
// reload.
func (s *Server) Start(ctx context.Context, opts StartOpts) error {
	if _, err := s.store.WriteEnvFile(opts.Environment); err != nil {
		return fmt.Errorf("write environment constants: %w", err)
	}

	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	args := []string{"react-native", "start", "--port", strconv.Itoa(port)}
	if opts.ResetCache {
		args = append(args, "--reset-cache")
	}

	code, err := s.runner.Stream(ctx, s.store.ProjectDir, s.out, s.errOut, "npx", args...)
	if err != nil {
		return fmt.Errorf("start dev server: %w", err)
	}
	if code != 0 {
		return &toolchain.ExitError{Tool: "npx", Args: args, ExitCode: code}
	}
	return nil
}
