// Package orchestrator ties configuration, pipelines, compensation, and
// history together for one build or install invocation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shipmobile/mobctl/internal/cleanup"
	"github.com/shipmobile/mobctl/internal/config"
	"github.com/shipmobile/mobctl/internal/db"
	"github.com/shipmobile/mobctl/internal/device"
	"github.com/shipmobile/mobctl/internal/pipeline"
	"github.com/shipmobile/mobctl/internal/store"
	"github.com/shipmobile/mobctl/internal/toolchain"
)

// Orchestrator validates an invocation, runs the matching pipeline, and
// guarantees the compensation pass runs exactly once whatever the outcome.
type Orchestrator struct {
	store    *config.Store
	runner   toolchain.Runner
	registry *cleanup.Registry
	devices  *device.Manager

	history *store.Store // nil disables history recording
	events  *db.DB       // nil disables the event log

	progress io.Writer
	toolOut  io.Writer
}

// Options carries the orchestrator's collaborators. Store, Runner, and
// Registry are required; the rest may be nil.
type Options struct {
	Store    *config.Store
	Runner   toolchain.Runner
	Registry *cleanup.Registry
	Devices  *device.Manager
	History  *store.Store
	Events   *db.DB
	Progress io.Writer
	ToolOut  io.Writer
}

func New(opts Options) *Orchestrator {
	return &Orchestrator{
		store:    opts.Store,
		runner:   opts.Runner,
		registry: opts.Registry,
		devices:  opts.Devices,
		history:  opts.History,
		events:   opts.Events,
		progress: opts.Progress,
		toolOut:  opts.ToolOut,
	}
}

// BuildOpts is a raw build request as it arrives from the CLI.
type BuildOpts struct {
	Platform    string
	Environment string
	BuildType   string
}

// BuildResult reports a finished build.
type BuildResult struct {
	Build    pipeline.BuildContext
	Artifact string
}

// Build validates opts, runs the platform pipeline, and executes the
// compensation pass exactly once on both the success and the failure path.
// On failure the original pipeline error is returned unchanged.
func (o *Orchestrator) Build(ctx context.Context, opts BuildOpts) (*BuildResult, error) {
	build, err := o.resolve(opts)
	if err != nil {
		return nil, err
	}

	o.recordStart(build)

	runErr := o.runPipeline(ctx, build)

	// Exactly one compensation pass per invocation, success or failure.
	// Transient signing material must not survive a green build either.
	o.registry.Execute()
	o.registry.Clear()
	o.logEvent(build, db.EventCompensated, "", "")

	artifact := filepath.Join(build.ProjectDir, pipeline.DistDir, build.ArtifactName())
	if runErr != nil {
		o.recordFinish(build, "", runErr)
		return nil, runErr
	}
	o.recordFinish(build, artifact, nil)
	return &BuildResult{Build: build, Artifact: artifact}, nil
}

// resolve turns a raw request into a BuildContext, failing fast before any
// mutation happens.
func (o *Orchestrator) resolve(opts BuildOpts) (pipeline.BuildContext, error) {
	var zero pipeline.BuildContext

	platform, err := pipeline.ParsePlatform(opts.Platform)
	if err != nil {
		return zero, err
	}
	buildType, err := pipeline.ParseBuildType(opts.BuildType)
	if err != nil {
		return zero, err
	}
	if _, ok := o.store.Environment(opts.Environment); !ok {
		names := o.store.EnvironmentNames()
		sort.Strings(names)
		return zero, fmt.Errorf("unknown environment %q (defined: %s)", opts.Environment, strings.Join(names, ", "))
	}
	if buildType == pipeline.BuildProd && !o.store.HasCredentials() {
		return zero, fmt.Errorf("prod builds need %s/%s with signing material", config.ConfigDir, config.CredentialsFile)
	}

	manifest := o.store.Manifest.Android
	if platform == pipeline.PlatformIOS {
		manifest = o.store.Manifest.IOS
	}

	return pipeline.NewBuildContext(
		o.store.Manifest.Name, o.store.ProjectDir,
		platform, opts.Environment, buildType,
		manifest.Version, manifest.Build,
	), nil
}

func (o *Orchestrator) runPipeline(ctx context.Context, build pipeline.BuildContext) error {
	runner := o.buildRunner(build)
	observe := o.stepObserver(build)
	switch build.Platform {
	case pipeline.PlatformIOS:
		return pipeline.NewIOS(build, o.store, runner, o.registry, o.progress, o.toolOut).WithObserver(observe).Run(ctx)
	default:
		return pipeline.NewAndroid(build, o.store, runner, o.registry, o.progress, o.toolOut).WithObserver(observe).Run(ctx)
	}
}

// stepObserver forwards pipeline step lifecycle to the event log.
func (o *Orchestrator) stepObserver(build pipeline.BuildContext) pipeline.StepObserver {
	if o.events == nil {
		return nil
	}
	return func(event pipeline.StepEvent, step string, stepErr error) {
		var kind string
		switch event {
		case pipeline.StepStarted:
			kind = db.EventStepStarted
		case pipeline.StepFinished:
			kind = db.EventStepFinished
		case pipeline.StepSkipped:
			kind = db.EventStepSkipped
		case pipeline.StepFailed:
			kind = db.EventStepFailed
		default:
			return
		}
		detail := ""
		if stepErr != nil {
			detail = stepErr.Error()
		}
		o.logEvent(build, kind, step, detail)
	}
}

// buildRunner wraps the runner so every tool invocation lands in the event
// log with its exit code and duration.
func (o *Orchestrator) buildRunner(build pipeline.BuildContext) toolchain.Runner {
	if o.events == nil {
		return o.runner
	}
	return &recordingRunner{
		next: o.runner,
		record: func(tool string, args []string, exitCode int, elapsed time.Duration) {
			if err := o.events.LogToolRun(build.BuildID, tool, args, exitCode, int(elapsed.Milliseconds())); err != nil {
				o.logf("warning: event log: %v", err)
			}
		},
	}
}

// recordingRunner reports every invocation passing through it before handing
// the result back unchanged. Start failures record exit code -1.
type recordingRunner struct {
	next   toolchain.Runner
	record func(tool string, args []string, exitCode int, elapsed time.Duration)
}

func (r *recordingRunner) Run(ctx context.Context, dir, name string, args ...string) (string, string, int, error) {
	start := time.Now()
	stdout, stderr, code, err := r.next.Run(ctx, dir, name, args...)
	if err != nil {
		code = -1
	}
	r.record(name, args, code, time.Since(start))
	return stdout, stderr, code, err
}

func (r *recordingRunner) Stream(ctx context.Context, dir string, out, errOut io.Writer, name string, args ...string) (int, error) {
	start := time.Now()
	code, err := r.next.Stream(ctx, dir, out, errOut, name, args...)
	if err != nil {
		code = -1
	}
	r.record(name, args, code, time.Since(start))
	return code, err
}

// InstallOpts is a raw install request. An empty Artifact resolves to the
// latest successful build for the platform/environment from history.
type InstallOpts struct {
	Platform    string
	Environment string
	DeviceID    string
	Artifact    string
}

// Install resolves an artifact and pushes it onto a device.
func (o *Orchestrator) Install(ctx context.Context, opts InstallOpts) (device.Device, string, error) {
	platform, err := pipeline.ParsePlatform(opts.Platform)
	if err != nil {
		return device.Device{}, "", err
	}

	artifact := opts.Artifact
	if artifact == "" {
		if o.history == nil {
			return device.Device{}, "", fmt.Errorf("no artifact given and no build history available")
		}
		record, err := o.history.Latest(string(platform), opts.Environment)
		if err != nil {
			return device.Device{}, "", fmt.Errorf("resolve artifact: %w", err)
		}
		artifact = record.Artifact
	}

	target, err := o.devices.Install(ctx, platform, opts.DeviceID, artifact)
	if err != nil {
		return target, artifact, err
	}
	return target, artifact, nil
}

func (o *Orchestrator) recordStart(build pipeline.BuildContext) {
	o.logEvent(build, db.EventStarted, "", "")
	if o.history == nil {
		return
	}
	err := o.history.Create(&store.BuildRecord{
		ID:          build.BuildID,
		AppName:     build.AppName,
		Platform:    string(build.Platform),
		Environment: build.Environment,
		BuildType:   string(build.BuildType),
		Version:     build.Version,
		BuildNumber: build.BuildNumber,
		ProjectDir:  build.ProjectDir,
	})
	if err != nil {
		o.logf("warning: record build history: %v", err)
	}
}

func (o *Orchestrator) recordFinish(build pipeline.BuildContext, artifact string, buildErr error) {
	if buildErr != nil {
		o.logEvent(build, db.EventFailed, stepName(buildErr), buildErr.Error())
	} else {
		o.logEvent(build, db.EventSucceeded, "", artifact)
	}
	if o.history == nil {
		return
	}
	if err := o.history.Finish(build.BuildID, artifact, buildErr); err != nil {
		o.logf("warning: record build history: %v", err)
	}
}

func (o *Orchestrator) logEvent(build pipeline.BuildContext, event, step, detail string) {
	if o.events == nil {
		return
	}
	err := o.events.LogBuildEvent(build.BuildID, string(build.Platform), build.Environment, event, step, detail)
	if err != nil {
		o.logf("warning: event log: %v", err)
	}
}

func stepName(err error) string {
	var stepErr *pipeline.StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	return ""
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	if o.progress != nil {
		fmt.Fprintf(o.progress, format+"\n", args...)
	}
}
