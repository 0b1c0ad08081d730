// Package pipeline implements the per-platform build pipelines: ordered
// sequences of mutating steps that drive the native toolchains from a clean
// tree to an exported artifact, registering compensating actions for every
// mutation that must not survive the build.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Platform selects which native pipeline runs.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// ParsePlatform validates a platform string from the CLI.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.ToLower(s)) {
	case PlatformAndroid:
		return PlatformAndroid, nil
	case PlatformIOS:
		return PlatformIOS, nil
	}
	return "", fmt.Errorf("unknown platform %q (expected android or ios)", s)
}

// BuildType selects debug or store builds.
type BuildType string

const (
	BuildDebug BuildType = "debug"
	BuildProd  BuildType = "prod"
)

// ParseBuildType validates a build type string from the CLI.
func ParseBuildType(s string) (BuildType, error) {
	switch BuildType(strings.ToLower(s)) {
	case BuildDebug:
		return BuildDebug, nil
	case BuildProd:
		return BuildProd, nil
	}
	return "", fmt.Errorf("unknown build type %q (expected debug or prod)", s)
}

// BuildContext is the immutable per-invocation bundle the steps close over.
// It is constructed once by the orchestrator from Configuration Store data
// and discarded when the process exits.
type BuildContext struct {
	BuildID     string
	Platform    Platform
	Environment string
	BuildType   BuildType
	Version     string
	BuildNumber int
	AppName     string
	ProjectDir  string
}

// NewBuildContext assembles a BuildContext and assigns it a unique build ID.
func NewBuildContext(appName, projectDir string, platform Platform, environment string, buildType BuildType, version string, buildNumber int) BuildContext {
	id := slug.Make(appName) + "-" + uuid.NewString()[:8]
	return BuildContext{
		BuildID:     id,
		Platform:    platform,
		Environment: environment,
		BuildType:   buildType,
		Version:     version,
		BuildNumber: buildNumber,
		AppName:     appName,
		ProjectDir:  projectDir,
	}
}

// ArtifactName derives the exported artifact filename. The format is fixed:
// the store-upload tooling downstream matches on it.
//
//	android: v{VERSION}_build_{BUILD}_{ENV}.apk (debug) / .aab (prod)
//	ios:     v{VERSION}_{BUILD}_{env}.ipa
func (c BuildContext) ArtifactName() string {
	switch c.Platform {
	case PlatformIOS:
		return fmt.Sprintf("v%s_%d_%s.ipa", c.Version, c.BuildNumber, c.Environment)
	default:
		ext := "apk"
		if c.BuildType == BuildProd {
			ext = "aab"
		}
		return fmt.Sprintf("v%s_build_%d_%s.%s", c.Version, c.BuildNumber, strings.ToUpper(c.Environment), ext)
	}
}

// Step is a named unit of work in a pipeline. Steps run strictly in order
// and never re-run. A BestEffort step that fails logs a warning and lets the
// pipeline continue; any other failure aborts the remaining steps.
type Step struct {
	Name       string
	BestEffort bool
	Run        func(ctx context.Context) error
}

// StepError is a pipeline failure carrying the step name and platform so the
// top-level handler can report where the build broke.
type StepError struct {
	Platform Platform
	Step     string
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s build step %q: %v", e.Platform, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepEvent is a step lifecycle transition reported to a StepObserver.
type StepEvent string

const (
	StepStarted  StepEvent = "step_started"
	StepFinished StepEvent = "step_finished"
	StepSkipped  StepEvent = "step_skipped"
	StepFailed   StepEvent = "step_failed"
)

// StepObserver receives step lifecycle events as the pipeline runs. err is
// non-nil for StepSkipped (the swallowed best-effort failure) and StepFailed.
type StepObserver func(event StepEvent, step string, err error)

// RunSteps executes steps in order, reporting progress to w (nil = silent)
// and lifecycle events to observe (nil = no events).
func RunSteps(ctx context.Context, platform Platform, steps []Step, w io.Writer, observe StepObserver) error {
	notify := func(event StepEvent, step string, err error) {
		if observe != nil {
			observe(event, step, err)
		}
	}
	for i, s := range steps {
		logf(w, "[%d/%d] %s", i+1, len(steps), s.Name)
		notify(StepStarted, s.Name, nil)
		if err := s.Run(ctx); err != nil {
			if s.BestEffort {
				logf(w, "warning: %s: %v (continuing)", s.Name, err)
				notify(StepSkipped, s.Name, err)
				continue
			}
			notify(StepFailed, s.Name, err)
			return &StepError{Platform: platform, Step: s.Name, Err: err}
		}
		notify(StepFinished, s.Name, nil)
	}
	return nil
}

func logf(w io.Writer, format string, args ...interface{}) {
	if w != nil {
		fmt.Fprintf(w, format+"\n", args...)
	}
}
