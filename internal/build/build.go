// Package build defines the task descriptor handed to the composer and pipeline.
package build

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Action is the operation requested of the build tool.
type Action string

const (
	ActionBuild   Action = "build"
	ActionBundle  Action = "bundle"
	ActionClean   Action = "clean"
	ActionResolve Action = "resolve"
	ActionRun     Action = "run"
)

// Actions lists every action in display order.
var Actions = []Action{ActionBuild, ActionBundle, ActionClean, ActionResolve, ActionRun}

// Configuration is the build variant.
type Configuration string

const (
	Debug   Configuration = "debug"
	Release Configuration = "release"
)

// Platform is a deployment target.
type Platform string

const (
	PlatformCurrent Platform = "current"
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformMacOS   Platform = "macOS"
	PlatformWindows Platform = "windows"
	PlatformLinux   Platform = "linux"
	PlatformHTML5   Platform = "html5"
)

// Platforms lists every platform target, current first.
var Platforms = []Platform{
	PlatformCurrent, PlatformAndroid, PlatformIOS, PlatformMacOS,
	PlatformWindows, PlatformLinux, PlatformHTML5,
}

// Descriptor selects what to run. It is passed by value.
type Descriptor struct {
	Action        Action
	Configuration Configuration
	Platform      Platform
}

// String renders the descriptor as "action (configuration, platform)".
func (d Descriptor) String() string {
	return string(d.Action) + " (" + string(d.Configuration) + ", " + string(d.Platform) + ")"
}

// ParseAction parses an action name case-insensitively.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if strings.EqualFold(s, string(a)) {
			return a, nil
		}
	}
	return "", errors.Newf("unknown action %q", s)
}

// ParseConfiguration parses "debug" or "release"; empty means debug.
func ParseConfiguration(s string) (Configuration, error) {
	switch strings.ToLower(s) {
	case "", "debug":
		return Debug, nil
	case "release":
		return Release, nil
	default:
		return "", errors.Newf("unknown configuration %q (expected debug or release)", s)
	}
}

// ParsePlatform parses a platform name case-insensitively; empty means current.
func ParsePlatform(s string) (Platform, error) {
	if s == "" {
		return PlatformCurrent, nil
	}
	for _, p := range Platforms {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", errors.Newf("unknown platform %q", s)
}
