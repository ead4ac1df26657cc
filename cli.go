package main

import (
	"github.com/alecthomas/kong"

	"github.com/xiaot623/gogo/actionrunner/internal/version"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve     ServeCmd     `cmd:"" default:"1" help:"Start the HTTP API (default)"`
	Assess    AssessCmd    `cmd:"" help:"Assess the risk of a plan file"`
	Run       RunCmd       `cmd:"" help:"Execute a plan file and wait for the result"`
	Runs      RunsCmd      `cmd:"" help:"List recent runs or show one run"`
	Allowlist AllowlistCmd `cmd:"" help:"Inspect or reset a workspace allowlist"`
	Version   VersionCmd   `cmd:"" help:"Show version information"`
}

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Port int `help:"Listen port (overrides HTTP_PORT)"`
}

// AssessCmd assesses a plan without running it.
type AssessCmd struct {
	Plan      string `arg:"" help:"Plan file (YAML or JSON, - for stdin)"`
	Workspace string `short:"w" default:"default" help:"Workspace id"`
	JSON      bool   `help:"Print the assessment as JSON"`
}

// RunCmd executes a plan synchronously.
type RunCmd struct {
	Plan      string `arg:"" help:"Plan file (YAML or JSON, - for stdin)"`
	Workspace string `short:"w" default:"default" help:"Workspace id"`
	User      string `short:"u" default:"cli" help:"User id recorded as the run creator"`
	Approve   bool   `help:"Approve the plan even if the assessment requires approval"`
	JSON      bool   `help:"Print the run record as JSON"`
}

// RunsCmd lists runs, or prints one run when an id is given.
type RunsCmd struct {
	ID    string `arg:"" optional:"" help:"Run id to show"`
	Limit int    `short:"n" default:"20" help:"Number of runs to list"`
}

// AllowlistCmd groups allowlist subcommands.
type AllowlistCmd struct {
	List  AllowlistListCmd  `cmd:"" help:"List known domains of a workspace"`
	Reset AllowlistResetCmd `cmd:"" help:"Forget every domain of a workspace"`
}

// AllowlistListCmd lists a workspace's domains.
type AllowlistListCmd struct {
	Workspace string `arg:"" optional:"" default:"default" help:"Workspace id"`
}

// AllowlistResetCmd resets a workspace's domains.
type AllowlistResetCmd struct {
	Workspace string `arg:"" optional:"" default:"default" help:"Workspace id"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version.Version,
	}
}
