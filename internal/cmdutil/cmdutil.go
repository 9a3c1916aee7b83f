// Package cmdutil holds state shared between the CLI commands.
package cmdutil

// ConfigPath is the settings file location, set by the root command's
// persistent --config flag before any subcommand runs.
var ConfigPath = "settings.json"
