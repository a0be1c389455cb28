// Package resources embeds the built-in scenarios.
package resources

import "embed"

// ScenarioDir is the directory of ScenarioFiles holding the YAML files.
const ScenarioDir = "scenarios"

//go:embed scenarios/*.yaml
var ScenarioFiles embed.FS
