// SPDX-License-Identifier: Apache-2.0

package core

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Tool allow-list sentinels.
const (
	ToolsAuto   = "auto"
	ToolsNoTool = "notool"
)

// DefaultMaxIterNum bounds planning when a profile leaves it unset.
const DefaultMaxIterNum = 5

// Profile is the static per-session agent identity and tool selection.
type Profile struct {
	Name         string   `yaml:"name" koanf:"name" json:"agent_name"`
	Bio          string   `yaml:"bio" koanf:"bio" json:"agent_bio"`
	Instructions string   `yaml:"instructions" koanf:"instructions" json:"agent_instructions"`
	MaxIterNum   int      `yaml:"max_iter_num" koanf:"max_iter_num" json:"max_iter_num"`
	Tools        []string `yaml:"tools" koanf:"tools" json:"tool_names"`
}

// DefaultProfile returns a profile that activates every tool.
func DefaultProfile() Profile {
	return Profile{
		MaxIterNum: DefaultMaxIterNum,
		Tools:      []string{ToolsAuto},
	}
}

// Normalized returns a copy with the iteration budget clamped to at least one
// and an empty allow-list replaced by "auto".
func (p Profile) Normalized() Profile {
	out := p
	if out.MaxIterNum < 1 {
		out.MaxIterNum = 1
	}
	if len(out.Tools) == 0 {
		out.Tools = []string{ToolsAuto}
	} else {
		out.Tools = slices.Clone(out.Tools)
	}
	return out
}

// NoTools reports whether the allow-list disables every tool.
func (p Profile) NoTools() bool {
	return slices.Contains(p.Tools, ToolsNoTool)
}

// AllTools reports whether the allow-list activates every tool.
func (p Profile) AllTools() bool {
	return slices.Contains(p.Tools, ToolsAuto)
}

// Allows reports whether any of the given names is on the allow-list.
func (p Profile) Allows(names ...string) bool {
	for _, name := range names {
		if name != "" && slices.Contains(p.Tools, name) {
			return true
		}
	}
	return false
}

// LoadProfile reads an agent profile from a YAML file.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	profile := DefaultProfile()
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return profile.Normalized(), nil
}
