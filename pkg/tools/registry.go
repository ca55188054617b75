package tools

import (
	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
)

var (
	// ErrToolNotFound is returned when a command names an unregistered tool.
	ErrToolNotFound = errors.New(errors.CodeToolNotFound, "tool not found", nil)

	// ErrMissingName is returned when a command carries no tool name.
	ErrMissingName = errors.New(errors.CodeMissingName, "command has no tool name", nil)
)

// Registry is the set of tools active for one session. It is built once and
// never modified afterwards.
type Registry struct {
	tools  []Tool
	byName map[string]Tool
}

// NewRegistry selects tools from the catalogue according to the profile
// allow-list. "notool" yields an empty registry; "auto" activates the whole
// catalogue; otherwise a tool is active when its name or localized name is
// listed. finish and no-tool are always added to a non-empty selection.
func NewRegistry(profile core.Profile, catalogue ...Tool) *Registry {
	r := &Registry{byName: make(map[string]Tool)}
	if profile.NoTools() {
		return r
	}
	all := profile.AllTools()
	for _, tool := range catalogue {
		spec := tool.Spec()
		if all || profile.Allows(spec.Name, spec.LocalName) {
			r.add(tool)
		}
	}
	r.add(Finish())
	r.add(NoTool())
	return r
}

func (r *Registry) add(tool Tool) {
	name := tool.Spec().Name
	if name == "" {
		return
	}
	if _, dup := r.byName[name]; dup {
		return
	}
	r.byName[name] = tool
	r.tools = append(r.tools, tool)
}

// Empty reports whether the session runs without tools.
func (r *Registry) Empty() bool {
	return len(r.tools) == 0
}

// Has reports whether name resolves to a registered tool.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Resolve returns the tool registered under name.
func (r *Registry) Resolve(name string) (Tool, error) {
	if name == "" {
		return nil, ErrMissingName
	}
	tool, ok := r.byName[name]
	if !ok {
		return nil, errors.New(errors.CodeToolNotFound, ErrToolNotFound.Message, nil).WithContext("tool", name)
	}
	return tool, nil
}

// Specs returns the specs of the active tools in registration order.
func (r *Registry) Specs() []Spec {
	specs := make([]Spec, 0, len(r.tools))
	for _, tool := range r.tools {
		specs = append(specs, tool.Spec())
	}
	return specs
}

// Names returns the canonical names of the active tools.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for _, tool := range r.tools {
		names = append(names, tool.Spec().Name)
	}
	return names
}
