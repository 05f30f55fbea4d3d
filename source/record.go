// Package source provides backend.Source implementations: descriptor files
// (YAML, JSON, JSONC), a SQLite database, and a static in-memory list.
package source

import (
	"os"
	"regexp"

	"github.com/jonwraymond/toolgate/backend"
)

// record is the stored form of a descriptor, shared by every source.
type record struct {
	Name          string   `json:"name" yaml:"name"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
	Kind          string   `json:"kind" yaml:"kind"`
	Enabled       *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Transport     string   `json:"transport,omitempty" yaml:"transport,omitempty"`
	RequiredRoles []string `json:"required_roles,omitempty" yaml:"required_roles,omitempty"`
	AllowedUsers  []string `json:"allowed_users,omitempty" yaml:"allowed_users,omitempty"`

	connection `yaml:",inline"`
}

// connection holds how to reach a backend. The SQLite source stores it as a
// JSON column; files inline it into the record.
type connection struct {
	Factory   string            `json:"factory,omitempty" yaml:"factory,omitempty"`
	Command   string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args      []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Dir       string            `json:"dir,omitempty" yaml:"dir,omitempty"`
	ServerURL string            `json:"server_url,omitempty" yaml:"server_url,omitempty"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// kindAliases maps legacy kind names onto current ones.
var kindAliases = map[string]backend.Kind{
	"local_mcp_mock": backend.KindLocalMock,
	"remote_mcp":     backend.KindRemote,
}

// descriptor converts a record into a validated descriptor. Omitted enabled
// means enabled; a remote record without a transport uses stdio.
func (r record) descriptor() (backend.Descriptor, error) {
	kind := backend.Kind(r.Kind)
	if alias, ok := kindAliases[r.Kind]; ok {
		kind = alias
	}
	transport := backend.Transport(r.Transport)
	if kind == backend.KindRemote && transport == "" {
		transport = backend.TransportStdio
	}
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	d := backend.Descriptor{
		Name:          r.Name,
		Description:   r.Description,
		Kind:          kind,
		Enabled:       enabled,
		Factory:       r.Factory,
		Transport:     transport,
		Command:       r.Command,
		Args:          append([]string(nil), r.Args...),
		Env:           expandValues(r.Env),
		Dir:           r.Dir,
		ServerURL:     r.ServerURL,
		Headers:       expandValues(r.Headers),
		RequiredRoles: append([]string(nil), r.RequiredRoles...),
		AllowedUsers:  append([]string(nil), r.AllowedUsers...),
	}
	if err := d.Validate(); err != nil {
		return backend.Descriptor{}, err
	}
	return d, nil
}

// fromDescriptor is the inverse of descriptor, without expansion.
func fromDescriptor(d backend.Descriptor) record {
	enabled := d.Enabled
	return record{
		Name:          d.Name,
		Description:   d.Description,
		Kind:          string(d.Kind),
		Enabled:       &enabled,
		Transport:     string(d.Transport),
		RequiredRoles: d.RequiredRoles,
		AllowedUsers:  d.AllowedUsers,
		connection: connection{
			Factory:   d.Factory,
			Command:   d.Command,
			Args:      d.Args,
			Env:       d.Env,
			Dir:       d.Dir,
			ServerURL: d.ServerURL,
			Headers:   d.Headers,
		},
	}
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment. An unset
// or empty variable without a default expands to "".
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

func expandValues(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = expandVars(v)
	}
	return out
}
