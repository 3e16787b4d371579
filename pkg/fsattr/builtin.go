package fsattr

import (
	"bytes"
	"embed"
	"fmt"
	"runtime"
)

//go:embed policies/*.yaml
var builtin embed.FS

// BuiltinPolicy returns one of the bundled policies ("posix" or "windows")
func BuiltinPolicy(name string) (*Policy, error) {
	data, err := builtin.ReadFile("policies/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no builtin policy %q", name)
	}
	return ParsePolicy(bytes.NewReader(data))
}

// DefaultPolicyName picks the bundled policy for the running platform
func DefaultPolicyName() string {
	if runtime.GOOS == "windows" {
		return "windows"
	}
	return "posix"
}
