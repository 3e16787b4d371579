// Package fsattr models file attribute access as a capability.
//
// An AttributeSet is an opaque bitmask. Which bits exist and which ones a
// platform keeps on directories is not decided here; it comes from a Policy
// loaded from external, versioned data.
package fsattr

import (
	"errors"
	"fmt"
)

// AttributeSet is an opaque attribute bitmask
type AttributeSet uint32

var (
	ErrInvalidAttributes = errors.New("attribute set contains bits unknown to the policy")
	ErrNotFound          = errors.New("path not found")
)

// Service reads and writes attributes of a path
type Service interface {
	Get(path string) (AttributeSet, error)
	Set(path string, attrs AttributeSet) error
}

// Has reports whether every bit of want is present in a
func (a AttributeSet) Has(want AttributeSet) bool {
	return a&want == want
}

// CheckResult describes one set-then-get round trip
type CheckResult struct {
	Path      string       `json:"path" yaml:"path"`
	Requested AttributeSet `json:"requested" yaml:"requested"`
	Expected  AttributeSet `json:"expected" yaml:"expected"`
	Observed  AttributeSet `json:"observed" yaml:"observed"`
	OK        bool         `json:"ok" yaml:"ok"`
}

// Check writes want to path through svc, reads it back and compares the
// result with what p says a directory keeps. The original attributes are
// restored afterwards; a failed restore is reported as an error.
func Check(svc Service, p *Policy, path string, want AttributeSet) (res CheckResult, err error) {
	res = CheckResult{Path: path, Requested: want, Expected: p.Effective(want)}

	orig, err := svc.Get(path)
	if err != nil {
		return res, fmt.Errorf("failed to read attributes of %s: %w", path, err)
	}

	if err := svc.Set(path, want); err != nil {
		return res, fmt.Errorf("failed to set attributes on %s: %w", path, err)
	}
	defer func() {
		if rerr := svc.Set(path, orig&p.Mask()); rerr != nil && err == nil {
			err = fmt.Errorf("failed to restore attributes on %s: %w", path, rerr)
		}
	}()

	got, err := svc.Get(path)
	if err != nil {
		return res, fmt.Errorf("failed to read back attributes of %s: %w", path, err)
	}
	res.Observed = got
	res.OK = got&p.Mask() == res.Expected
	return res, nil
}
