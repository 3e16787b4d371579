package fsattr

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Policy is versioned platform data describing attribute bits
type Policy struct {
	Version  int               `yaml:"version"`
	Platform string            `yaml:"platform"`
	Names    map[string]uint32 `yaml:"names"`
	// bits a directory keeps when set
	DirectoryMask []string `yaml:"directory_mask"`
	// bits a directory always reports
	AlwaysSet []string `yaml:"always_set"`

	mask      AttributeSet
	dirMask   AttributeSet
	alwaysSet AttributeSet
}

// LoadPolicy reads a YAML policy file
func LoadPolicy(path string) (*Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy %s: %w", path, err)
	}
	defer f.Close()
	return ParsePolicy(f)
}

// ParsePolicy decodes and validates a YAML policy
func ParsePolicy(r io.Reader) (*Policy, error) {
	var p Policy
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode policy: %w", err)
	}
	if err := p.compile(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Policy) compile() error {
	if p.Version < 1 {
		return fmt.Errorf("policy version must be at least 1, got %d", p.Version)
	}
	if len(p.Names) == 0 {
		return fmt.Errorf("policy %q defines no attribute names", p.Platform)
	}

	p.mask = 0
	for name, bit := range p.Names {
		if bit == 0 {
			return fmt.Errorf("attribute %q has no bits", name)
		}
		p.mask |= AttributeSet(bit)
	}

	var err error
	if p.dirMask, err = p.Lookup(p.DirectoryMask...); err != nil {
		return fmt.Errorf("directory_mask: %w", err)
	}
	if p.alwaysSet, err = p.Lookup(p.AlwaysSet...); err != nil {
		return fmt.Errorf("always_set: %w", err)
	}
	return nil
}

// Mask returns every bit the policy names
func (p *Policy) Mask() AttributeSet {
	return p.mask
}

// Lookup combines the bits of the named attributes
func (p *Policy) Lookup(names ...string) (AttributeSet, error) {
	var set AttributeSet
	for _, n := range names {
		bit, ok := p.Names[n]
		if !ok {
			return 0, fmt.Errorf("unknown attribute %q", n)
		}
		set |= AttributeSet(bit)
	}
	return set, nil
}

// Validate rejects sets with bits the policy does not name
func (p *Policy) Validate(a AttributeSet) error {
	if a&^p.mask != 0 {
		return fmt.Errorf("%w: %#x", ErrInvalidAttributes, uint32(a&^p.mask))
	}
	return nil
}

// Effective returns what a directory reports after a is written to it
func (p *Policy) Effective(a AttributeSet) AttributeSet {
	return a&p.dirMask | p.alwaysSet
}

// Describe lists the attribute names present in a, sorted
func (p *Policy) Describe(a AttributeSet) []string {
	names := make([]string, 0)
	for name, bit := range p.Names {
		if a.Has(AttributeSet(bit)) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
