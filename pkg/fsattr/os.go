package fsattr

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// OSService maps the read-only and directory attributes onto the local
// filesystem's permission bits. Other attributes are validated against the
// policy and then dropped.
type OSService struct {
	policy   *Policy
	readOnly AttributeSet
	dir      AttributeSet
}

var _ Service = new(OSService)

// NewOSService creates a service using the policy's "readonly" and
// "directory" names. Either may be absent from the policy.
func NewOSService(p *Policy) *OSService {
	ro, _ := p.Lookup("readonly")
	dir, _ := p.Lookup("directory")
	return &OSService{policy: p, readOnly: ro, dir: dir}
}

func (o *OSService) Get(path string) (AttributeSet, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, wrapNotExist(path, err)
	}

	var a AttributeSet
	if info.IsDir() {
		a |= o.dir
	}
	if info.Mode().Perm()&0222 == 0 {
		a |= o.readOnly
	}
	return a, nil
}

func (o *OSService) Set(path string, attrs AttributeSet) error {
	if err := o.policy.Validate(attrs); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return wrapNotExist(path, err)
	}

	perm := info.Mode().Perm()
	if o.readOnly != 0 && attrs.Has(o.readOnly) {
		perm &^= 0222
	} else {
		perm |= 0200
	}
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	return nil
}

func wrapNotExist(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return err
}
