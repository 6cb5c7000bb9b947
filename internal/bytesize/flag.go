package bytesize

import (
	"strings"

	"github.com/spf13/pflag"
)

// SliceValue is a pflag.Value that collects repeated byte size flags in
// order of appearance. It backs the repeatable --size flag, where each
// occurrence is positionally paired with a --map occurrence.
type SliceValue struct {
	sizes   *[]ByteSize
	changed bool
}

var _ pflag.SliceValue = (*SliceValue)(nil)

// NewSliceValue creates a SliceValue appending into sizes.
func NewSliceValue(sizes *[]ByteSize) *SliceValue {
	return &SliceValue{sizes: sizes}
}

// Set parses and appends one byte size value.
// The first Set after flag parsing begins resets any default values,
// matching the semantics of pflag's built-in slice flags.
func (v *SliceValue) Set(s string) error {
	size, err := Parse(s)
	if err != nil {
		return err
	}
	if !v.changed {
		*v.sizes = []ByteSize{size}
		v.changed = true
	} else {
		*v.sizes = append(*v.sizes, size)
	}
	return nil
}

// Type returns the flag type name shown in help output.
func (v *SliceValue) Type() string {
	return "bytes"
}

// String returns the current values as a comma-separated list.
func (v *SliceValue) String() string {
	if v.sizes == nil || len(*v.sizes) == 0 {
		return "[]"
	}
	parts := make([]string, len(*v.sizes))
	for i, s := range *v.sizes {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Append implements pflag.SliceValue.
func (v *SliceValue) Append(s string) error {
	size, err := Parse(s)
	if err != nil {
		return err
	}
	*v.sizes = append(*v.sizes, size)
	return nil
}

// Replace implements pflag.SliceValue.
func (v *SliceValue) Replace(vals []string) error {
	out := make([]ByteSize, 0, len(vals))
	for _, s := range vals {
		size, err := Parse(s)
		if err != nil {
			return err
		}
		out = append(out, size)
	}
	*v.sizes = out
	return nil
}

// GetSlice implements pflag.SliceValue.
func (v *SliceValue) GetSlice() []string {
	parts := make([]string, len(*v.sizes))
	for i, s := range *v.sizes {
		parts[i] = s.String()
	}
	return parts
}
