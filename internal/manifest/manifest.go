// Package manifest describes a raised module's immediate block for the
// runtime that fills it: member offsets and sizes plus where each storage
// buffer's size goes.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/immediates/glsl"
	"github.com/gogpu/immediates/ir"
	"github.com/gogpu/immediates/transform"
)

// ErrUnknownFormat is returned by Encode and Decode for unsupported formats.
var ErrUnknownFormat = errors.New("manifest: unknown format")

// Format selects the manifest encoding.
type Format int

const (
	// Msgpack is the compact form loaded by runtimes.
	Msgpack Format = iota
	// YAML is the human-readable form.
	YAML
)

// ParseFormat maps "msgpack" and "yaml" to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "msgpack", "mp":
		return Msgpack, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Manifest is the immediate block of one module. A module without
// immediate data has an empty Block and no members.
type Manifest struct {
	Block       string       `msgpack:"block" yaml:"block,omitempty"`
	Size        uint32       `msgpack:"size" yaml:"size"`
	Members     []Member     `msgpack:"members" yaml:"members,omitempty"`
	BufferSizes *BufferSizes `msgpack:"buffer_sizes" yaml:"buffer_sizes,omitempty"`
}

// Member is one field of the immediate block.
type Member struct {
	Name   string `msgpack:"name" yaml:"name"`
	Index  uint32 `msgpack:"index" yaml:"index"`
	Offset uint32 `msgpack:"offset" yaml:"offset"`
	Size   uint32 `msgpack:"size" yaml:"size"`
}

// BufferSizes is the packed array of storage buffer byte sizes.
type BufferSizes struct {
	Offset   uint32 `msgpack:"offset" yaml:"offset"`
	Elements uint32 `msgpack:"elements" yaml:"elements"`
	Slots    []Slot `msgpack:"slots" yaml:"slots"`
}

// Slot places one buffer's size at Offset within the immediate block.
type Slot struct {
	Group   uint32 `msgpack:"group" yaml:"group"`
	Binding uint32 `msgpack:"binding" yaml:"binding"`
	Slot    uint32 `msgpack:"slot" yaml:"slot"`
	Offset  uint32 `msgpack:"offset" yaml:"offset"`
}

// New builds the manifest of a module raised with result. slots is the
// binding-to-slot map the module was raised with.
func New(m *ir.Module, result glsl.RaiseResult, slots map[transform.BindingPoint]uint32) (*Manifest, error) {
	man := &Manifest{}
	if result.Layout.IsEmpty() {
		return man, nil
	}
	if int(result.Layout.Var) >= len(m.GlobalVariables) {
		return nil, fmt.Errorf("manifest: immediate variable %d out of range", result.Layout.Var)
	}
	gv := m.GlobalVariables[result.Layout.Var]
	st, ok := m.Types[gv.Type].Inner.(ir.StructType)
	if !ok {
		return nil, fmt.Errorf("manifest: immediate variable %q is not a struct", gv.Name)
	}
	man.Block = gv.Name
	man.Size = st.Span

	for i, member := range st.Members {
		index, err := safecast.Conv[uint32](i)
		if err != nil {
			return nil, fmt.Errorf("manifest: member %q: %w", member.Name, err)
		}
		_, size := m.TypeAlignmentAndSize(member.Type)
		man.Members = append(man.Members, Member{
			Name:   member.Name,
			Index:  index,
			Offset: member.Offset,
			Size:   size,
		})
		if member.Name == transform.BufferSizesMemberName && result.NeedsStorageBufferSizes {
			man.BufferSizes = bufferSizes(member.Offset, result.BufferSizesArrayElements, slots)
		}
	}
	return man, nil
}

func bufferSizes(offset, elements uint32, slots map[transform.BindingPoint]uint32) *BufferSizes {
	bs := &BufferSizes{Offset: offset, Elements: elements}
	for bp, slot := range slots {
		bs.Slots = append(bs.Slots, Slot{
			Group:   bp.Group,
			Binding: bp.Binding,
			Slot:    slot,
			Offset:  offset + slot*4,
		})
	}
	sort.Slice(bs.Slots, func(i, j int) bool {
		a, b := bs.Slots[i], bs.Slots[j]
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Binding < b.Binding
	})
	return bs
}

// Member returns the member named name.
func (man *Manifest) Member(name string) (Member, bool) {
	for _, member := range man.Members {
		if member.Name == name {
			return member, true
		}
	}
	return Member{}, false
}

// Encode writes man to w in format.
func (man *Manifest) Encode(w io.Writer, format Format) error {
	switch format {
	case Msgpack:
		if err := msgpack.NewEncoder(w).Encode(man); err != nil {
			return fmt.Errorf("manifest: %w", err)
		}
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(man); err != nil {
			return fmt.Errorf("manifest: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("manifest: %w", err)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
	return nil
}

// Decode reads a manifest written by Encode.
func Decode(r io.Reader, format Format) (*Manifest, error) {
	man := &Manifest{}
	switch format {
	case Msgpack:
		if err := msgpack.NewDecoder(r).Decode(man); err != nil {
			return nil, fmt.Errorf("manifest: %w", err)
		}
	case YAML:
		if err := yaml.NewDecoder(r).Decode(man); err != nil {
			return nil, fmt.Errorf("manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
	return man, nil
}
