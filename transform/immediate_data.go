package transform

import (
	"sort"

	"github.com/gogpu/immediates/ir"
)

const (
	// ImmediateDataStructName names the struct backing the immediate block.
	ImmediateDataStructName = "tint_immediate_data_struct"
	// ImmediateDataVarName names the single immediate-space variable.
	ImmediateDataVarName = "tint_immediate_data"
	// BufferSizesMemberName names the packed storage buffer sizes member.
	BufferSizesMemberName = "tint_storage_buffer_sizes"
	// FirstVertexMemberName names the first-vertex offset member.
	FirstVertexMemberName = "tint_first_vertex"
	// FirstInstanceMemberName names the first-instance offset member.
	FirstInstanceMemberName = "tint_first_instance"
)

const preparePass = "PrepareImmediateData"

// ImmediateDataEntry requests one internal member of the immediate block.
type ImmediateDataEntry struct {
	Offset uint32
	Name   string
	Type   ir.TypeHandle
}

// PrepareImmediateDataConfig lists the internal members to place in the
// immediate block, kept sorted by offset.
type PrepareImmediateDataConfig struct {
	entries []ImmediateDataEntry
}

// AddInternalImmediateData requests a member of type ty at byte offset.
// Requesting the same offset twice is a programming error.
func (c *PrepareImmediateDataConfig) AddInternalImmediateData(offset uint32, name string, ty ir.TypeHandle) {
	i := sort.Search(len(c.entries), func(i int) bool { return c.entries[i].Offset >= offset })
	if i < len(c.entries) && c.entries[i].Offset == offset {
		ice(preparePass, "immediate data %q requested at offset %d already taken by %q", name, offset, c.entries[i].Name)
	}
	c.entries = append(c.entries, ImmediateDataEntry{})
	copy(c.entries[i+1:], c.entries[i:])
	c.entries[i] = ImmediateDataEntry{Offset: offset, Name: name, Type: ty}
}

// Entries returns the requested members in ascending offset order.
func (c *PrepareImmediateDataConfig) Entries() []ImmediateDataEntry {
	return c.entries
}

// Empty reports whether no internal members were requested.
func (c *PrepareImmediateDataConfig) Empty() bool {
	return len(c.entries) == 0
}

// ImmediateDataLayout records where the immediate block lives and which
// struct member each requested offset maps to. The zero value is the
// empty layout.
type ImmediateDataLayout struct {
	// Var is the immediate-space variable.
	Var ir.GlobalVariableHandle
	// OffsetToIndex maps the byte offset of each internal member to its
	// member index in the block struct.
	OffsetToIndex map[uint32]uint32

	valid bool
}

// IsEmpty reports whether no immediate block was created.
func (l ImmediateDataLayout) IsEmpty() bool {
	return !l.valid
}

// MemberIndex returns the member index of the internal member at offset.
func (l ImmediateDataLayout) MemberIndex(offset uint32) (uint32, bool) {
	if !l.valid {
		return 0, false
	}
	idx, ok := l.OffsetToIndex[offset]
	return idx, ok
}

// PrepareImmediateData merges the module's user-declared immediate
// variable, if any, with the internal members requested by cfg into one
// block-decorated struct held by a single immediate-space variable.
//
// The user variable becomes member 0 at offset 0 and its uses are
// redirected to that member. Internal members follow at exactly their
// requested offsets. When there is neither a user variable nor a request,
// the module is left untouched and the empty layout is returned.
func PrepareImmediateData(m *ir.Module, cfg PrepareImmediateDataConfig, opts ...Option) (ImmediateDataLayout, error) {
	o := buildOptions(opts)
	findImmediateVariable(m)
	var layout ImmediateDataLayout
	err := run(m, preparePass, o, func() error {
		layout = prepareImmediateData(m, &cfg, o)
		return nil
	})
	if err != nil {
		return ImmediateDataLayout{}, err
	}
	return layout, nil
}

func prepareImmediateData(m *ir.Module, cfg *PrepareImmediateDataConfig, o options) ImmediateDataLayout {
	userVar, hasUser := findImmediateVariable(m)
	if !hasUser && cfg.Empty() {
		return ImmediateDataLayout{}
	}

	layout := ImmediateDataLayout{
		OffsetToIndex: make(map[uint32]uint32, len(cfg.entries)),
		valid:         true,
	}

	var members []ir.StructMember
	var end uint32
	if hasUser {
		gv := m.GlobalVariables[userVar]
		members = append(members, ir.StructMember{Name: gv.Name, Type: gv.Type, Offset: 0})
		_, end = m.TypeAlignmentAndSize(gv.Type)
	}

	for _, entry := range cfg.entries {
		if entry.Offset < end {
			ice(preparePass, "immediate data %q at offset %d overlaps the previous member ending at %d",
				entry.Name, entry.Offset, end)
		}
		align, size := m.TypeAlignmentAndSize(entry.Type)
		if entry.Offset%align != 0 {
			ice(preparePass, "immediate data %q at offset %d is not %d-byte aligned", entry.Name, entry.Offset, align)
		}
		layout.OffsetToIndex[entry.Offset] = uint32(len(members)) //nolint:gosec // member count is tiny
		members = append(members, ir.StructMember{Name: entry.Name, Type: entry.Type, Offset: entry.Offset})
		end = entry.Offset + size
	}

	blockType := m.EnsureType(ImmediateDataStructName, ir.StructType{
		Members: members,
		Span:    m.StructSpan(members),
		Block:   true,
	})

	newVar := ir.GlobalVariableHandle(len(m.GlobalVariables))
	m.GlobalVariables = append(m.GlobalVariables, ir.GlobalVariable{
		Name:  ImmediateDataVarName,
		Space: ir.SpaceImmediate,
		Type:  blockType,
	})

	if hasUser {
		o.logger.Debug("moving user immediate variable into block",
			"variable", m.GlobalVariables[userVar].Name)
		redirectUserImmediate(m, userVar, newVar)
		removeGlobal(m, userVar)
		newVar--
	}
	layout.Var = newVar

	o.logger.Debug("immediate block prepared",
		"members", len(members), "span", m.StructSpan(members))
	return layout
}

// BufferSizesType returns the array<vec4<u32>, elements> type of the
// packed storage buffer sizes member.
func BufferSizesType(m *ir.Module, elements uint32) ir.TypeHandle {
	vec := m.EnsureType("", ir.VectorType{Size: ir.Vec4, Scalar: ir.U32})
	return m.EnsureType("", ir.ArrayType{Base: vec, Size: ir.ArraySize{Constant: &elements}, Stride: 16})
}

func findImmediateVariable(m *ir.Module) (ir.GlobalVariableHandle, bool) {
	found := false
	var handle ir.GlobalVariableHandle
	for i, gv := range m.GlobalVariables {
		if gv.Space != ir.SpaceImmediate {
			continue
		}
		if found {
			ice(preparePass, "module declares more than one immediate variable (%q and %q)",
				m.GlobalVariables[handle].Name, gv.Name)
		}
		found = true
		handle = ir.GlobalVariableHandle(i)
	}
	return handle, found
}

// redirectUserImmediate points every reference to the user variable at
// member 0 of the block variable. The member access is emitted at the top
// of each function that needs it.
func redirectUserImmediate(m *ir.Module, userVar, blockVar ir.GlobalVariableHandle) {
	for fi := range m.Functions {
		fn := &m.Functions[fi]

		var refs []ir.ExpressionHandle
		for h, expr := range fn.Expressions {
			if gv, ok := expr.Kind.(ir.ExprGlobalVariable); ok && gv.Variable == userVar {
				refs = append(refs, ir.ExpressionHandle(h))
			}
		}
		if len(refs) == 0 {
			continue
		}

		block := fn.Append(m, ir.ExprGlobalVariable{Variable: blockVar})
		member := fn.Append(m, ir.ExprAccessIndex{Base: block, Index: 0})
		fn.PrependStatements(ir.Emit(member, member+1))

		for _, ref := range refs {
			fn.ReplaceUses(ref, member, nil)
			// Keep the dead reference resolvable once the user variable is gone.
			fn.Replace(m, ref, ir.ExprGlobalVariable{Variable: blockVar})
		}
	}
}

// removeGlobal deletes a global variable and renumbers references to the
// variables that follow it.
func removeGlobal(m *ir.Module, handle ir.GlobalVariableHandle) {
	m.GlobalVariables = append(m.GlobalVariables[:handle], m.GlobalVariables[handle+1:]...)
	for fi := range m.Functions {
		fn := &m.Functions[fi]
		for h, expr := range fn.Expressions {
			gv, ok := expr.Kind.(ir.ExprGlobalVariable)
			if !ok || gv.Variable < handle {
				continue
			}
			if gv.Variable == handle {
				ice(preparePass, "function %q still references removed variable %d", fn.Name, handle)
			}
			fn.Expressions[h].Kind = ir.ExprGlobalVariable{Variable: gv.Variable - 1}
		}
	}
}
