package transform

import (
	"fmt"
	"log/slog"

	"fortio.org/safecast"

	"github.com/gogpu/immediates/ir"
)

const arrayLengthPass = "ArrayLengthFromImmediates"

// ArrayLengthsStructName names the per-module struct that carries every
// array length a function computes from immediate data.
const ArrayLengthsStructName = "tint_array_lengths_struct"

// BindingPoint identifies a resource binding.
type BindingPoint struct {
	Group   uint32
	Binding uint32
}

// String returns the WGSL attribute form of the binding point.
func (bp BindingPoint) String() string {
	return fmt.Sprintf("@group(%d) @binding(%d)", bp.Group, bp.Binding)
}

// ArrayLengthResult reports what ArrayLengthFromImmediates needed.
type ArrayLengthResult struct {
	// NeedsStorageBufferSizes is set when at least one length is read from
	// the buffer sizes member, so the caller must upload the sizes.
	NeedsStorageBufferSizes bool
}

// ArrayLengthFromImmediates replaces array length queries on storage
// buffers listed in bindpointToSizeIndex with
//
//	(sizes[slot / 4][slot % 4] - offset of the array in the buffer) / stride
//
// where sizes is the array<vec4<u32>, bufferSizesArrayElements> member of
// the immediate block at bufferSizesOffset.
//
// Lengths are computed once per function at the top of its body. Queries
// on a function argument are satisfied by a new trailing u32 argument, and
// every call site passes the length: computed from immediate data when the
// caller knows the buffer, forwarded from the caller's own new argument
// when it received the pointer, or queried at the call otherwise.
// Queries on buffers missing from the map are left untouched.
func ArrayLengthFromImmediates(
	m *ir.Module,
	layout ImmediateDataLayout,
	bufferSizesOffset uint32,
	bufferSizesArrayElements uint32,
	bindpointToSizeIndex map[BindingPoint]uint32,
	opts ...Option,
) (ArrayLengthResult, error) {
	o := buildOptions(opts)
	var result ArrayLengthResult
	err := run(m, arrayLengthPass, o, func() error {
		if len(bindpointToSizeIndex) == 0 {
			return nil
		}
		s := newArrayLengthState(m, layout, bufferSizesOffset, bufferSizesArrayElements, bindpointToSizeIndex, o.logger)
		s.discover()
		s.prune()
		if err := s.rewrite(); err != nil {
			return err
		}
		result.NeedsStorageBufferSizes = s.loadedSizes
		return nil
	})
	if err != nil {
		return ArrayLengthResult{}, err
	}
	return result, nil
}

// lengthUse is an array length query to replace, either by a member of
// the function's lengths struct or by one of its new arguments.
type lengthUse struct {
	expr   ir.ExpressionHandle
	member int
	need   int
}

// need is a function argument whose length the function must receive.
type need struct {
	fn    ir.FunctionHandle
	param uint32
	path  []uint32

	supplies []int // indices into arrayLengthState.supplies
	useful   bool
}

type needKey struct {
	fn    ir.FunctionHandle
	param uint32
	path  string
}

type supplyKind uint8

const (
	supplyMember supplyKind = iota // member of the caller's lengths struct
	supplyNeed                     // the caller's own new argument
	supplyQuery                    // array length queried at the call
)

// supply is the extra argument one call site passes for one need.
type supply struct {
	caller  ir.FunctionHandle
	ordinal int // index of the call among the caller's calls, in walk order
	kind    supplyKind
	member  int
	need    int
	arg     ir.ExpressionHandle
	path    []uint32
}

type callSite struct {
	caller  ir.FunctionHandle
	ordinal int
}

type arrayLengthState struct {
	m             *ir.Module
	layout        ImmediateDataLayout
	sizesOffset   uint32
	sizesElements uint32
	slots         map[BindingPoint]uint32
	log           *slog.Logger

	entry map[ir.FunctionHandle]bool
	calls [][]ir.StmtCall

	members     []globalOrigin
	memberIndex map[string]int
	fnMembers   [][]int
	fnHasMember []map[int]bool

	needs     []need
	needIndex map[needKey]int
	supplies  []supply
	uses      [][]lengthUse

	lengthsType ir.TypeHandle
	sizesMember uint32
	needParam   []uint32
	loadedSizes bool
}

func newArrayLengthState(
	m *ir.Module,
	layout ImmediateDataLayout,
	sizesOffset, sizesElements uint32,
	slots map[BindingPoint]uint32,
	log *slog.Logger,
) *arrayLengthState {
	n := len(m.Functions)
	s := &arrayLengthState{
		m:             m,
		layout:        layout,
		sizesOffset:   sizesOffset,
		sizesElements: sizesElements,
		slots:         slots,
		log:           log,
		entry:         make(map[ir.FunctionHandle]bool, len(m.EntryPoints)),
		calls:         make([][]ir.StmtCall, n),
		memberIndex:   make(map[string]int),
		fnMembers:     make([][]int, n),
		fnHasMember:   make([]map[int]bool, n),
		needIndex:     make(map[needKey]int),
		uses:          make([][]lengthUse, n),
	}
	for _, ep := range m.EntryPoints {
		s.entry[ep.Function] = true
	}
	for fi := range m.Functions {
		ir.WalkStatements(m.Functions[fi].Body, func(stmt *ir.Statement) {
			if call, ok := stmt.Kind.(ir.StmtCall); ok {
				s.calls[fi] = append(s.calls[fi], call)
			}
		})
	}
	return s
}

// discover classifies every query and propagates argument needs to all
// call sites. Nothing in the module is modified.
func (s *arrayLengthState) discover() {
	for fi := range s.m.Functions {
		fh := ir.FunctionHandle(fi)
		fn := &s.m.Functions[fi]
		for h, expr := range fn.Expressions {
			query, ok := expr.Kind.(ir.ExprArrayLength)
			if !ok {
				continue
			}
			switch o := classify(s.m, fn, query.Array).(type) {
			case globalOrigin:
				if member, ok := s.memberFor(o); ok {
					s.useMember(fh, member)
					s.uses[fi] = append(s.uses[fi], lengthUse{expr: ir.ExpressionHandle(h), member: member, need: -1})
				}
			case paramOrigin:
				if s.entry[fh] {
					continue
				}
				ni := s.addNeed(fh, o.index, o.path)
				s.uses[fi] = append(s.uses[fi], lengthUse{expr: ir.ExpressionHandle(h), member: -1, need: ni})
			}
		}
	}

	// Needs discovered while walking call sites are appended and visited
	// in turn; the call graph is acyclic so this terminates.
	for ni := 0; ni < len(s.needs); ni++ {
		n := s.needs[ni]
		for caller, calls := range s.calls {
			for ordinal, call := range calls {
				if call.Function != n.fn || int(n.param) >= len(call.Arguments) {
					continue
				}
				sup := s.resolveSupply(ir.FunctionHandle(caller), call.Arguments[n.param], n.path)
				sup.ordinal = ordinal
				s.supplies = append(s.supplies, sup)
				s.needs[ni].supplies = append(s.needs[ni].supplies, len(s.supplies)-1)
			}
		}
	}
}

func (s *arrayLengthState) resolveSupply(caller ir.FunctionHandle, arg ir.ExpressionHandle, path []uint32) supply {
	fn := &s.m.Functions[caller]
	switch o := classify(s.m, fn, arg).(type) {
	case globalOrigin:
		full := globalOrigin{variable: o.variable, path: joinPath(o.path, path)}
		if member, ok := s.memberFor(full); ok {
			return supply{caller: caller, kind: supplyMember, member: member}
		}
	case paramOrigin:
		if !s.entry[caller] {
			ni := s.addNeed(caller, o.index, joinPath(o.path, path))
			return supply{caller: caller, kind: supplyNeed, need: ni, arg: arg, path: path}
		}
	}
	return supply{caller: caller, kind: supplyQuery, arg: arg, path: path}
}

// prune drops needs that no call path can satisfy from immediate data.
// Their queries stay as they are instead of being threaded through
// arguments only to be queried again by the caller. A call that would
// have forwarded a dropped need queries the length at the call instead.
func (s *arrayLengthState) prune() {
	for changed := true; changed; {
		changed = false
		for ni := range s.needs {
			if s.needs[ni].useful {
				continue
			}
			for _, si := range s.needs[ni].supplies {
				sup := s.supplies[si]
				if sup.kind == supplyMember || (sup.kind == supplyNeed && s.needs[sup.need].useful) {
					s.needs[ni].useful = true
					changed = true
					break
				}
			}
		}
	}

	for _, n := range s.needs {
		if !n.useful {
			continue
		}
		for _, si := range n.supplies {
			sup := &s.supplies[si]
			switch {
			case sup.kind == supplyMember:
				s.useMember(sup.caller, sup.member)
			case sup.kind == supplyNeed && !s.needs[sup.need].useful:
				sup.kind = supplyQuery
			}
		}
	}
}

// memberFor returns the lengths struct member for a global origin, or
// false when the buffer has no size slot.
func (s *arrayLengthState) memberFor(o globalOrigin) (int, bool) {
	if member, ok := s.memberIndex[o.key()]; ok {
		return member, true
	}
	gv := s.m.GlobalVariables[o.variable]
	if gv.Space != ir.SpaceStorage || gv.Binding == nil {
		return 0, false
	}
	if _, ok := s.slots[BindingPoint{Group: gv.Binding.Group, Binding: gv.Binding.Binding}]; !ok {
		return 0, false
	}
	if _, _, ok := arrayLayout(s.m, o); !ok {
		return 0, false
	}
	member := len(s.members)
	s.members = append(s.members, o)
	s.memberIndex[o.key()] = member
	return member, true
}

func (s *arrayLengthState) useMember(fn ir.FunctionHandle, member int) {
	if s.fnHasMember[fn] == nil {
		s.fnHasMember[fn] = make(map[int]bool)
	}
	if s.fnHasMember[fn][member] {
		return
	}
	s.fnHasMember[fn][member] = true
	s.fnMembers[fn] = append(s.fnMembers[fn], member)
}

func (s *arrayLengthState) addNeed(fn ir.FunctionHandle, param uint32, path []uint32) int {
	key := needKey{fn: fn, param: param, path: pathKey(path)}
	if ni, ok := s.needIndex[key]; ok {
		return ni
	}
	ni := len(s.needs)
	s.needs = append(s.needs, need{fn: fn, param: param, path: path})
	s.needIndex[key] = ni
	return ni
}

// rewrite applies the discovered plan: new arguments first, so calls and
// argument references resolve against final signatures, then every
// function's body.
func (s *arrayLengthState) rewrite() error {
	if len(s.members) > 0 {
		member, ok := s.layout.MemberIndex(s.sizesOffset)
		if !ok {
			ice(arrayLengthPass, "immediate block has no buffer sizes member at offset %d", s.sizesOffset)
		}
		s.sizesMember = member
		s.lengthsType = s.ensureLengthsType()
	}

	if err := s.appendArguments(); err != nil {
		return err
	}

	for fi := range s.m.Functions {
		fh := ir.FunctionHandle(fi)
		fn := &s.m.Functions[fi]

		var lengths ir.ExpressionHandle
		if len(s.fnMembers[fi]) > 0 {
			lengths = s.emitLengths(fn, s.fnMembers[fi])
		}

		for _, use := range s.uses[fi] {
			switch {
			case use.member >= 0:
				fn.Replace(s.m, use.expr, ir.ExprAccessIndex{Base: lengths, Index: uint32(use.member)}) //nolint:gosec // member count is tiny
				s.log.Debug("array length from immediate data",
					"function", fn.Name, "expression", use.expr, "buffer", s.m.GlobalVariables[s.members[use.member].variable].Name)
			case s.needs[use.need].useful:
				fn.Replace(s.m, use.expr, ir.ExprFunctionArgument{Index: s.needParam[use.need]})
				s.log.Debug("array length from argument",
					"function", fn.Name, "expression", use.expr, "argument", s.needParam[use.need])
			}
		}

		s.rewriteCalls(fh, fn, lengths)
	}
	return nil
}

func (s *arrayLengthState) ensureLengthsType() ir.TypeHandle {
	u32 := s.m.EnsureType("", ir.U32)
	members := make([]ir.StructMember, len(s.members))
	for i, o := range s.members {
		name := s.m.GlobalVariables[o.variable].Name
		if name == "" {
			name = fmt.Sprintf("g%d", o.variable)
		}
		for _, idx := range o.path {
			name += fmt.Sprintf("_%d", idx)
		}
		members[i] = ir.StructMember{Name: name, Type: u32, Offset: uint32(4 * i)} //nolint:gosec // member count is tiny
	}
	return s.m.EnsureType(ArrayLengthsStructName, ir.StructType{
		Members: members,
		Span:    s.m.StructSpan(members),
	})
}

func (s *arrayLengthState) appendArguments() error {
	u32 := s.m.EnsureType("", ir.U32)
	s.needParam = make([]uint32, len(s.needs))
	perFunction := make(map[ir.FunctionHandle]int)
	for ni, n := range s.needs {
		if !n.useful {
			continue
		}
		fn := &s.m.Functions[n.fn]
		index, err := safecast.Conv[uint32](len(fn.Arguments))
		if err != nil {
			return fmt.Errorf("function %q: %w", fn.Name, err)
		}
		s.needParam[ni] = index
		fn.Arguments = append(fn.Arguments, ir.FunctionArgument{
			Name: fmt.Sprintf("tint_array_length_%d", perFunction[n.fn]),
			Type: u32,
		})
		perFunction[n.fn]++
		s.log.Debug("length argument added",
			"function", fn.Name, "for", fn.Arguments[n.param].Name, "index", index)
	}
	return nil
}

// emitLengths computes the given lengths at the top of fn and packs them
// into one lengths struct value. Members the function does not need are
// zero.
func (s *arrayLengthState) emitLengths(fn *ir.Function, used []int) ir.ExpressionHandle {
	start := ir.ExpressionHandle(len(fn.Expressions))
	block := fn.Append(s.m, ir.ExprGlobalVariable{Variable: s.layout.Var})
	sizes := fn.Append(s.m, ir.ExprAccessIndex{Base: block, Index: s.sizesMember})

	values := make(map[int]ir.ExpressionHandle, len(used))
	for _, member := range used {
		values[member] = s.emitLength(fn, sizes, s.members[member])
	}

	components := make([]ir.ExpressionHandle, len(s.members))
	zero := ir.ExpressionHandle(0)
	haveZero := false
	for member := range s.members {
		if v, ok := values[member]; ok {
			components[member] = v
			continue
		}
		if !haveZero {
			zero = fn.Append(s.m, ir.Literal{Value: ir.LiteralU32(0)})
			haveZero = true
		}
		components[member] = zero
	}
	lengths := fn.Append(s.m, ir.ExprCompose{Type: s.lengthsType, Components: components})
	fn.PrependStatements(ir.Emit(start, lengths+1))
	return lengths
}

func (s *arrayLengthState) emitLength(fn *ir.Function, sizes ir.ExpressionHandle, o globalOrigin) ir.ExpressionHandle {
	gv := s.m.GlobalVariables[o.variable]
	slot := s.slots[BindingPoint{Group: gv.Binding.Group, Binding: gv.Binding.Binding}]
	vector, lane := slot/4, slot%4
	if vector >= s.sizesElements {
		ice(arrayLengthPass, "size slot %d of %q is outside the %d buffer size vectors", slot, gv.Name, s.sizesElements)
	}
	prefix, stride, _ := arrayLayout(s.m, o)

	vecPtr := fn.Append(s.m, ir.ExprAccessIndex{Base: sizes, Index: vector})
	lanePtr := fn.Append(s.m, ir.ExprAccessIndex{Base: vecPtr, Index: lane})
	size := fn.Append(s.m, ir.ExprLoad{Pointer: lanePtr})
	s.loadedSizes = true

	if prefix != 0 {
		offset := fn.Append(s.m, ir.Literal{Value: ir.LiteralU32(prefix)})
		size = fn.Append(s.m, ir.ExprBinary{Op: ir.BinarySubtract, Left: size, Right: offset})
	}
	divisor := fn.Append(s.m, ir.Literal{Value: ir.LiteralU32(stride)})
	return fn.Append(s.m, ir.ExprBinary{Op: ir.BinaryDivide, Left: size, Right: divisor})
}

// rewriteCalls appends the length arguments to every call in fn that
// reaches a function with new arguments.
func (s *arrayLengthState) rewriteCalls(caller ir.FunctionHandle, fn *ir.Function, lengths ir.ExpressionHandle) {
	bySite := make(map[callSite][]supply)
	for _, n := range s.needs {
		if !n.useful {
			continue
		}
		for _, si := range n.supplies {
			sup := s.supplies[si]
			if sup.caller == caller {
				site := callSite{caller: caller, ordinal: sup.ordinal}
				bySite[site] = append(bySite[site], sup)
			}
		}
	}
	if len(bySite) == 0 {
		return
	}

	type pendingEmit struct {
		start, end ir.ExpressionHandle
	}
	var pending []pendingEmit
	argRefs := make(map[int]ir.ExpressionHandle)

	ordinal := -1
	ir.WalkStatements(fn.Body, func(stmt *ir.Statement) {
		call, ok := stmt.Kind.(ir.StmtCall)
		if !ok {
			return
		}
		ordinal++
		sups := bySite[callSite{caller: caller, ordinal: ordinal}]
		if len(sups) == 0 {
			return
		}

		args := append([]ir.ExpressionHandle(nil), call.Arguments...)
		for _, sup := range sups {
			switch sup.kind {
			case supplyMember:
				ref := fn.Append(s.m, ir.ExprAccessIndex{Base: lengths, Index: uint32(sup.member)}) //nolint:gosec // member count is tiny
				pending = append(pending, pendingEmit{start: ref, end: ref + 1})
				args = append(args, ref)
			case supplyNeed:
				ref, ok := argRefs[sup.need]
				if !ok {
					ref = fn.Append(s.m, ir.ExprFunctionArgument{Index: s.needParam[sup.need]})
					argRefs[sup.need] = ref
				}
				args = append(args, ref)
			case supplyQuery:
				start := ir.ExpressionHandle(len(fn.Expressions))
				ptr := sup.arg
				for _, idx := range sup.path {
					ptr = fn.Append(s.m, ir.ExprAccessIndex{Base: ptr, Index: idx})
				}
				query := fn.Append(s.m, ir.ExprArrayLength{Array: ptr})
				pending = append(pending, pendingEmit{start: start, end: query + 1})
				args = append(args, query)
				s.log.Debug("array length queried at call site",
					"function", fn.Name, "callee", s.m.Functions[call.Function].Name)
			}
		}
		call.Arguments = args
		stmt.Kind = call
	})

	for _, p := range pending {
		if !fn.InsertBeforeUse(p.end-1, ir.Emit(p.start, p.end)) {
			ice(arrayLengthPass, "%s: no statement uses expression %d", fn.Name, p.end-1)
		}
	}
}

// BufferSizesElements returns how many vec4<u32> are needed to hold every
// slot in bindpointToSizeIndex.
func BufferSizesElements(bindpointToSizeIndex map[BindingPoint]uint32) uint32 {
	if len(bindpointToSizeIndex) == 0 {
		return 0
	}
	var maxSlot uint32
	for _, slot := range bindpointToSizeIndex {
		maxSlot = max(maxSlot, slot)
	}
	return maxSlot/4 + 1
}
