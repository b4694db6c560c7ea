package ir

// Host-shareable memory layout, following the WGSL rules for the storage
// and uniform address spaces.

// TypeAlignmentAndSize returns the alignment and size in bytes of a type.
// Runtime-sized arrays report the size of a single element.
func (m *Module) TypeAlignmentAndSize(handle TypeHandle) (align, size uint32) {
	if int(handle) >= len(m.Types) {
		return 4, 4
	}
	return m.innerAlignmentAndSize(m.Types[handle].Inner)
}

func (m *Module) innerAlignmentAndSize(inner TypeInner) (align, size uint32) {
	switch t := inner.(type) {
	case ScalarType:
		return scalarLayout(t)

	case AtomicType:
		return scalarLayout(t.Scalar)

	case VectorType:
		return vectorAlignmentAndSize(t.Size, t.Scalar)

	case MatrixType:
		// Column-major; each column is laid out as a vector.
		colAlign, colSize := vectorAlignmentAndSize(t.Rows, t.Scalar)
		colStride := RoundUp(colAlign, colSize)
		return colAlign, colStride * uint32(t.Columns)

	case ArrayType:
		elemAlign, _ := m.TypeAlignmentAndSize(t.Base)
		stride := m.ArrayStride(t)
		if t.Size.Constant != nil {
			return elemAlign, stride * *t.Size.Constant
		}
		return elemAlign, stride

	case StructType:
		var maxAlign uint32 = 1
		var end uint32
		for _, member := range t.Members {
			memberAlign, memberSize := m.TypeAlignmentAndSize(member.Type)
			if memberAlign > maxAlign {
				maxAlign = memberAlign
			}
			if member.Offset+memberSize > end {
				end = member.Offset + memberSize
			}
		}
		if t.Span != 0 {
			return maxAlign, t.Span
		}
		return maxAlign, RoundUp(maxAlign, end)
	}

	return 4, 4
}

// ArrayStride returns the distance in bytes between consecutive elements
// of an array. An explicit Stride wins over the layout-derived one.
func (m *Module) ArrayStride(arr ArrayType) uint32 {
	if arr.Stride != 0 {
		return arr.Stride
	}
	elemAlign, elemSize := m.TypeAlignmentAndSize(arr.Base)
	return RoundUp(elemAlign, elemSize)
}

// StructSpan computes the span of a struct whose members already carry
// their offsets: the end of the last member rounded up to the struct
// alignment.
func (m *Module) StructSpan(members []StructMember) uint32 {
	_, size := m.innerAlignmentAndSize(StructType{Members: members})
	return size
}

func scalarLayout(s ScalarType) (align, size uint32) {
	w := uint32(s.Width)
	if w == 0 || s.Kind == ScalarBool {
		w = 4
	}
	return w, w
}

// vectorAlignmentAndSize: vec2 aligns to twice the scalar, vec3 and vec4 to four times.
func vectorAlignmentAndSize(n VectorSize, scalar ScalarType) (align, size uint32) {
	_, w := scalarLayout(scalar)
	size = w * uint32(n)
	switch n {
	case Vec2:
		return 2 * w, size
	default:
		return 4 * w, size
	}
}

// RoundUp rounds n up to a multiple of align. align must be a power of two.
func RoundUp(align, n uint32) uint32 {
	if align == 0 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}
