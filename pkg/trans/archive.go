// Package trans implements editor transactions: objects are snapshotted the
// first time they are modified inside an open transaction, and Undo/Redo swap
// those snapshots with the live state.
package trans

import (
	"encoding/binary"
	"errors"
	"fmt"
	gomath "math"

	"github.com/Faultbox/midgard-csg/pkg/math"
)

// Archive errors.
var (
	ErrTruncated  = errors.New("truncated transaction data")
	ErrInvalidRef = errors.New("invalid object reference")
)

// Archive is the little-endian byte buffer a record is serialized into. Object
// references are written as indices into a name table so that they can be
// resolved again after the referenced object was recreated.
type Archive struct {
	data []byte
	off  int
	refs []string
	err  error
}

// Reset empties the archive for writing, keeping its storage.
func (a *Archive) Reset() {
	a.data = a.data[:0]
	a.refs = a.refs[:0]
	a.off = 0
	a.err = nil
}

// Rewind moves the read cursor back to the start.
func (a *Archive) Rewind() {
	a.off = 0
	a.err = nil
}

// Len returns the number of serialized bytes.
func (a *Archive) Len() int { return len(a.data) }

// Bytes returns the serialized bytes.
func (a *Archive) Bytes() []byte { return a.data }

// Refs returns the referenced-object table.
func (a *Archive) Refs() []string { return a.refs }

// Err returns the first read error.
func (a *Archive) Err() error { return a.err }

func (a *Archive) WriteUint32(v uint32) {
	a.data = binary.LittleEndian.AppendUint32(a.data, v)
}

func (a *Archive) WriteInt32(v int32) { a.WriteUint32(uint32(v)) }

// WriteInt writes v as a 32-bit value.
func (a *Archive) WriteInt(v int) { a.WriteUint32(uint32(int32(v))) }

func (a *Archive) WriteFloat64(v float64) {
	a.data = binary.LittleEndian.AppendUint64(a.data, gomath.Float64bits(v))
}

func (a *Archive) WriteBool(v bool) {
	if v {
		a.data = append(a.data, 1)
	} else {
		a.data = append(a.data, 0)
	}
}

func (a *Archive) WriteString(s string) {
	a.WriteUint32(uint32(len(s)))
	a.data = append(a.data, s...)
}

func (a *Archive) WriteVec3(v math.Vec3) {
	a.WriteFloat64(v.X)
	a.WriteFloat64(v.Y)
	a.WriteFloat64(v.Z)
}

// WriteRef writes a reference to the named object, adding the name to the
// table on first use. An empty name is a nil reference.
func (a *Archive) WriteRef(name string) {
	if name == "" {
		a.WriteInt32(-1)
		return
	}
	for i, r := range a.refs {
		if r == name {
			a.WriteInt32(int32(i))
			return
		}
	}
	a.refs = append(a.refs, name)
	a.WriteInt32(int32(len(a.refs) - 1))
}

func (a *Archive) take(n int, what string) []byte {
	if a.err != nil {
		return nil
	}
	if a.off+n > len(a.data) {
		a.err = fmt.Errorf("%w: reading %s at %d", ErrTruncated, what, a.off)
		return nil
	}
	b := a.data[a.off : a.off+n]
	a.off += n
	return b
}

func (a *Archive) ReadUint32() uint32 {
	b := a.take(4, "uint32")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (a *Archive) ReadInt32() int32 { return int32(a.ReadUint32()) }

func (a *Archive) ReadInt() int { return int(a.ReadInt32()) }

func (a *Archive) ReadFloat64() float64 {
	b := a.take(8, "float64")
	if b == nil {
		return 0
	}
	return gomath.Float64frombits(binary.LittleEndian.Uint64(b))
}

func (a *Archive) ReadBool() bool {
	b := a.take(1, "bool")
	return b != nil && b[0] != 0
}

func (a *Archive) ReadString() string {
	n := int(a.ReadUint32())
	b := a.take(n, "string")
	return string(b)
}

func (a *Archive) ReadVec3() math.Vec3 {
	return math.Vec3{X: a.ReadFloat64(), Y: a.ReadFloat64(), Z: a.ReadFloat64()}
}

// ReadRef returns the name written by WriteRef.
func (a *Archive) ReadRef() string {
	i := a.ReadInt32()
	if i < 0 || a.err != nil {
		return ""
	}
	if int(i) >= len(a.refs) {
		a.err = fmt.Errorf("%w: %d of %d", ErrInvalidRef, i, len(a.refs))
		return ""
	}
	return a.refs[i]
}
