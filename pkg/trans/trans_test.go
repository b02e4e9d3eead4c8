package trans

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Faultbox/midgard-csg/pkg/math"
)

// brush is a small object with a scalar part and an element array.
type brush struct {
	name   string
	owner  string
	origin math.Vec3
	points []math.Vec3
}

func (b *brush) TransactionKey() string { return "brush:" + b.name }

func (b *brush) SaveState(ar *Archive) {
	ar.WriteRef(b.owner)
	ar.WriteVec3(b.origin)
	ar.WriteInt(len(b.points))
	for _, p := range b.points {
		ar.WriteVec3(p)
	}
}

func (b *brush) LoadState(ar *Archive) error {
	b.owner = ar.ReadRef()
	b.origin = ar.ReadVec3()
	n := ar.ReadInt()
	b.points = b.points[:0]
	for i := 0; i < n; i++ {
		b.points = append(b.points, ar.ReadVec3())
	}
	return ar.Err()
}

// pointArray exposes brush.points as an array.
type pointArray struct{ b *brush }

func (a pointArray) TransactionKey() string { return a.b.TransactionKey() + ".points" }
func (a pointArray) Len() int               { return len(a.b.points) }

func (a pointArray) SaveElements(ar *Archive, index, count int) {
	for _, p := range a.b.points[index : index+count] {
		ar.WriteVec3(p)
	}
}

func (a pointArray) LoadElements(ar *Archive, index, count int) error {
	for i := 0; i < count; i++ {
		a.b.points[index+i] = ar.ReadVec3()
	}
	return ar.Err()
}

func (a pointArray) InsertElements(ar *Archive, index, count int) error {
	ins := make([]math.Vec3, count)
	for i := range ins {
		ins[i] = ar.ReadVec3()
	}
	pts := append([]math.Vec3(nil), a.b.points[:index]...)
	pts = append(pts, ins...)
	a.b.points = append(pts, a.b.points[index:]...)
	return ar.Err()
}

func (a pointArray) RemoveElements(index, count int) {
	a.b.points = append(a.b.points[:index], a.b.points[index+count:]...)
}

func newBrush() *brush {
	return &brush{name: "b0", owner: "level", points: []math.Vec3{{X: 1}, {Y: 1}, {Z: 1}}}
}

func snapshot(b *brush) brush {
	c := *b
	c.points = append([]math.Vec3(nil), b.points...)
	return c
}

func TestModifyWithoutTransaction(t *testing.T) {
	tr := NewTransactor(0, nil)
	if err := tr.Modify(newBrush()); !errors.Is(err, ErrNoTransaction) {
		t.Errorf("Modify() error = %v, want ErrNoTransaction", err)
	}
	if err := tr.ModifyArray(pointArray{newBrush()}, 0, 1, OperModify); !errors.Is(err, ErrNoTransaction) {
		t.Errorf("ModifyArray() error = %v, want ErrNoTransaction", err)
	}
}

func TestUndoRedoWholeObject(t *testing.T) {
	tr := NewTransactor(0, nil)
	b := newBrush()
	before := snapshot(b)

	s := tr.Begin("move")
	if err := tr.Modify(b); err != nil {
		t.Fatal(err)
	}
	b.origin = math.Vec3{X: 64}
	b.points = append(b.points, math.Vec3{X: 9})
	b.owner = "other"
	// A second modification shares the record.
	if err := tr.Modify(b); err != nil {
		t.Fatal(err)
	}
	s.End()
	after := snapshot(b)

	if tr.RecordCount() != 1 || tr.queue[0].Records[0].RefCount != 2 {
		t.Fatalf("records = %d, want 1 with refcount 2", tr.RecordCount())
	}

	title, err := tr.Undo()
	if err != nil || title != "move" {
		t.Fatalf("Undo() = %q, %v", title, err)
	}
	if !reflect.DeepEqual(snapshot(b), before) {
		t.Errorf("after undo = %+v, want %+v", *b, before)
	}
	if _, err := tr.Redo(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(snapshot(b), after) {
		t.Errorf("after redo = %+v, want %+v", *b, after)
	}
}

func TestUndoRedoRepeatedIsStable(t *testing.T) {
	tr := NewTransactor(0, nil)
	b := newBrush()
	s := tr.Begin("edit")
	_ = tr.Modify(b)
	b.origin = math.Vec3{Z: 5}
	s.End()
	after := snapshot(b)
	count := tr.RecordCount()
	size := tr.queue[0].Records[0].Size()

	for i := 0; i < 10; i++ {
		if _, err := tr.Undo(); err != nil {
			t.Fatal(err)
		}
		if _, err := tr.Redo(); err != nil {
			t.Fatal(err)
		}
	}
	if !reflect.DeepEqual(snapshot(b), after) {
		t.Errorf("state drifted: %+v", *b)
	}
	if tr.RecordCount() != count {
		t.Errorf("records = %d, want %d", tr.RecordCount(), count)
	}
	if got := tr.queue[0].Records[0].Size(); got != size {
		t.Errorf("snapshot size = %d, want %d", got, size)
	}
}

func TestArrayRanges(t *testing.T) {
	tests := []struct {
		name   string
		index  int
		count  int
		oper   Oper
		mutate func(b *brush)
	}{
		{
			name: "modify", index: 1, count: 2, oper: OperModify,
			mutate: func(b *brush) { b.points[1], b.points[2] = math.Vec3{X: 7}, math.Vec3{X: 8} },
		},
		{
			name: "add", index: 1, count: 2, oper: OperAdd,
			mutate: func(b *brush) {
				b.points = append(b.points[:1], append([]math.Vec3{{X: 5}, {X: 6}}, b.points[1:]...)...)
			},
		},
		{
			name: "remove", index: 0, count: 2, oper: OperRemove,
			mutate: func(b *brush) { b.points = append([]math.Vec3(nil), b.points[2:]...) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTransactor(0, nil)
			b := newBrush()
			before := snapshot(b)

			s := tr.Begin(tt.name)
			if err := tr.ModifyArray(pointArray{b}, tt.index, tt.count, tt.oper); err != nil {
				t.Fatal(err)
			}
			tt.mutate(b)
			s.End()
			after := snapshot(b)

			for i := 0; i < 3; i++ {
				if _, err := tr.Undo(); err != nil {
					t.Fatal(err)
				}
				if !reflect.DeepEqual(b.points, before.points) {
					t.Fatalf("undo %d: points = %v, want %v", i, b.points, before.points)
				}
				if _, err := tr.Redo(); err != nil {
					t.Fatal(err)
				}
				if !reflect.DeepEqual(b.points, after.points) {
					t.Fatalf("redo %d: points = %v, want %v", i, b.points, after.points)
				}
			}
		})
	}
}

func TestArrayRangeOutOfBounds(t *testing.T) {
	tr := NewTransactor(0, nil)
	s := tr.Begin("bad")
	defer s.End()
	if err := tr.ModifyArray(pointArray{newBrush()}, 2, 5, OperModify); err == nil {
		t.Error("expected a range error")
	}
}

func TestNestedScopes(t *testing.T) {
	tr := NewTransactor(0, nil)
	b := newBrush()
	outer := tr.Begin("outer")
	inner := tr.Begin("inner")
	_ = tr.Modify(b)
	b.origin = math.Vec3{X: 1}
	inner.End()
	if tr.Len() != 0 || !tr.Active() {
		t.Fatal("inner End committed the transaction")
	}
	outer.End()
	if tr.Len() != 1 || tr.Titles()[0] != "outer" {
		t.Errorf("titles = %v, want [outer]", tr.Titles())
	}
}

func TestEmptyTransactionIsDropped(t *testing.T) {
	tr := NewTransactor(0, nil)
	tr.Begin("noop").End()
	if tr.Len() != 0 {
		t.Errorf("len = %d, want 0", tr.Len())
	}
}

func TestCancelRestores(t *testing.T) {
	tr := NewTransactor(0, nil)
	b := newBrush()
	before := snapshot(b)
	s := tr.Begin("drag")
	_ = tr.Modify(b)
	b.origin = math.Vec3{Y: 3}
	if err := s.Cancel(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(snapshot(b), before) {
		t.Errorf("cancel left %+v", *b)
	}
	if tr.Len() != 0 || tr.Active() {
		t.Error("cancelled transaction was kept")
	}
}

func TestNestedCancel(t *testing.T) {
	tr := NewTransactor(0, nil)
	b := newBrush()
	before := snapshot(b)

	outer := tr.Begin("outer")
	_ = tr.Modify(b)
	b.origin = math.Vec3{Z: 2}
	inner := tr.Begin("inner")
	b.points[0] = math.Vec3{X: 9}
	if err := inner.Cancel(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(snapshot(b), before) {
		t.Errorf("cancel left %+v", *b)
	}
	if err := tr.Modify(b); !errors.Is(err, ErrNoTransaction) {
		t.Errorf("Modify after cancel = %v, want ErrNoTransaction", err)
	}

	outer.End()
	if tr.Len() != 0 || tr.Active() {
		t.Fatalf("len = %d, active = %v after ending the cancelled outer scope", tr.Len(), tr.Active())
	}
	if err := outer.Cancel(); err != nil {
		t.Errorf("second Cancel = %v", err)
	}

	// The transactor is usable again.
	s := tr.Begin("next")
	_ = tr.Modify(b)
	b.origin = math.Vec3{X: 4}
	s.End()
	if got := tr.Titles(); len(got) != 1 || got[0] != "next" {
		t.Errorf("titles = %v, want [next]", got)
	}
}

func TestMaxDepthDropsOldest(t *testing.T) {
	tr := NewTransactor(2, nil)
	b := newBrush()
	for _, title := range []string{"a", "b", "c"} {
		s := tr.Begin(title)
		_ = tr.Modify(b)
		b.origin.X++
		s.End()
	}
	if got := tr.Titles(); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("titles = %v, want [b c]", got)
	}
	_, _ = tr.Undo()
	_, _ = tr.Undo()
	if _, err := tr.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("third Undo() error = %v, want ErrNothingToUndo", err)
	}
	if b.origin.X != 1 {
		t.Errorf("origin.X = %v, want 1", b.origin.X)
	}
}

func TestNewTransactionDropsRedo(t *testing.T) {
	tr := NewTransactor(0, nil)
	b := newBrush()
	for _, title := range []string{"a", "b"} {
		s := tr.Begin(title)
		_ = tr.Modify(b)
		b.origin.X++
		s.End()
	}
	_, _ = tr.Undo()
	s := tr.Begin("c")
	_ = tr.Modify(b)
	s.End()
	if tr.CanRedo() {
		t.Error("redo survived a new transaction")
	}
	if got := tr.Titles(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("titles = %v, want [a c]", got)
	}
}

func TestUndoWhileActive(t *testing.T) {
	tr := NewTransactor(0, nil)
	s := tr.Begin("open")
	defer s.End()
	if _, err := tr.Undo(); !errors.Is(err, ErrTransactionActive) {
		t.Errorf("Undo() error = %v, want ErrTransactionActive", err)
	}
}

func TestArchiveTruncated(t *testing.T) {
	var ar Archive
	ar.WriteUint32(7)
	ar.Rewind()
	_ = ar.ReadUint32()
	_ = ar.ReadFloat64()
	if !errors.Is(ar.Err(), ErrTruncated) {
		t.Errorf("Err() = %v, want ErrTruncated", ar.Err())
	}
}
