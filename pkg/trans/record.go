package trans

import "fmt"

// Object is state a transaction can snapshot as a whole.
type Object interface {
	TransactionKey() string
	SaveState(ar *Archive)
	LoadState(ar *Archive) error
}

// Array is an object whose element ranges can be captured without
// snapshotting the rest of it. Elements have a fixed serialized stride.
type Array interface {
	TransactionKey() string
	Len() int
	SaveElements(ar *Archive, index, count int)
	LoadElements(ar *Archive, index, count int) error
	InsertElements(ar *Archive, index, count int) error
	RemoveElements(index, count int)
}

// Oper is the mutation an array record captures.
type Oper int

// Array operations.
const (
	OperModify Oper = iota
	OperAdd
	OperRemove
)

func (o Oper) String() string {
	switch o {
	case OperAdd:
		return "add"
	case OperRemove:
		return "remove"
	default:
		return "modify"
	}
}

// Record is one captured object or array range.
type Record struct {
	Key      string
	Object   Object
	Array    Array
	Index    int
	Count    int
	Oper     Oper
	RefCount int

	data *Archive
	flip *Archive
}

func recordKey(key string, index, count int, oper Oper) string {
	return fmt.Sprintf("%s[%d+%d]%s", key, index, count, oper)
}

func newObjectRecord(obj Object) *Record {
	r := &Record{Key: obj.TransactionKey(), Object: obj, RefCount: 1, data: &Archive{}, flip: &Archive{}}
	obj.SaveState(r.data)
	return r
}

func newArrayRecord(arr Array, index, count int, oper Oper) *Record {
	r := &Record{
		Key:      recordKey(arr.TransactionKey(), index, count, oper),
		Array:    arr,
		Index:    index,
		Count:    count,
		Oper:     oper,
		RefCount: 1,
		data:     &Archive{},
		flip:     &Archive{},
	}
	switch oper {
	case OperModify, OperRemove:
		arr.SaveElements(r.data, index, count)
	}
	return r
}

// Size returns the bytes held by the record's snapshot.
func (r *Record) Size() int { return r.data.Len() }

// restore swaps the live state with the snapshot. Calling it twice leaves
// both unchanged, which is what makes Undo followed by Redo exact.
func (r *Record) restore() error {
	if r.Object != nil {
		r.flip.Reset()
		r.Object.SaveState(r.flip)
		r.data.Rewind()
		if err := r.Object.LoadState(r.data); err != nil {
			return fmt.Errorf("restoring %s: %w", r.Key, err)
		}
		r.data, r.flip = r.flip, r.data
		return nil
	}

	switch r.Oper {
	case OperAdd:
		// The range is live; stash it and take it out.
		r.data.Reset()
		r.Array.SaveElements(r.data, r.Index, r.Count)
		r.Array.RemoveElements(r.Index, r.Count)
		r.Oper = OperRemove
	case OperRemove:
		r.data.Rewind()
		if err := r.Array.InsertElements(r.data, r.Index, r.Count); err != nil {
			return fmt.Errorf("restoring %s: %w", r.Key, err)
		}
		r.Oper = OperAdd
	default:
		r.flip.Reset()
		r.Array.SaveElements(r.flip, r.Index, r.Count)
		r.data.Rewind()
		if err := r.Array.LoadElements(r.data, r.Index, r.Count); err != nil {
			return fmt.Errorf("restoring %s: %w", r.Key, err)
		}
		r.data, r.flip = r.flip, r.data
	}
	return nil
}
