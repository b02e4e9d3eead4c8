package trans

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultMaxDepth is the undo depth used when none is configured.
const DefaultMaxDepth = 16

// Transaction errors.
var (
	ErrNoTransaction     = errors.New("no transaction is open")
	ErrTransactionActive = errors.New("a transaction is still open")
	ErrNothingToUndo     = errors.New("nothing to undo")
	ErrNothingToRedo     = errors.New("nothing to redo")
)

// Transaction is one undoable step.
type Transaction struct {
	Title   string
	Records []*Record
	index   map[string]*Record
}

func newTransaction(title string) *Transaction {
	return &Transaction{Title: title, index: make(map[string]*Record)}
}

func (t *Transaction) add(r *Record) {
	t.Records = append(t.Records, r)
	t.index[r.Key] = r
}

// apply restores every record, newest first when undoing. A failing record
// does not stop the others.
func (t *Transaction) apply(undo bool) error {
	var errs error
	n := len(t.Records)
	for i := 0; i < n; i++ {
		k := i
		if undo {
			k = n - 1 - i
		}
		errs = multierr.Append(errs, t.Records[k].restore())
	}
	return errs
}

// Transactor owns the undo queue. Transactions nest; only the outermost
// Begin/End pair produces a queue entry.
type Transactor struct {
	Log      *zap.Logger
	MaxDepth int

	queue     []*Transaction
	undoCount int
	active    *Transaction
	depth     int
	// cancelled is set while enclosing scopes of a cancelled one are open.
	cancelled bool
}

// NewTransactor returns an empty queue holding at most maxDepth
// transactions, DefaultMaxDepth when maxDepth is not positive.
func NewTransactor(maxDepth int, log *zap.Logger) *Transactor {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Transactor{Log: log, MaxDepth: maxDepth}
}

// Scope is an open transaction. It must be ended or cancelled exactly once.
type Scope struct {
	t    *Transactor
	done bool
}

// Begin opens a transaction, or nests into the open one.
func (t *Transactor) Begin(title string) *Scope {
	if t.depth == 0 {
		t.active = newTransaction(title)
	}
	t.depth++
	return &Scope{t: t}
}

// Active reports whether a transaction is open.
func (t *Transactor) Active() bool { return t.depth > 0 }

// End closes the scope. Closing the outermost scope queues the transaction
// unless it recorded nothing, dropping any redo history and the oldest
// entries beyond MaxDepth.
func (s *Scope) End() {
	if s.done {
		return
	}
	s.done = true
	t := s.t
	if t.depth > 0 {
		t.depth--
	}
	if t.depth > 0 {
		return
	}
	tr := t.active
	t.active = nil
	if t.cancelled {
		t.cancelled = false
		return
	}
	if tr == nil || len(tr.Records) == 0 {
		return
	}
	t.queue = t.queue[:len(t.queue)-t.undoCount]
	t.undoCount = 0
	t.queue = append(t.queue, tr)
	if over := len(t.queue) - t.MaxDepth; over > 0 {
		t.queue = append(t.queue[:0], t.queue[over:]...)
	}
	t.Log.Debug("trans: committed", zap.String("title", tr.Title), zap.Int("records", len(tr.Records)))
}

// Cancel rolls back everything recorded in the open transaction and
// discards it. Cancelling a nested scope cancels the outermost one; the
// enclosing scopes must still be ended, and ending them commits nothing.
func (s *Scope) Cancel() error {
	if s.done {
		return nil
	}
	s.done = true
	t := s.t
	if t.depth > 0 {
		t.depth--
	}
	t.cancelled = t.depth > 0
	tr := t.active
	t.active = nil
	if tr == nil {
		return nil
	}
	t.Log.Debug("trans: cancelled", zap.String("title", tr.Title))
	return tr.apply(true)
}

// Modify snapshots obj into the open transaction the first time it is
// modified; later calls only bump the record's reference count.
func (t *Transactor) Modify(obj Object) error {
	if t.active == nil {
		return ErrNoTransaction
	}
	if r, ok := t.active.index[obj.TransactionKey()]; ok {
		r.RefCount++
		return nil
	}
	t.active.add(newObjectRecord(obj))
	return nil
}

// ModifyArray records a mutation of count elements at index. It must be
// called before the mutation. A range already covered by a whole-object
// snapshot of the same key is not recorded again.
func (t *Transactor) ModifyArray(arr Array, index, count int, oper Oper) error {
	if t.active == nil {
		return ErrNoTransaction
	}
	if index < 0 || count < 0 || (oper != OperAdd && index+count > arr.Len()) {
		return fmt.Errorf("array range %d+%d out of %d", index, count, arr.Len())
	}
	if r, ok := t.active.index[arr.TransactionKey()]; ok {
		r.RefCount++
		return nil
	}
	key := recordKey(arr.TransactionKey(), index, count, oper)
	if r, ok := t.active.index[key]; ok {
		r.RefCount++
		return nil
	}
	t.active.add(newArrayRecord(arr, index, count, oper))
	return nil
}

// CanUndo reports whether Undo has something to do.
func (t *Transactor) CanUndo() bool { return len(t.queue)-t.undoCount > 0 }

// CanRedo reports whether Redo has something to do.
func (t *Transactor) CanRedo() bool { return t.undoCount > 0 }

// Undo reverts the newest applied transaction and returns its title.
func (t *Transactor) Undo() (string, error) {
	if t.Active() {
		return "", ErrTransactionActive
	}
	if !t.CanUndo() {
		return "", ErrNothingToUndo
	}
	tr := t.queue[len(t.queue)-1-t.undoCount]
	t.undoCount++
	t.Log.Debug("trans: undo", zap.String("title", tr.Title))
	return tr.Title, tr.apply(true)
}

// Redo reapplies the oldest undone transaction and returns its title.
func (t *Transactor) Redo() (string, error) {
	if t.Active() {
		return "", ErrTransactionActive
	}
	if !t.CanRedo() {
		return "", ErrNothingToRedo
	}
	tr := t.queue[len(t.queue)-t.undoCount]
	t.undoCount--
	t.Log.Debug("trans: redo", zap.String("title", tr.Title))
	return tr.Title, tr.apply(false)
}

// Len returns the number of queued transactions, undone ones included.
func (t *Transactor) Len() int { return len(t.queue) }

// RecordCount returns the number of records held by the queue.
func (t *Transactor) RecordCount() int {
	n := 0
	for _, tr := range t.queue {
		n += len(tr.Records)
	}
	return n
}

// Titles returns the queued titles, oldest first.
func (t *Transactor) Titles() []string {
	out := make([]string, len(t.queue))
	for i, tr := range t.queue {
		out[i] = tr.Title
	}
	return out
}

// Reset drops the whole queue. An open transaction is kept.
func (t *Transactor) Reset() {
	t.queue = nil
	t.undoCount = 0
}
