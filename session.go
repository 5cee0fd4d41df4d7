package sheetcrud

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// State is the navigation state of a session.
type State int

const (
	StateList State = iota
	StateForm
	StateConfirm
)

func (s State) String() string {
	switch s {
	case StateList:
		return "list"
	case StateForm:
		return "form"
	case StateConfirm:
		return "confirm"
	default:
		return "unknown"
	}
}

// Navigation is a snapshot of the navigation state and its markers.
type Navigation struct {
	State         State
	Editing       *Record // nil while creating
	PendingDelete string  // "" when no delete awaits confirmation
}

// Session holds the working set and navigation state of one user session.
// Each user action maps to one method; mutating actions persist the whole
// working set through the store before returning.
type Session struct {
	store   *Store
	variant *Variant
	set     *WorkingSet
	logger  *log.Logger
	newID   func() string
	now     func() time.Time

	mu            sync.Mutex
	state         State
	editing       *Record
	draft         Draft
	confirm       Draft
	pendingDelete string
	dirty         bool
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithIDGenerator overrides the record id generator
func WithIDGenerator(fn func() string) SessionOption {
	return func(s *Session) { s.newID = fn }
}

// WithClock overrides the time source used for managed timestamps
func WithClock(fn func() time.Time) SessionOption {
	return func(s *Session) { s.now = fn }
}

// WithLogger sets the session logger
func WithLogger(logger *log.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// NewSession creates a session over the store for the given variant. The
// session starts in the list state with an empty working set; call Start to
// load it.
func NewSession(store *Store, variant *Variant, opts ...SessionOption) *Session {
	s := &Session{
		store:   store,
		variant: variant,
		set:     NewWorkingSet(),
		logger:  log.Default(),
		newID:   NewID,
		now:     time.Now,
		state:   StateList,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.set.SetSchema(variant.Columns())
	return s
}

// Start loads the working set from the store. It is called once per session;
// the store is never re-read afterwards. On failure the working set stays
// empty and the *ReadError is returned for display.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	s.set.Load(nil, s.variant.Columns(), s.newID)

	records, schema, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error("could not load records", "err", err)
		return err
	}

	for _, r := range records {
		if r != nil && r.Values != nil {
			s.variant.Normalize(r.Values)
		}
	}
	assigned := s.set.Load(records, MergeSchemas(append(s.variant.Columns(), schema...), schema), s.newID)
	if assigned > 0 {
		// 採番した行は次回の保存で書き戻される
		s.logger.Warn("assigned ids to rows without a unique id", "count", assigned)
		s.dirty = true
	}
	s.logger.Info("session started", "records", s.set.Len(), "variant", s.variant.Name)
	return nil
}

func (s *Session) resetLocked() {
	s.state = StateList
	s.editing = nil
	s.draft = nil
	s.confirm = nil
	s.pendingDelete = ""
	s.dirty = false
}

// New opens an empty form for a new record
func (s *Session) New() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateList {
		return transitionError("new", s.state)
	}
	s.state = StateForm
	s.editing = nil
	s.draft = Draft{}
	s.confirm = nil
	s.pendingDelete = ""
	return nil
}

// Edit opens the form pre-filled with the record's values
func (s *Session) Edit(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateList {
		return transitionError("edit", s.state)
	}
	record, err := s.set.Get(id)
	if err != nil {
		return err
	}
	s.state = StateForm
	s.editing = record
	s.draft = record.Draft()
	s.confirm = nil
	s.pendingDelete = ""
	return nil
}

// RequestDelete marks a record as awaiting delete confirmation
func (s *Session) RequestDelete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateList {
		return transitionError("delete", s.state)
	}
	if !s.set.Contains(id) {
		return ErrRecordNotFound
	}
	s.pendingDelete = id
	return nil
}

// ConfirmDelete removes the pending record and saves the working set. A
// *WriteError leaves the record removed in memory.
func (s *Session) ConfirmDelete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateList {
		return transitionError("confirm delete", s.state)
	}
	if s.pendingDelete == "" {
		return ErrNoPendingDelete
	}

	id := s.pendingDelete
	s.pendingDelete = ""
	if err := s.set.Delete(id); err != nil {
		return err
	}
	s.logger.Info("deleted record", "id", id)
	return s.saveLocked(ctx)
}

// CancelDelete discards the pending delete without mutation
func (s *Session) CancelDelete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingDelete == "" {
		return ErrNoPendingDelete
	}
	s.pendingDelete = ""
	return nil
}

// Submit validates the draft and moves to the confirm state. On a
// *ValidationError the session stays in the form state unchanged.
func (s *Session) Submit(draft Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateForm {
		return transitionError("submit", s.state)
	}
	if err := s.variant.Check(draft); err != nil {
		return err
	}
	s.state = StateConfirm
	s.confirm = draft.Clone()
	return nil
}

// SubmitInputs parses raw form input with the variant and submits it
func (s *Session) SubmitInputs(inputs map[string]string) error {
	if state := s.State(); state != StateForm {
		return transitionError("submit", state)
	}
	draft, err := s.variant.Parse(inputs)
	if err != nil {
		return err
	}
	return s.Submit(draft)
}

// GoBack returns from confirmation to the form, keeping the edit marker
func (s *Session) GoBack() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConfirm {
		return transitionError("go back", s.state)
	}
	s.state = StateForm
	if s.editing != nil {
		s.draft = s.editing.Merge(s.confirm).Draft()
	} else {
		s.draft = s.confirm.Clone()
	}
	return nil
}

// Commit applies the confirmed data: it replaces the edited record with the
// merge of it and the confirm data, or appends a new record with a fresh id.
// The working set is saved either way and the session returns to the list.
// It returns the committed record; a *WriteError still returns it.
func (s *Session) Commit(ctx context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConfirm {
		return nil, transitionError("commit", s.state)
	}

	creating := s.editing == nil
	data := s.confirm
	if s.variant.Stamp != nil {
		data = s.variant.Stamp(data, creating, s.now())
	}

	var committed *Record
	if creating {
		committed = (&Record{ID: s.uniqueIDLocked(), Values: map[string]interface{}{}}).Merge(data)
		if err := s.set.Append(committed); err != nil {
			return nil, err
		}
		s.logger.Info("created record", "id", committed.ID)
	} else {
		current, err := s.set.Get(s.editing.ID)
		if err != nil {
			return nil, err
		}
		committed = current.Merge(data)
		if err := s.set.Replace(committed); err != nil {
			return nil, err
		}
		s.logger.Info("updated record", "id", committed.ID)
	}

	s.state = StateList
	s.editing = nil
	s.draft = nil
	s.confirm = nil
	return committed.Clone(), s.saveLocked(ctx)
}

func (s *Session) uniqueIDLocked() string {
	id := s.newID()
	for s.set.Contains(id) || id == "" {
		id = s.newID()
	}
	return id
}

// Cancel abandons the form or confirmation and returns to the list
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateList {
		return transitionError("cancel", s.state)
	}
	s.state = StateList
	s.editing = nil
	s.draft = nil
	s.confirm = nil
	return nil
}

// Flush saves the current working set, e.g. after an earlier *WriteError
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(ctx)
}

func (s *Session) saveLocked(ctx context.Context) error {
	s.dirty = true
	if err := s.store.Save(ctx, s.set.All(), s.set.Schema()); err != nil {
		// メモリ上の変更は巻き戻さない
		s.logger.Error("could not save records", "err", err)
		return err
	}
	s.dirty = false
	return nil
}

// State returns the current navigation state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Navigation returns a snapshot of the navigation state and markers
func (s *Session) Navigation() Navigation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Navigation{
		State:         s.state,
		Editing:       s.editing.Clone(),
		PendingDelete: s.pendingDelete,
	}
}

// Draft returns the values the form starts from
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// ConfirmData returns the draft awaiting confirmation
func (s *Session) ConfirmData() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirm.Clone()
}

// Editing returns the record being edited, or nil while creating
func (s *Session) Editing() *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing.Clone()
}

// PendingDelete returns the id awaiting delete confirmation
func (s *Session) PendingDelete() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingDelete
}

// Dirty reports whether the working set differs from the last successful save
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Records returns copies of the working set in display order
func (s *Session) Records() []*Record {
	return s.set.All()
}

// Record returns a copy of one record
func (s *Session) Record(id string) (*Record, error) {
	return s.set.Get(id)
}

// Query filters the working set
func (s *Session) Query(q Query) ([]*Record, error) {
	return s.set.Query(q)
}

// Schema returns the value columns in persisted order
func (s *Session) Schema() []string {
	return s.set.Schema()
}

// Variant returns the session's field set
func (s *Session) Variant() *Variant {
	return s.variant
}

// IsValidation reports whether err is a *ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
