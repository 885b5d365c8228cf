package issue

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Op names a store mutation.
type Op string

// Mutations reported to an Observer.
const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// Change describes one successful mutation.
type Change struct {
	Op      Op
	Project string
	ID      string

	// Issue is a snapshot after the change. Nil for deletes.
	Issue *Issue

	// Seq numbers mutations from 1 in the order they were applied.
	Seq uint64
}

// Observer is notified after each successful mutation, outside the store
// lock. Calls are serialized in Seq order. An observer may read the store
// but must not mutate it.
type Observer interface {
	IssueChanged(ctx context.Context, change Change)
}

// ProjectSummary counts the issues of one project.
type ProjectSummary struct {
	Name   string `json:"name"`
	Issues int    `json:"issues"`
	Open   int    `json:"open"`
}

// Store holds issues in memory, grouped by project in insertion order.
// It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	projects map[string][]*Issue

	now      func() time.Time
	ids      IDGenerator
	observer Observer
	metrics  *Metrics

	seq        uint64 // guarded by mu
	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	notified   uint64 // guarded by notifyMu
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for timestamps and IDs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the ID generator. Defaults to TimestampIDs.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithObserver registers an observer for mutations.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// WithMetrics enables operation metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		projects: make(map[string][]*Issue),
		now:      time.Now,
		ids:      &TimestampIDs{},
	}
	s.notifyCond = sync.NewCond(&s.notifyMu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates in and appends a new open issue to project.
func (s *Store) Create(ctx context.Context, project string, in NewIssue) (*Issue, error) {
	if in.Title == "" || in.Text == "" || in.CreatedBy == "" {
		err := newError(ErrValidation, MsgRequiredFieldsMissing, "")
		s.metrics.recordOperation(ctx, "create", err)
		return nil, err
	}

	s.mu.Lock()
	now := s.now()
	iss := &Issue{
		ID:         s.ids.NewID(now),
		Title:      in.Title,
		Text:       in.Text,
		CreatedBy:  in.CreatedBy,
		AssignedTo: in.AssignedTo,
		StatusText: in.StatusText,
		CreatedAt:  now,
		UpdatedAt:  now,
		Open:       true,
	}
	s.projects[project] = append(s.projects[project], iss)
	created := iss.Clone()
	change := Change{Op: OpCreated, Project: project, ID: iss.ID, Issue: iss.Clone(), Seq: s.nextSeq()}
	s.mu.Unlock()

	s.metrics.recordOperation(ctx, "create", nil)
	s.metrics.adjustStored(ctx, project, 1)
	s.notify(ctx, change)
	return created, nil
}

// List returns copies of the project's issues matching every filter, in
// creation order. It never returns nil.
func (s *Store) List(ctx context.Context, project string, filters Filters) []Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issues := s.projects[project]
	out := make([]Issue, 0, len(issues))
	for _, iss := range issues {
		if matches(iss, filters) {
			out = append(out, *iss.Clone())
		}
	}
	s.metrics.recordOperation(ctx, "list", nil)
	return out
}

// Get returns a copy of one issue.
func (s *Store) Get(ctx context.Context, project, id string) (*Issue, error) {
	if id == "" {
		return nil, newError(ErrMissingID, MsgMissingID, "")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx := s.indexOf(project, id); idx >= 0 {
		return s.projects[project][idx].Clone(), nil
	}
	return nil, newError(ErrNotFound, MsgCouldNotFind, id)
}

// Update merges fields into the issue with the given ID and refreshes its
// updated time. The merge is all or nothing.
func (s *Store) Update(ctx context.Context, project, id string, fields Fields) (Result, error) {
	res, change, err := s.update(project, id, fields)
	s.metrics.recordOperation(ctx, "update", err)
	if err != nil {
		return Result{}, err
	}
	s.notify(ctx, change)
	return res, nil
}

func (s *Store) update(project, id string, fields Fields) (Result, Change, error) {
	if id == "" {
		return Result{}, Change{}, newError(ErrMissingID, MsgMissingID, "")
	}
	if updatableKeys(fields) == 0 {
		return Result{}, Change{}, newError(ErrNoUpdateFields, MsgNoUpdateFields, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(project, id)
	if idx < 0 {
		return Result{}, Change{}, newError(ErrNotFound, MsgCouldNotUpdate, id)
	}

	current := s.projects[project][idx]
	merged := current.Clone()
	if err := applyFields(merged, fields); err != nil {
		return Result{}, Change{}, newError(ErrValidation, err.Error(), id)
	}
	if merged.Title == "" || merged.Text == "" || merged.CreatedBy == "" {
		return Result{}, Change{}, newError(ErrValidation, MsgRequiredFieldsMissing, id)
	}

	merged.UpdatedAt = s.now()
	if merged.UpdatedAt.Before(merged.CreatedAt) {
		merged.UpdatedAt = merged.CreatedAt
	}
	*current = *merged

	change := Change{Op: OpUpdated, Project: project, ID: id, Issue: merged.Clone(), Seq: s.nextSeq()}
	return Result{Result: ResultUpdated, ID: id}, change, nil
}

// Delete removes the first issue with the given ID from project.
func (s *Store) Delete(ctx context.Context, project, id string) (Result, error) {
	res, change, err := s.delete(project, id)
	s.metrics.recordOperation(ctx, "delete", err)
	if err != nil {
		return Result{}, err
	}
	s.metrics.adjustStored(ctx, project, -1)
	s.notify(ctx, change)
	return res, nil
}

func (s *Store) delete(project, id string) (Result, Change, error) {
	if id == "" {
		return Result{}, Change{}, newError(ErrMissingID, MsgMissingID, "")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(project, id)
	if idx < 0 {
		return Result{}, Change{}, newError(ErrNotFound, MsgCouldNotDelete, id)
	}

	issues := s.projects[project]
	copy(issues[idx:], issues[idx+1:])
	issues[len(issues)-1] = nil
	s.projects[project] = issues[:len(issues)-1]

	change := Change{Op: OpDeleted, Project: project, ID: id, Seq: s.nextSeq()}
	return Result{Result: ResultDeleted, ID: id}, change, nil
}

// Projects summarizes every known project, sorted by name.
func (s *Store) Projects(ctx context.Context) []ProjectSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ProjectSummary, 0, len(s.projects))
	for name, issues := range s.projects {
		sum := ProjectSummary{Name: name, Issues: len(issues)}
		for _, iss := range issues {
			if iss.Open {
				sum.Open++
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// indexOf returns the position of id within project, or -1.
// Callers hold s.mu.
func (s *Store) indexOf(project, id string) int {
	for i, iss := range s.projects[project] {
		if iss.ID == id {
			return i
		}
	}
	return -1
}

// nextSeq numbers a mutation for its observer. Callers hold s.mu.
func (s *Store) nextSeq() uint64 {
	if s.observer == nil {
		return 0
	}
	s.seq++
	return s.seq
}

// notify waits until every earlier change has been delivered, then calls
// the observer.
func (s *Store) notify(ctx context.Context, change Change) {
	if s.observer == nil {
		return
	}

	s.notifyMu.Lock()
	for s.notified+1 != change.Seq {
		s.notifyCond.Wait()
	}
	s.notifyMu.Unlock()

	defer func() {
		s.notifyMu.Lock()
		s.notified = change.Seq
		s.notifyCond.Broadcast()
		s.notifyMu.Unlock()
	}()
	s.observer.IssueChanged(ctx, change)
}
