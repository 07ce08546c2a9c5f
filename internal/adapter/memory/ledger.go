// Package memory holds in-process implementations of the storage ports, used
// by tests and by DEBUG_MODE runs without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

var (
	_ secondary.SubmissionRepository = (*Ledger)(nil)
	_ secondary.LedgerStore          = (*Ledger)(nil)
	_ secondary.ProblemRepository    = (*Ledger)(nil)
	_ secondary.OwnerRepository      = (*Ledger)(nil)
)

type ownerKey struct {
	kind domain.OwnerKind
	id   int64
}

// Ledger keeps every table in maps guarded by one mutex. WithinTx holds the
// mutex for the whole callback and applies staged writes only on success.
type Ledger struct {
	mu          sync.Mutex
	nextID      int64
	submissions map[int64]*domain.Submission
	owners      map[ownerKey]*domain.OwnerAggregate
	problems    map[int64]*domain.Problem
	events      map[int64]*domain.Event
}

func NewLedger() *Ledger {
	return &Ledger{
		submissions: make(map[int64]*domain.Submission),
		owners:      make(map[ownerKey]*domain.OwnerAggregate),
		problems:    make(map[int64]*domain.Problem),
		events:      make(map[int64]*domain.Event),
	}
}

func (l *Ledger) PutEvent(e domain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[e.ID] = &e
}

func (l *Ledger) PutProblem(p domain.Problem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.problems[p.ID] = &p
}

func (l *Ledger) PutOwner(o domain.OwnerAggregate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.owners[ownerKey{o.Kind, o.ID}] = &o
}

func (l *Ledger) Create(ctx context.Context, s *domain.Submission) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	s.ID = l.nextID
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now()
	}
	cp := *s
	l.submissions[s.ID] = &cp
	return nil
}

func (l *Ledger) Get(ctx context.Context, id int64) (*domain.Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.submissions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (l *Ledger) ListByOwner(ctx context.Context, kind domain.OwnerKind, ownerID int64, limit int) ([]*domain.Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*domain.Submission, 0)
	for _, s := range l.submissions {
		if s.OwnerKind == kind && s.OwnerID == ownerID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *Ledger) CountStalePending(ctx context.Context, before time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, s := range l.submissions {
		if s.Verdict == domain.VerdictPending && s.SubmittedAt.Before(before) {
			count++
		}
	}
	return count, nil
}

func (l *Ledger) ListSolved(ctx context.Context, kind domain.OwnerKind, eventID int64) ([]domain.SolvedProblem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[domain.SolvedProblem]bool)
	out := make([]domain.SolvedProblem, 0)
	for _, s := range l.submissions {
		if s.OwnerKind != kind || s.EventID != eventID || s.Verdict != domain.VerdictAccepted {
			continue
		}
		pair := domain.SolvedProblem{OwnerID: s.OwnerID, ProblemID: s.ProblemID}
		if !seen[pair] {
			seen[pair] = true
			out = append(out, pair)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OwnerID != out[j].OwnerID {
			return out[i].OwnerID < out[j].OwnerID
		}
		return out[i].ProblemID < out[j].ProblemID
	})
	return out, nil
}

func (l *Ledger) ListProblemsByEvent(ctx context.Context, eventID int64) ([]*domain.Problem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*domain.Problem, 0)
	for _, p := range l.problems {
		if p.EventID == eventID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l *Ledger) GetProblem(ctx context.Context, id int64) (*domain.Problem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.problems[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (l *Ledger) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.events[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (l *Ledger) GetOwner(ctx context.Context, kind domain.OwnerKind, id int64) (*domain.OwnerAggregate, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.owners[ownerKey{kind, id}]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (l *Ledger) ListOwnersByEvent(ctx context.Context, kind domain.OwnerKind, eventID int64) ([]*domain.OwnerAggregate, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*domain.OwnerAggregate, 0)
	for key, o := range l.owners {
		if key.kind == kind && o.EventID == eventID {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l *Ledger) WithinTx(ctx context.Context, fn func(ctx context.Context, tx secondary.LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &ledgerTx{
		ledger:      l,
		submissions: make(map[int64]*domain.Submission),
		owners:      make(map[ownerKey]*domain.OwnerAggregate),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	for id, s := range tx.submissions {
		l.submissions[id] = s
	}
	for key, o := range tx.owners {
		l.owners[key] = o
	}
	return nil
}

// ledgerTx stages writes; the ledger mutex is already held.
type ledgerTx struct {
	ledger      *Ledger
	submissions map[int64]*domain.Submission
	owners      map[ownerKey]*domain.OwnerAggregate
}

func (t *ledgerTx) LockSubmission(ctx context.Context, id int64) (*domain.Submission, error) {
	s, ok := t.submissions[id]
	if !ok {
		s, ok = t.ledger.submissions[id]
	}
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (t *ledgerTx) LockOwner(ctx context.Context, kind domain.OwnerKind, id int64) (*domain.OwnerAggregate, error) {
	key := ownerKey{kind, id}
	o, ok := t.owners[key]
	if !ok {
		o, ok = t.ledger.owners[key]
	}
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (t *ledgerTx) ProblemPoints(ctx context.Context, problemID int64) (int, error) {
	p, ok := t.ledger.problems[problemID]
	if !ok {
		return 0, errs.ErrProblemNotFound
	}
	return p.Points, nil
}

func (t *ledgerTx) HasAcceptedExcluding(ctx context.Context, kind domain.OwnerKind, ownerID, problemID, excludeID int64) (bool, error) {
	for id, s := range t.ledger.submissions {
		if staged, ok := t.submissions[id]; ok {
			s = staged
		}
		if id != excludeID && s.OwnerKind == kind && s.OwnerID == ownerID &&
			s.ProblemID == problemID && s.Verdict.IsAccepted() {
			return true, nil
		}
	}
	return false, nil
}

func (t *ledgerTx) SaveOwner(ctx context.Context, owner *domain.OwnerAggregate) error {
	key := ownerKey{owner.Kind, owner.ID}
	if _, ok := t.ledger.owners[key]; !ok {
		return errs.Validation("owner %s/%d does not exist", owner.Kind, owner.ID)
	}
	cp := *owner
	t.owners[key] = &cp
	return nil
}

func (t *ledgerTx) SaveVerdict(ctx context.Context, s *domain.Submission) error {
	if _, ok := t.ledger.submissions[s.ID]; !ok {
		return errs.ErrJobNotFound
	}
	cp := *s
	t.submissions[s.ID] = &cp
	return nil
}
