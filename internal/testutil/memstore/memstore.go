// Package memstore is an in-memory domain.Store for service tests. Every
// transaction runs under one mutex against a copy of the state, which is
// swapped in only when the transaction function succeeds.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-marketplace/internal/domain"

	"github.com/shopspring/decimal"
)

type state struct {
	listings    map[string]domain.Listing
	bids        []domain.Bid
	tasks       map[string]domain.ScheduledTask
	profiles    map[string]domain.PaymentProfile
	settlements map[string]domain.Settlement
}

func newState() *state {
	return &state{
		listings:    make(map[string]domain.Listing),
		tasks:       make(map[string]domain.ScheduledTask),
		profiles:    make(map[string]domain.PaymentProfile),
		settlements: make(map[string]domain.Settlement),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.listings {
		c.listings[k] = v
	}
	c.bids = append(c.bids, s.bids...)
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	for k, v := range s.settlements {
		c.settlements[k] = v
	}
	return c
}

type Store struct {
	mu       sync.Mutex
	state    *state
	failures map[string]error
	txCount  int
}

func New() *Store {
	return &Store{state: newState(), failures: make(map[string]error)}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txCount++
	working := s.state.clone()
	r := &repos{st: working, failures: s.failures}
	if err := fn(ctx, domain.Repositories{
		Listings:        r,
		Bids:            r,
		Tasks:           r,
		PaymentProfiles: r,
		Settlements:     r,
	}); err != nil {
		return err
	}

	s.state = working
	return nil
}

// FailOn makes the named repository method return err until cleared with a nil err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

func (s *Store) PutListing(l domain.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.listings[l.ID] = l
}

func (s *Store) PutPaymentProfile(p domain.PaymentProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.profiles[p.BidderID] = p
}

func (s *Store) PutTask(t domain.ScheduledTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.tasks[t.ID] = t
}

func (s *Store) Listing(id string) (domain.Listing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.state.listings[id]
	return l, ok
}

func (s *Store) Bids(listingID string) []domain.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Bid
	for _, b := range s.state.bids {
		if b.ListingID == listingID {
			out = append(out, b)
		}
	}
	return out
}

func (s *Store) Tasks() []domain.ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ScheduledTask, 0, len(s.state.tasks))
	for _, t := range s.state.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecuteAt.Before(out[j].ExecuteAt) })
	return out
}

func (s *Store) Settlement(listingID string) (domain.Settlement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state.settlements[listingID]
	return st, ok
}

// TxCount reports how many transactions were started.
func (s *Store) TxCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

type repos struct {
	st       *state
	failures map[string]error
}

func (r *repos) fail(method string) error {
	return r.failures[method]
}

func (r *repos) CreateListing(ctx context.Context, listing *domain.Listing) error {
	if err := r.fail("CreateListing"); err != nil {
		return err
	}
	if _, exists := r.st.listings[listing.ID]; exists {
		return fmt.Errorf("duplicate listing %s", listing.ID)
	}
	r.st.listings[listing.ID] = *listing
	return nil
}

func (r *repos) GetListing(ctx context.Context, listingID string) (*domain.Listing, error) {
	if err := r.fail("GetListing"); err != nil {
		return nil, err
	}
	l, ok := r.st.listings[listingID]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	return &l, nil
}

func (r *repos) GetListingForUpdate(ctx context.Context, listingID string) (*domain.Listing, error) {
	if err := r.fail("GetListingForUpdate"); err != nil {
		return nil, err
	}
	return r.GetListing(ctx, listingID)
}

func (r *repos) UpdateCurrentBid(ctx context.Context, listingID string, amount decimal.Decimal) error {
	if err := r.fail("UpdateCurrentBid"); err != nil {
		return err
	}
	return r.updateListing(listingID, func(l *domain.Listing) { l.CurrentBid = amount })
}

func (r *repos) MarkSold(ctx context.Context, listingID string) error {
	if err := r.fail("MarkSold"); err != nil {
		return err
	}
	return r.updateListing(listingID, func(l *domain.Listing) { l.Sold = true })
}

func (r *repos) UpdateAvailability(ctx context.Context, listingID string, until time.Time) error {
	if err := r.fail("UpdateAvailability"); err != nil {
		return err
	}
	return r.updateListing(listingID, func(l *domain.Listing) { l.AvailableUntil = until })
}

func (r *repos) AssignExpert(ctx context.Context, listingID, expertID string) error {
	if err := r.fail("AssignExpert"); err != nil {
		return err
	}
	return r.updateListing(listingID, func(l *domain.Listing) {
		l.ExpertID = expertID
		l.AuthenticationRequest = true
	})
}

func (r *repos) updateListing(listingID string, apply func(l *domain.Listing)) error {
	l, ok := r.st.listings[listingID]
	if !ok {
		return nil
	}
	apply(&l)
	r.st.listings[listingID] = l
	return nil
}

func (r *repos) InsertBid(ctx context.Context, bid *domain.Bid) error {
	if err := r.fail("InsertBid"); err != nil {
		return err
	}
	r.st.bids = append(r.st.bids, *bid)
	return nil
}

func (r *repos) GetLeadingBid(ctx context.Context, listingID string) (*domain.Bid, error) {
	if err := r.fail("GetLeadingBid"); err != nil {
		return nil, err
	}
	var leading *domain.Bid
	for i := range r.st.bids {
		b := r.st.bids[i]
		if b.ListingID != listingID || !b.SuccessfulBid {
			continue
		}
		if leading == nil || !b.PlacedAt.Before(leading.PlacedAt) {
			leading = &b
		}
	}
	return leading, nil
}

func (r *repos) ClearLeadingFlag(ctx context.Context, bidID string) error {
	if err := r.fail("ClearLeadingFlag"); err != nil {
		return err
	}
	for i := range r.st.bids {
		if r.st.bids[i].ID == bidID {
			r.st.bids[i].SuccessfulBid = false
		}
	}
	return nil
}

func (r *repos) GetHighestBid(ctx context.Context, listingID string) (*domain.Bid, error) {
	if err := r.fail("GetHighestBid"); err != nil {
		return nil, err
	}
	var highest *domain.Bid
	for i := range r.st.bids {
		b := r.st.bids[i]
		if b.ListingID != listingID {
			continue
		}
		if highest == nil || b.Amount.GreaterThan(highest.Amount) {
			highest = &b
		}
	}
	return highest, nil
}

func (r *repos) MarkWinning(ctx context.Context, bidID string) error {
	if err := r.fail("MarkWinning"); err != nil {
		return err
	}
	for i := range r.st.bids {
		if r.st.bids[i].ID == bidID {
			r.st.bids[i].WinningBid = true
		}
	}
	return nil
}

func (r *repos) ListBidsForListing(ctx context.Context, listingID string) ([]*domain.Bid, error) {
	if err := r.fail("ListBidsForListing"); err != nil {
		return nil, err
	}
	var out []*domain.Bid
	for i := range r.st.bids {
		if r.st.bids[i].ListingID == listingID {
			b := r.st.bids[i]
			out = append(out, &b)
		}
	}
	return out, nil
}

func (r *repos) ListBidderPositions(ctx context.Context, bidderID string, now time.Time) ([]*domain.BidderPosition, error) {
	if err := r.fail("ListBidderPositions"); err != nil {
		return nil, err
	}

	latest := make(map[string]domain.Bid)
	for _, b := range r.st.bids {
		if b.BidderID != bidderID {
			continue
		}
		if cur, ok := latest[b.ListingID]; !ok || !b.PlacedAt.Before(cur.PlacedAt) {
			latest[b.ListingID] = b
		}
	}

	var out []*domain.BidderPosition
	for listingID, bid := range latest {
		l, ok := r.st.listings[listingID]
		if !ok || l.Sold || !now.Before(l.AvailableUntil) {
			continue
		}
		b := bid
		out = append(out, &domain.BidderPosition{
			ListingID:   l.ID,
			ListingName: l.Name,
			CurrentBid:  l.CurrentBid,
			LatestBid:   &b,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ListingID < out[j].ListingID })
	return out, nil
}

func (r *repos) CreateTask(ctx context.Context, task *domain.ScheduledTask) error {
	if err := r.fail("CreateTask"); err != nil {
		return err
	}
	r.st.tasks[task.ID] = *task
	return nil
}

func (r *repos) GetDueTasks(ctx context.Context, now time.Time) ([]*domain.ScheduledTask, error) {
	if err := r.fail("GetDueTasks"); err != nil {
		return nil, err
	}
	var out []*domain.ScheduledTask
	for _, t := range r.st.tasks {
		if t.Completed || t.ExecuteAt.After(now) {
			continue
		}
		task := t
		out = append(out, &task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecuteAt.Before(out[j].ExecuteAt) })
	return out, nil
}

func (r *repos) DeleteTask(ctx context.Context, taskID string) error {
	if err := r.fail("DeleteTask"); err != nil {
		return err
	}
	delete(r.st.tasks, taskID)
	return nil
}

func (r *repos) DeleteTasksForListing(ctx context.Context, listingID string, kind domain.TaskKind) error {
	if err := r.fail("DeleteTasksForListing"); err != nil {
		return err
	}
	for id, t := range r.st.tasks {
		if t.ListingID == listingID && t.Kind == kind && !t.Completed {
			delete(r.st.tasks, id)
		}
	}
	return nil
}

func (r *repos) RecordFailure(ctx context.Context, taskID, reason string) error {
	if err := r.fail("RecordFailure"); err != nil {
		return err
	}
	t, ok := r.st.tasks[taskID]
	if !ok {
		return nil
	}
	t.Attempts++
	t.LastError = reason
	r.st.tasks[taskID] = t
	return nil
}

func (r *repos) GetPaymentProfile(ctx context.Context, bidderID string) (*domain.PaymentProfile, error) {
	if err := r.fail("GetPaymentProfile"); err != nil {
		return nil, err
	}
	p, ok := r.st.profiles[bidderID]
	if !ok || p.CustomerID == "" || p.PaymentMethodID == "" {
		return nil, domain.ErrPaymentMethodMissing
	}
	return &p, nil
}

func (r *repos) CreateSettlement(ctx context.Context, settlement *domain.Settlement) error {
	if err := r.fail("CreateSettlement"); err != nil {
		return err
	}
	if _, exists := r.st.settlements[settlement.ListingID]; exists {
		return fmt.Errorf("duplicate settlement for listing %s", settlement.ListingID)
	}
	r.st.settlements[settlement.ListingID] = *settlement
	return nil
}
