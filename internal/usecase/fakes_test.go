package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"flight-booking/internal/artifact"
	"flight-booking/internal/data/entity"
	"flight-booking/internal/data/repository"
	"flight-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type seatKey struct {
	flightID uuid.UUID
	number   string
}

type bookingRow uuid.UUID

// memStore is an in-memory stand-in for Postgres at read committed.
// Transactions run concurrently and buffer their writes until commit. An
// UPDATE takes a row lock held until commit or rollback; another UPDATE of
// the same row waits, then re-evaluates against the committed row.
type memStore struct {
	mu   sync.Mutex
	cond *sync.Cond

	flights   map[uuid.UUID]entity.Flight
	seats     map[seatKey]entity.Seat
	bookings  map[uuid.UUID]entity.Booking
	artifacts map[uuid.UUID]entity.InvoiceArtifact
	users     map[uuid.UUID]entity.User

	rowLocks map[any]*memTx

	// hooks, called without mu held
	onCAS    func(key seatKey)
	onCancel func(id uuid.UUID) error

	casCalls     int
	casConflicts int
}

// memTx holds the uncommitted writes and row locks of one transaction.
type memTx struct {
	flights  map[uuid.UUID]entity.Flight
	seats    map[seatKey]entity.Seat
	bookings map[uuid.UUID]entity.Booking
	held     []any
}

func newMemStore() *memStore {
	m := &memStore{
		flights:   make(map[uuid.UUID]entity.Flight),
		seats:     make(map[seatKey]entity.Seat),
		bookings:  make(map[uuid.UUID]entity.Booking),
		artifacts: make(map[uuid.UUID]entity.InvoiceArtifact),
		users:     make(map[uuid.UUID]entity.User),
		rowLocks:  make(map[any]*memTx),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *memStore) repository() *repository.Repository {
	repo := m.bound(nil)
	repo.Transactor = m
	return repo
}

// bound returns repositories writing through tx, or autocommitting when tx
// is nil.
func (m *memStore) bound(tx *memTx) *repository.Repository {
	return &repository.Repository{
		User:     memUsers{m},
		Flight:   memFlights{m, tx},
		Seat:     memSeats{m, tx},
		Booking:  memBookings{m, tx},
		Artifact: memArtifacts{m},
	}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx *repository.Repository) error) error {
	tx := &memTx{
		flights:  make(map[uuid.UUID]entity.Flight),
		seats:    make(map[seatKey]entity.Seat),
		bookings: make(map[uuid.UUID]entity.Booking),
	}

	committed := false
	defer func() {
		m.mu.Lock()
		m.finish(tx, committed)
		m.mu.Unlock()
	}()

	if err := fn(m.bound(tx)); err != nil {
		return err
	}
	committed = true
	return nil
}

// finish publishes or discards tx writes and releases its row locks.
// Caller holds mu.
func (m *memStore) finish(tx *memTx, commit bool) {
	if commit {
		for k, v := range tx.flights {
			m.flights[k] = v
		}
		for k, v := range tx.seats {
			m.seats[k] = v
		}
		for k, v := range tx.bookings {
			m.bookings[k] = v
		}
	}
	for _, key := range tx.held {
		delete(m.rowLocks, key)
	}
	tx.held = nil
	m.cond.Broadcast()
}

// lockRow waits until no other transaction holds key and reports whether tx
// took the lock on this call. Autocommit statements wait but never hold.
// Caller holds mu.
func (m *memStore) lockRow(tx *memTx, key any) bool {
	for {
		owner, locked := m.rowLocks[key]
		if !locked {
			if tx == nil {
				return false
			}
			m.rowLocks[key] = tx
			tx.held = append(tx.held, key)
			return true
		}
		if owner == tx {
			return false
		}
		m.cond.Wait()
	}
}

// unlockRow drops a lock taken by an UPDATE that matched nothing.
func (m *memStore) unlockRow(tx *memTx, key any) {
	delete(m.rowLocks, key)
	for i, k := range tx.held {
		if k == key {
			tx.held = append(tx.held[:i], tx.held[i+1:]...)
			break
		}
	}
	m.cond.Broadcast()
}

func (m *memStore) seatView(tx *memTx, key seatKey) (entity.Seat, bool) {
	if tx != nil {
		if s, ok := tx.seats[key]; ok {
			return s, true
		}
	}
	s, ok := m.seats[key]
	return s, ok
}

func (m *memStore) putSeat(tx *memTx, s entity.Seat) {
	key := seatKey{s.FlightID, s.SeatNumber}
	if tx == nil {
		m.seats[key] = s
		return
	}
	tx.seats[key] = s
}

func (m *memStore) flightView(tx *memTx, id uuid.UUID) (entity.Flight, bool) {
	if tx != nil {
		if f, ok := tx.flights[id]; ok {
			return f, true
		}
	}
	f, ok := m.flights[id]
	return f, ok
}

// bookingsView is the committed set overlaid with tx writes.
func (m *memStore) bookingsView(tx *memTx) map[uuid.UUID]entity.Booking {
	if tx == nil || len(tx.bookings) == 0 {
		return m.bookings
	}
	out := make(map[uuid.UUID]entity.Booking, len(m.bookings)+len(tx.bookings))
	for k, v := range m.bookings {
		out[k] = v
	}
	for k, v := range tx.bookings {
		out[k] = v
	}
	return out
}

func (m *memStore) putBooking(tx *memTx, b entity.Booking) {
	if tx == nil {
		m.bookings[b.ID] = b
		return
	}
	tx.bookings[b.ID] = b
}

// fixtures

func (m *memStore) addFlight(departure time.Time, basePrice string) *entity.Flight {
	f := entity.Flight{
		BaseNoDelete:  entity.BaseNoDelete{ID: uuid.New()},
		FlightNumber:  "GA402",
		Origin:        "CGK",
		Destination:   "DPS",
		DepartureTime: departure,
		BasePrice:     decimal.RequireFromString(basePrice),
	}
	m.mu.Lock()
	m.flights[f.ID] = f
	m.mu.Unlock()
	return &f
}

func (m *memStore) addSeat(flightID uuid.UUID, number string, version int64, available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seats[seatKey{flightID, number}] = entity.Seat{
		FlightID:      flightID,
		SeatNumber:    number,
		Class:         entity.SeatClassEconomy,
		PriceModifier: decimal.RequireFromString("1.5"),
		IsAvailable:   available,
		Version:       version,
	}
}

func (m *memStore) addBooking(userID, flightID uuid.UUID, seat string) *entity.Booking {
	b := entity.Booking{
		ID:               uuid.New(),
		UserID:           userID,
		FlightID:         flightID,
		SeatNumber:       seat,
		Status:           entity.BookingStatusConfirmed,
		BookingTime:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		TotalPrice:       decimal.RequireFromString("150"),
		ConfirmationCode: "ABC" + seat,
	}
	m.mu.Lock()
	m.bookings[b.ID] = b
	m.mu.Unlock()
	return &b
}

func (m *memStore) seat(flightID uuid.UUID, number string) entity.Seat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seats[seatKey{flightID, number}]
}

func (m *memStore) booking(id uuid.UUID) entity.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id]
}

func (m *memStore) confirmedOn(flightID uuid.UUID, number string) []entity.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Booking
	for _, b := range m.bookings {
		if b.FlightID == flightID && b.SeatNumber == number && b.IsConfirmed() {
			out = append(out, b)
		}
	}
	return out
}

func (m *memStore) artifact(bookingID uuid.UUID) (entity.InvoiceArtifact, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artifacts[bookingID]
	return a, ok
}

// repositories

type memUsers struct{ m *memStore }

func (r memUsers) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

type memFlights struct {
	m  *memStore
	tx *memTx
}

func (r memFlights) Create(ctx context.Context, flight *entity.Flight) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.tx == nil {
		r.m.flights[flight.ID] = *flight
		return nil
	}
	r.tx.flights[flight.ID] = *flight
	return nil
}

func (r memFlights) FindByID(ctx context.Context, id uuid.UUID) (*entity.Flight, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	f, ok := r.m.flightView(r.tx, id)
	if !ok {
		return nil, nil
	}
	return &f, nil
}

type memSeats struct {
	m  *memStore
	tx *memTx
}

func (r memSeats) CreateBatch(ctx context.Context, seats []*entity.Seat) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range seats {
		if _, exists := r.m.seatView(r.tx, seatKey{s.FlightID, s.SeatNumber}); exists {
			return fmt.Errorf("duplicate seat %s", s.SeatNumber)
		}
		r.m.putSeat(r.tx, *s)
	}
	return nil
}

func (r memSeats) FindByFlightID(ctx context.Context, flightID uuid.UUID) ([]*entity.Seat, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	keys := make(map[seatKey]bool)
	for k := range r.m.seats {
		keys[k] = true
	}
	if r.tx != nil {
		for k := range r.tx.seats {
			keys[k] = true
		}
	}
	var out []*entity.Seat
	for k := range keys {
		if k.flightID != flightID {
			continue
		}
		s, _ := r.m.seatView(r.tx, k)
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out, nil
}

func (r memSeats) Find(ctx context.Context, flightID uuid.UUID, seatNumber string) (*entity.Seat, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.seatView(r.tx, seatKey{flightID, seatNumber})
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r memSeats) CompareAndSetAvailability(ctx context.Context, flightID uuid.UUID, seatNumber string, expectedVersion int64, available bool) (int64, bool, error) {
	key := seatKey{flightID, seatNumber}
	if r.m.onCAS != nil {
		r.m.onCAS(key)
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.casCalls++

	fresh := r.m.lockRow(r.tx, key)
	s, ok := r.m.seatView(r.tx, key)
	if !ok || s.Version != expectedVersion || s.IsAvailable == available {
		if ok && s.Version != expectedVersion {
			r.m.casConflicts++
		}
		if fresh {
			r.m.unlockRow(r.tx, key)
		}
		return 0, false, nil
	}
	s.IsAvailable = available
	s.Version++
	r.m.putSeat(r.tx, s)
	return s.Version, true, nil
}

type memBookings struct {
	m  *memStore
	tx *memTx
}

func (r memBookings) Create(ctx context.Context, booking *entity.Booking) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, b := range r.m.bookingsView(r.tx) {
		if b.ConfirmationCode == booking.ConfirmationCode {
			return repository.ErrDuplicateConfirmationCode
		}
		if b.IsConfirmed() && b.FlightID == booking.FlightID && b.SeatNumber == booking.SeatNumber {
			return repository.ErrSeatAlreadyBooked
		}
	}
	r.m.putBooking(r.tx, *booking)
	return nil
}

func (r memBookings) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookingsView(r.tx)[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r memBookings) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var all []*entity.Booking
	for _, b := range r.m.bookingsView(r.tx) {
		if b.UserID == userID {
			b := b
			all = append(all, &b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].BookingTime.After(all[j].BookingTime) })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r memBookings) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, b := range r.m.bookingsView(r.tx) {
		if b.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r memBookings) FindConfirmedBySeat(ctx context.Context, flightID uuid.UUID, seatNumber string) (*entity.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, b := range r.m.bookingsView(r.tx) {
		if b.FlightID == flightID && b.SeatNumber == seatNumber && b.IsConfirmed() {
			return &b, nil
		}
	}
	return nil, nil
}

func (r memBookings) Cancel(ctx context.Context, id uuid.UUID, replacedBy *uuid.UUID, at time.Time) (bool, error) {
	if r.m.onCancel != nil {
		if err := r.m.onCancel(id); err != nil {
			return false, err
		}
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	row := bookingRow(id)
	fresh := r.m.lockRow(r.tx, row)
	b, ok := r.m.bookingsView(r.tx)[id]
	if !ok || !b.IsConfirmed() {
		if fresh {
			r.m.unlockRow(r.tx, row)
		}
		return false, nil
	}
	b.Status = entity.BookingStatusCancelled
	b.ReplacedBy = replacedBy
	b.CancelledAt = &at
	b.UpdatedAt = at
	r.m.putBooking(r.tx, b)
	return true, nil
}


type memArtifacts struct{ m *memStore }

func (r memArtifacts) Find(ctx context.Context, bookingID uuid.UUID) (*entity.InvoiceArtifact, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.artifacts[bookingID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r memArtifacts) BeginAttempt(ctx context.Context, bookingID uuid.UUID, force bool, now time.Time) (*entity.InvoiceArtifact, bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.artifacts[bookingID]
	if ok {
		eligible := a.Status == entity.ArtifactStatusNotStarted ||
			a.Status == entity.ArtifactStatusFailed ||
			(force && a.Status == entity.ArtifactStatusReady)
		if !eligible {
			return nil, false, nil
		}
	}
	a.BookingID = bookingID
	a.Status = entity.ArtifactStatusInProgress
	a.Attempt++
	a.LastError = nil
	a.StartedAt = &now
	a.CompletedAt = nil
	a.UpdatedAt = now
	r.m.artifacts[bookingID] = a
	return &a, true, nil
}

func (r memArtifacts) MarkReady(ctx context.Context, bookingID uuid.UUID, attempt int, location, checksum string, now time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.artifacts[bookingID]
	if !ok || a.Attempt != attempt || a.Status != entity.ArtifactStatusInProgress {
		return false, nil
	}
	a.Status = entity.ArtifactStatusReady
	a.Location = &location
	a.Checksum = &checksum
	a.CompletedAt = &now
	a.UpdatedAt = now
	r.m.artifacts[bookingID] = a
	return true, nil
}

func (r memArtifacts) MarkFailed(ctx context.Context, bookingID uuid.UUID, attempt int, reason string, now time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.artifacts[bookingID]
	if !ok || a.Attempt != attempt || a.Status != entity.ArtifactStatusInProgress {
		return false, nil
	}
	a.Status = entity.ArtifactStatusFailed
	a.LastError = &reason
	a.CompletedAt = &now
	a.UpdatedAt = now
	r.m.artifacts[bookingID] = a
	return true, nil
}

func (r memArtifacts) FindStale(ctx context.Context, startedBefore time.Time, limit int) ([]*entity.InvoiceArtifact, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*entity.InvoiceArtifact
	for _, a := range r.m.artifacts {
		if a.Status == entity.ArtifactStatusInProgress && a.StartedAt != nil && a.StartedAt.Before(startedBefore) {
			a := a
			out = append(out, &a)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}


// collaborators

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordedEvent struct {
	key   string
	event any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(ctx context.Context, routingKey string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{routingKey, event})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.key)
	}
	return out
}

// fakeRenderer renders the confirmation code. When gate is set every render
// waits for it to close.
type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	gate  chan struct{}
	err   error
}

func (r *fakeRenderer) Render(ctx context.Context, data artifact.InvoiceData) ([]byte, error) {
	r.mu.Lock()
	r.calls++
	gate, err := r.gate, r.err
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return []byte("invoice:" + data.Booking.ConfirmationCode), nil
}

func (r *fakeRenderer) setGate(gate chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = gate
}

func (r *fakeRenderer) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *fakeRenderer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// memStatusCache keeps READY entries in a map. onSet runs before an entry
// is stored, without mu held.
type memStatusCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]artifact.ReadyStatus
	onSet   func()
}

func newMemStatusCache() *memStatusCache {
	return &memStatusCache{entries: make(map[uuid.UUID]artifact.ReadyStatus)}
}

func (c *memStatusCache) GetReady(ctx context.Context, bookingID uuid.UUID) (*artifact.ReadyStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.entries[bookingID]
	if !ok {
		return nil, false
	}
	return &st, true
}

func (c *memStatusCache) SetReady(ctx context.Context, bookingID uuid.UUID, status artifact.ReadyStatus) {
	c.mu.Lock()
	hook := c.onSet
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[bookingID] = status
}

func (c *memStatusCache) Invalidate(ctx context.Context, bookingID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, bookingID)
}

func (c *memStatusCache) setHook(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSet = fn
}

type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte)}
}

func (s *memObjectStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return "mem://" + key, nil
}

func (s *memObjectStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, data := range s.objects {
		if "mem://"+key == location {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}
	return nil, errors.New("object not found")
}

// harness

type harness struct {
	store     *memStore
	clock     *fakeClock
	publisher *fakePublisher
	renderer  *fakeRenderer
	objects   *memObjectStore
	cache     *memStatusCache
	service   *Service
	config    *utils.Config
}

func testConfig() *utils.Config {
	return &utils.Config{
		App: utils.AppConfig{Name: "flight-booking"},
		Booking: utils.BookingConfig{
			MaxClaimRetries:   4,
			CompensationTries: 2,
		},
		Artifact: utils.ArtifactConfig{
			Workers:         2,
			QueueSize:       64,
			Timeout:         5 * time.Second,
			PollInterval:    10 * time.Millisecond,
			PollMaxAttempts: 5,
			StaleAfter:      5 * time.Minute,
			MaxAutoAttempts: 3,
		},
	}
}

func newHarness(t *testing.T, log *zap.Logger, tweak ...func(*utils.Config)) *harness {
	t.Helper()

	h := &harness{
		store:     newMemStore(),
		clock:     newFakeClock(),
		publisher: &fakePublisher{},
		renderer:  &fakeRenderer{},
		objects:   newMemObjectStore(),
		cache:     newMemStatusCache(),
		config:    testConfig(),
	}
	for _, fn := range tweak {
		fn(h.config)
	}
	if log == nil {
		log = zap.NewNop()
	}

	h.service = NewService(h.store.repository(), h.config, Dependencies{
		Renderer:  h.renderer,
		Store:     h.objects,
		Cache:     h.cache,
		Publisher: h.publisher,
		Clock:     h.clock.Now,
	}, log)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, h.service.Shutdown(ctx))
	})
	return h
}

func (h *harness) futureFlight() *entity.Flight {
	return h.store.addFlight(h.clock.Now().Add(48*time.Hour), "100.00")
}
