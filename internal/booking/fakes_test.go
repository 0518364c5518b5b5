package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// In-memory collaborators for engine tests.  They implement the same store
// interfaces the MySQL repositories implement, including the ErrNotFound
// translation, so the engine under test cannot tell the difference.

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type fakeResourceStore struct {
	mu        sync.Mutex
	resources map[uint64]model.Resource
}

func newFakeResourceStore(resources ...model.Resource) *fakeResourceStore {
	s := &fakeResourceStore{resources: make(map[uint64]model.Resource)}
	for _, r := range resources {
		s.resources[r.ID] = r
	}
	return s
}

func (s *fakeResourceStore) GetByID(_ context.Context, id uint64) (*model.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := r
	return &cp, nil
}

func (s *fakeResourceStore) typeOf(id uint64) model.ResourceType {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.resources[id]; ok {
		return r.Type
	}
	return model.ResourceSeat
}

type fakeReservationStore struct {
	mu        sync.Mutex
	nextID    uint64
	rows      map[uint64]model.Reservation
	resources *fakeResourceStore
}

func newFakeReservationStore(resources *fakeResourceStore) *fakeReservationStore {
	return &fakeReservationStore{rows: make(map[uint64]model.Reservation), resources: resources}
}

func (s *fakeReservationStore) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := r
	return &cp, nil
}

func (s *fakeReservationStore) Create(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	s.rows[r.ID] = *r
	return nil
}

func (s *fakeReservationStore) Update(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[r.ID]; !ok {
		return ErrNotFound
	}
	s.rows[r.ID] = *r
	return nil
}

func (s *fakeReservationStore) all() []model.Reservation {
	out := make([]model.Reservation, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *fakeReservationStore) FindOverlapping(_ context.Context, resourceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.all() {
		if r.ResourceID != resourceID || r.ID == excludeID || r.Status.Terminal() {
			continue
		}
		if r.StartsAt.Before(end) && r.EndsAt.After(start) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeReservationStore) FindActiveByResourceBetween(_ context.Context, resourceID uint64, start, end time.Time) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.all() {
		if r.ResourceID != resourceID || r.Status.Terminal() {
			continue
		}
		if r.StartsAt.Before(end) && r.EndsAt.After(start) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (s *fakeReservationStore) FindReservedStartedBefore(_ context.Context, rtype model.ResourceType, cutoff time.Time) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.all() {
		if r.Status != model.StatusReserved || s.resources.typeOf(r.ResourceID) != rtype {
			continue
		}
		if r.StartsAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeReservationStore) FindCheckedInEndingBetween(_ context.Context, rtype model.ResourceType, from, to time.Time) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.all() {
		if r.Status != model.StatusCheckedIn || s.resources.typeOf(r.ResourceID) != rtype {
			continue
		}
		if !r.EndsAt.Before(from) && r.EndsAt.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeReservationStore) CountActiveForUserBetween(_ context.Context, userID uint64, rtype model.ResourceType, from, to time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.all() {
		if r.UserID != userID || r.Status.Terminal() || s.resources.typeOf(r.ResourceID) != rtype {
			continue
		}
		if !r.StartsAt.Before(from) && r.StartsAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (s *fakeReservationStore) ActiveMinutesForUserBetween(_ context.Context, userID uint64, rtype model.ResourceType, from, to time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	minutes := 0
	for _, r := range s.all() {
		if r.UserID != userID || s.resources.typeOf(r.ResourceID) != rtype {
			continue
		}
		if r.Status != model.StatusReserved && r.Status != model.StatusCheckedIn {
			continue
		}
		if !r.StartsAt.Before(from) && r.StartsAt.Before(to) {
			minutes += int(r.EndsAt.Sub(r.StartsAt).Minutes())
		}
	}
	return minutes, nil
}

func (s *fakeReservationStore) FindBySeriesAfter(_ context.Context, seriesID uint64, after time.Time) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.all() {
		if r.SeriesID == nil || *r.SeriesID != seriesID {
			continue
		}
		if !r.StartsAt.Before(after) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeScheduleStore struct {
	entries  map[uint64]map[time.Weekday]model.ScheduleEntry
	closures map[uint64]map[string]model.ClosureException
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{
		entries:  make(map[uint64]map[time.Weekday]model.ScheduleEntry),
		closures: make(map[uint64]map[string]model.ClosureException),
	}
}

func (s *fakeScheduleStore) setEntry(e model.ScheduleEntry) {
	if s.entries[e.VenueID] == nil {
		s.entries[e.VenueID] = make(map[time.Weekday]model.ScheduleEntry)
	}
	s.entries[e.VenueID][e.Weekday] = e
}

func (s *fakeScheduleStore) setClosure(c model.ClosureException) {
	if s.closures[c.VenueID] == nil {
		s.closures[c.VenueID] = make(map[string]model.ClosureException)
	}
	s.closures[c.VenueID][c.Date.Format("2006-01-02")] = c
}

func (s *fakeScheduleStore) WeeklyEntry(_ context.Context, venueID uint64, day time.Weekday) (*model.ScheduleEntry, error) {
	if m, ok := s.entries[venueID]; ok {
		if e, ok := m[day]; ok {
			cp := e
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeScheduleStore) ClosureOn(_ context.Context, venueID uint64, date time.Time) (*model.ClosureException, error) {
	if m, ok := s.closures[venueID]; ok {
		if c, ok := m[date.Format("2006-01-02")]; ok {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeSeriesStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.RecurringSeries
}

func newFakeSeriesStore() *fakeSeriesStore {
	return &fakeSeriesStore{rows: make(map[uint64]model.RecurringSeries)}
}

func (s *fakeSeriesStore) GetByID(_ context.Context, id uint64) (*model.RecurringSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := r
	return &cp, nil
}

func (s *fakeSeriesStore) Create(_ context.Context, r *model.RecurringSeries) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	s.rows[r.ID] = *r
	return nil
}

func (s *fakeSeriesStore) Update(_ context.Context, r *model.RecurringSeries) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[r.ID]; !ok {
		return ErrNotFound
	}
	s.rows[r.ID] = *r
	return nil
}

func (s *fakeSeriesStore) CountActiveForUser(_ context.Context, userID uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rows {
		if r.UserID == userID && r.Active {
			n++
		}
	}
	return n, nil
}

func (s *fakeSeriesStore) ListActive(_ context.Context) ([]model.RecurringSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RecurringSeries
	for _, r := range s.rows {
		if r.Active {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeWaitlistStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.WaitlistEntry
}

func newFakeWaitlistStore() *fakeWaitlistStore {
	return &fakeWaitlistStore{rows: make(map[uint64]model.WaitlistEntry)}
}

func (s *fakeWaitlistStore) GetByID(_ context.Context, id uint64) (*model.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := e
	return &cp, nil
}

func (s *fakeWaitlistStore) Create(_ context.Context, e *model.WaitlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	s.rows[e.ID] = *e
	return nil
}

func (s *fakeWaitlistStore) Update(_ context.Context, e *model.WaitlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[e.ID]; !ok {
		return ErrNotFound
	}
	s.rows[e.ID] = *e
	return nil
}

func (s *fakeWaitlistStore) FindWaitingByResource(_ context.Context, resourceID uint64) ([]model.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.WaitlistEntry
	for _, e := range s.rows {
		if e.ResourceID == resourceID && e.Status == model.WaitlistWaiting {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *fakeWaitlistStore) FindLiveByUserAndResource(_ context.Context, userID, resourceID uint64) (*model.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.rows {
		if e.UserID == userID && e.ResourceID == resourceID && e.Status.Live() {
			cp := e
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeWaitlistStore) MaxPosition(_ context.Context, resourceID uint64) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max uint32
	for _, e := range s.rows {
		if e.ResourceID == resourceID && e.Status == model.WaitlistWaiting && e.Position > max {
			max = e.Position
		}
	}
	return max, nil
}

func (s *fakeWaitlistStore) FindNotifiedBefore(_ context.Context, cutoff time.Time) ([]model.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.WaitlistEntry
	for _, e := range s.rows {
		if e.Status == model.WaitlistNotified && e.NotifiedAt != nil && !e.NotifiedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// recordingNotifier captures notification decisions for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	sent  []sentNote
	fail  bool
}

type sentNote struct {
	UserID   uint64
	Category string
}

func (n *recordingNotifier) Notify(_ context.Context, userID uint64, _, _, category string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return context.DeadlineExceeded
	}
	n.sent = append(n.sent, sentNote{UserID: userID, Category: category})
	return nil
}

func (n *recordingNotifier) byCategory(category string) []sentNote {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNote
	for _, s := range n.sent {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}
