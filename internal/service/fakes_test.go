package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/lms-booking-api/internal/models"
	"github.com/noah-isme/lms-booking-api/internal/repository"
	appErrors "github.com/noah-isme/lms-booking-api/pkg/errors"
)

// memoryStore mirrors the SQL semantics of the booking repository in memory.
type memoryStore struct {
	mu         sync.Mutex
	packages   map[string]*models.LessonPackage
	bookings   []*models.Booking
	seq        int
	findErr    error
	reserveErr error
	updateErr  error
	reserves   int
}

func newMemoryStore(packages ...models.LessonPackage) *memoryStore {
	s := &memoryStore{packages: map[string]*models.LessonPackage{}}
	for i := range packages {
		p := packages[i]
		s.packages[p.ID] = &p
	}
	return s
}

func (s *memoryStore) FindActivePackage(ctx context.Context, studentID string, now time.Time) (*models.LessonPackage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	var owned []models.LessonPackage
	for _, p := range s.packages {
		if p.StudentID == studentID {
			owned = append(owned, *p)
		}
	}
	selected := models.EarliestExpiring(owned, now)
	if selected == nil {
		return nil, nil
	}
	copied := *selected
	return &copied, nil
}

func (s *memoryStore) countLocked(teacherID string, at time.Time) int {
	count := 0
	for _, b := range s.bookings {
		if b.TeacherID != teacherID || !b.ScheduledAt.Equal(at) {
			continue
		}
		if b.Status == models.BookingStatusScheduled || b.Status == models.BookingStatusCompleted {
			count++
		}
	}
	return count
}

func (s *memoryStore) CountBookings(ctx context.Context, teacherID string, scheduledAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(teacherID, scheduledAt), nil
}

func (s *memoryStore) Reserve(ctx context.Context, params repository.ReserveParams) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserves++
	if s.reserveErr != nil {
		return nil, s.reserveErr
	}
	b := params.Booking
	if s.countLocked(b.TeacherID, b.ScheduledAt) >= params.Capacity {
		return nil, repository.ErrSlotFull
	}
	pkg, ok := s.packages[params.PackageID]
	if !ok || !pkg.IsActive(params.Now) {
		pkg = s.earliestActiveLocked(b.StudentID, params.Now)
		if pkg == nil {
			return nil, repository.ErrPackageExhausted
		}
	}
	pkg.UsedLessons++
	pkg.RemainingLessons--
	s.seq++
	b.ID = fmt.Sprintf("booking-%d", s.seq)
	b.Status = models.BookingStatusScheduled
	b.CreatedAt = params.Now
	b.UpdatedAt = params.Now
	stored := *b
	s.bookings = append(s.bookings, &stored)
	return b, nil
}

func (s *memoryStore) earliestActiveLocked(studentID string, now time.Time) *models.LessonPackage {
	var selected *models.LessonPackage
	for _, p := range s.packages {
		if p.StudentID != studentID || !p.IsActive(now) {
			continue
		}
		if selected == nil || p.ValidUntil.Before(selected.ValidUntil) {
			selected = p
		}
	}
	return selected
}

func (s *memoryStore) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ID == id {
			copied := *b
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memoryStore) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if filter.StudentID != "" && b.StudentID != filter.StudentID {
			continue
		}
		if filter.TeacherID != "" && b.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, *b)
	}
	return out, len(out), nil
}

func (s *memoryStore) UpdateStatus(ctx context.Context, change models.StatusChange) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ID != change.BookingID {
			continue
		}
		if b.Status != models.BookingStatusScheduled {
			return false, nil
		}
		b.Status = change.To
		b.UpdatedAt = change.At
		if change.CancelledAt != nil {
			b.CancelledAt = change.CancelledAt
		}
		if change.AttendedAt != nil {
			b.AttendedAt = change.AttendedAt
		}
		return true, nil
	}
	return false, nil
}

func (s *memoryStore) UpdateCalendar(ctx context.Context, bookingID, eventID string, meetingLink *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	for _, b := range s.bookings {
		if b.ID == bookingID {
			b.CalendarEventID = &eventID
			b.MeetingLink = meetingLink
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *memoryStore) pkg(id string) models.LessonPackage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.packages[id]
}

func (s *memoryStore) bookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

type availabilityRepoStub struct {
	mu          sync.Mutex
	windows     []models.TeacherAvailability
	listErr     error
	activeCalls int
}

func (s *availabilityRepoStub) ListActiveByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.TeacherAvailability
	for _, w := range s.windows {
		if w.TeacherID == teacherID && w.IsActive {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *availabilityRepoStub) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TeacherAvailability
	for _, w := range s.windows {
		if w.TeacherID == teacherID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *availabilityRepoStub) FindByID(ctx context.Context, id string) (*models.TeacherAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.windows {
		if s.windows[i].ID == id {
			copied := s.windows[i]
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *availabilityRepoStub) Create(ctx context.Context, window *models.TeacherAvailability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	window.ID = fmt.Sprintf("window-%d", len(s.windows)+1)
	s.windows = append(s.windows, *window)
	return nil
}

func (s *availabilityRepoStub) Update(ctx context.Context, window *models.TeacherAvailability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.windows {
		if s.windows[i].ID == window.ID {
			s.windows[i] = *window
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *availabilityRepoStub) Deactivate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.windows {
		if s.windows[i].ID == id {
			s.windows[i].IsActive = false
			return nil
		}
	}
	return sql.ErrNoRows
}

type userStub map[string]*models.User

func (s userStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type topicStub map[string]*models.Topic

func (s topicStub) FindByID(ctx context.Context, id string) (*models.Topic, error) {
	if t, ok := s[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

type accountStub struct {
	accounts map[string]*models.CalendarAccount
	err      error
}

func (s accountStub) FindByTeacher(ctx context.Context, teacherID string) (*models.CalendarAccount, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.accounts[teacherID], nil
}

type providerStub struct {
	mu       sync.Mutex
	event    *models.CalendarEvent
	err      error
	block    bool
	requests []models.CalendarEventRequest
}

func (p *providerStub) CreateEvent(ctx context.Context, account *models.CalendarAccount, req models.CalendarEventRequest) (*models.CalendarEvent, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.event, nil
}

func (p *providerStub) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// memoryCache round-trips values through JSON like the Redis repository does.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func reserveParamsFor(b *models.Booking) repository.ReserveParams {
	return repository.ReserveParams{Booking: b, PackageID: "p1", Capacity: 10, Now: fixedNow}
}
