package tests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"roadsheet/internal/domain"
	"roadsheet/internal/events"
	"roadsheet/internal/redis"
	"roadsheet/internal/repository"
)

// errTestStorage stands in for any backend failure in error-injection tests.
var errTestStorage = errors.New("storage unavailable")

// ──────────────────────────────────────────────
// MOCK SHIFT REPOSITORY
// ──────────────────────────────────────────────

// MockShiftRepository is a mock implementation of ShiftRepository.
// Create enforces the one-open-shift-per-driver constraint the same way the
// partial unique index does, so conflict paths are exercisable without a DB.
type MockShiftRepository struct {
	mu     sync.RWMutex
	shifts map[string]*domain.Shift

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
	GetError    error
}

// NewMockShiftRepository creates a new mock shift repository.
func NewMockShiftRepository() *MockShiftRepository {
	return &MockShiftRepository{
		shifts: make(map[string]*domain.Shift),
	}
}

// AddShift adds a shift to the mock repository without constraint checks.
func (m *MockShiftRepository) AddShift(shift *domain.Shift) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts[shift.ID] = shift
}

func (m *MockShiftRepository) Create(ctx context.Context, shift *domain.Shift) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.shifts {
		if existing.DriverID == shift.DriverID && !existing.Closed {
			return repository.ErrConflict
		}
	}
	m.shifts[shift.ID] = shift
	return nil
}

func (m *MockShiftRepository) GetByID(ctx context.Context, id string) (*domain.Shift, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	shift, ok := m.shifts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *shift
	return &copy, nil
}

func (m *MockShiftRepository) GetAll(ctx context.Context) ([]*domain.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Shift, 0, len(m.shifts))
	for _, s := range m.shifts {
		copy := *s
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockShiftRepository) Update(ctx context.Context, shift *domain.Shift) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shifts[shift.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *shift
	m.shifts[shift.ID] = &copy
	return nil
}

func (m *MockShiftRepository) FindOpenByDriver(ctx context.Context, driverID string) (*domain.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.Shift
	for _, s := range m.shifts {
		if s.DriverID != driverID || s.Closed {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	copy := *latest
	return &copy, nil
}

func (m *MockShiftRepository) FindActiveByDriver(ctx context.Context, driverID string, mode domain.EncodingMode) (*domain.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.Shift
	for _, s := range m.shifts {
		if s.DriverID != driverID || s.Mode != mode || s.Closed {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	copy := *latest
	return &copy, nil
}

func (m *MockShiftRepository) FindLatestValidatedByDriver(ctx context.Context, driverID string) (*domain.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.Shift
	for _, s := range m.shifts {
		if s.DriverID != driverID || !s.Validated {
			continue
		}
		if latest == nil || s.ValidatedAt.After(latest.ValidatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	copy := *latest
	return &copy, nil
}

// GetShift returns the stored shift for test assertions.
func (m *MockShiftRepository) GetShift(id string) *domain.Shift {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shifts[id]
}

// CountShifts returns the number of stored shifts.
func (m *MockShiftRepository) CountShifts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.shifts)
}

// ──────────────────────────────────────────────
// MOCK SHIFT TX RUNNER
// ──────────────────────────────────────────────

// MockShiftTxRunner is a mock implementation of ShiftTxRunner. It runs fn
// against the wrapped mock repository; there is no rollback, so error-path
// tests should assert on returned errors rather than stored state.
type MockShiftTxRunner struct {
	Repo *MockShiftRepository

	// Counters for verification
	RunCallCount int32

	// Error injection
	RunError error
}

// NewMockShiftTxRunner creates a new mock transaction runner.
func NewMockShiftTxRunner(repo *MockShiftRepository) *MockShiftTxRunner {
	return &MockShiftTxRunner{Repo: repo}
}

func (m *MockShiftTxRunner) RunShiftTx(ctx context.Context, fn func(repo repository.ShiftRepository) error) error {
	atomic.AddInt32(&m.RunCallCount, 1)
	if m.RunError != nil {
		return m.RunError
	}
	return fn(m.Repo)
}

// ──────────────────────────────────────────────
// MOCK COURSE REPOSITORY
// ──────────────────────────────────────────────

// MockCourseRepository is a mock implementation of CourseRepository.
type MockCourseRepository struct {
	mu      sync.RWMutex
	courses map[string]*domain.Course

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
	SumError    error

	// ConflictsRemaining makes Create fail with ErrConflict that many times,
	// simulating a concurrent append winning the sequence race.
	ConflictsRemaining int32
}

// NewMockCourseRepository creates a new mock course repository.
func NewMockCourseRepository() *MockCourseRepository {
	return &MockCourseRepository{
		courses: make(map[string]*domain.Course),
	}
}

// AddCourse adds a course to the mock repository.
func (m *MockCourseRepository) AddCourse(course *domain.Course) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[course.ID] = course
}

func (m *MockCourseRepository) Create(ctx context.Context, course *domain.Course) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	if atomic.AddInt32(&m.ConflictsRemaining, -1) >= 0 {
		return repository.ErrConflict
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[course.ID] = course
	return nil
}

func (m *MockCourseRepository) ListByShift(ctx context.Context, shiftID string) ([]*domain.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Course, 0)
	for _, c := range m.courses {
		if c.ShiftID == shiftID {
			copy := *c
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Sequence < result[j].Sequence
	})
	return result, nil
}

func (m *MockCourseRepository) MaxSequence(ctx context.Context, shiftID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max := 0
	for _, c := range m.courses {
		if c.ShiftID == shiftID && c.Sequence > max {
			max = c.Sequence
		}
	}
	return max, nil
}

func (m *MockCourseRepository) SequenceTaken(ctx context.Context, shiftID string, sequence int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.courses {
		if c.ShiftID == shiftID && c.Sequence == sequence {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockCourseRepository) SumCollected(ctx context.Context, shiftID string) (decimal.Decimal, error) {
	if m.SumError != nil {
		return decimal.Zero, m.SumError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, c := range m.courses {
		if c.ShiftID == shiftID {
			total = total.Add(c.Collected)
		}
	}
	return total, nil
}

// CountCourses returns the number of courses stored for a shift.
func (m *MockCourseRepository) CountCourses(shiftID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, c := range m.courses {
		if c.ShiftID == shiftID {
			count++
		}
	}
	return count
}

// ──────────────────────────────────────────────
// MOCK METER READING REPOSITORY
// ──────────────────────────────────────────────

// MockMeterReadingRepository is a mock implementation of MeterReadingRepository.
// Create returns ErrConflict when a reading already exists for the shift,
// matching the unique constraint on shift_id.
type MockMeterReadingRepository struct {
	mu       sync.RWMutex
	readings map[string]*domain.MeterReading // keyed by shift ID

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
	GetError    error
}

// NewMockMeterReadingRepository creates a new mock meter reading repository.
func NewMockMeterReadingRepository() *MockMeterReadingRepository {
	return &MockMeterReadingRepository{
		readings: make(map[string]*domain.MeterReading),
	}
}

func (m *MockMeterReadingRepository) GetByShift(ctx context.Context, shiftID string) (*domain.MeterReading, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	reading, ok := m.readings[shiftID]
	if !ok {
		return nil, nil
	}
	copy := *reading
	return &copy, nil
}

func (m *MockMeterReadingRepository) Create(ctx context.Context, reading *domain.MeterReading) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.readings[reading.ShiftID]; ok {
		return repository.ErrConflict
	}
	copy := *reading
	m.readings[reading.ShiftID] = &copy
	return nil
}

func (m *MockMeterReadingRepository) Update(ctx context.Context, reading *domain.MeterReading) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.readings[reading.ShiftID]; !ok {
		return repository.ErrNotFound
	}
	copy := *reading
	m.readings[reading.ShiftID] = &copy
	return nil
}

// GetReading returns the stored reading for test assertions.
func (m *MockMeterReadingRepository) GetReading(shiftID string) *domain.MeterReading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readings[shiftID]
}

// ──────────────────────────────────────────────
// MOCK EXPENSE REPOSITORY
// ──────────────────────────────────────────────

// MockExpenseRepository is a mock implementation of ExpenseRepository.
type MockExpenseRepository struct {
	mu       sync.RWMutex
	expenses map[string]*domain.Expense

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockExpenseRepository creates a new mock expense repository.
func NewMockExpenseRepository() *MockExpenseRepository {
	return &MockExpenseRepository{
		expenses: make(map[string]*domain.Expense),
	}
}

func (m *MockExpenseRepository) Create(ctx context.Context, expense *domain.Expense) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses[expense.ID] = expense
	return nil
}

func (m *MockExpenseRepository) ListByShift(ctx context.Context, shiftID string) ([]*domain.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Expense, 0)
	for _, e := range m.expenses {
		if e.ShiftID == shiftID {
			copy := *e
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	// When true every acquisition attempt fails as if another holder exists.
	FailAcquire bool

	// Counters for verification
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]bool),
	}
}

func (m *MockLockStore) AcquireShiftLock(ctx context.Context, shiftID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.FailAcquire {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[shiftID] {
		return false, nil
	}
	m.locks[shiftID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseShiftLock(ctx context.Context, shiftID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, shiftID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of CacheStoreInterface.
type MockCacheStore struct {
	mu          sync.RWMutex
	suggestions map[string]*redis.CachedSuggestion

	// Counters for verification
	GetCallCount        int32
	SetCallCount        int32
	InvalidateCallCount int32

	// Error injection
	GetError error
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		suggestions: make(map[string]*redis.CachedSuggestion),
	}
}

func (m *MockCacheStore) GetSuggestion(ctx context.Context, driverID string) (*redis.CachedSuggestion, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	suggestion, ok := m.suggestions[driverID]
	if !ok {
		return nil, nil
	}
	copy := *suggestion
	return &copy, nil
}

func (m *MockCacheStore) SetSuggestion(ctx context.Context, suggestion *redis.CachedSuggestion) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *suggestion
	m.suggestions[suggestion.DriverID] = &copy
	return nil
}

func (m *MockCacheStore) InvalidateSuggestion(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.suggestions, driverID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published shift events.
type MockPublisher struct {
	mu              sync.Mutex
	ClosedEvents    []events.ShiftClosedEvent
	ValidatedEvents []events.ShiftValidatedEvent

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishShiftClosed(ctx context.Context, event events.ShiftClosedEvent) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClosedEvents = append(m.ClosedEvents, event)
	return nil
}

func (m *MockPublisher) PublishShiftValidated(ctx context.Context, event events.ShiftValidatedEvent) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ValidatedEvents = append(m.ValidatedEvents, event)
	return nil
}

// CountClosed returns the number of shift.closed events published.
func (m *MockPublisher) CountClosed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ClosedEvents)
}

// CountValidated returns the number of shift.validated events published.
func (m *MockPublisher) CountValidated() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ValidatedEvents)
}
