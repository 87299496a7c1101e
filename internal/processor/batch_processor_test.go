package processor

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"rentiful/server/config"
	"rentiful/server/internal/geocoding"
	"rentiful/server/internal/models"
	"rentiful/server/internal/queue"
)

// MockDB runs the transaction body against a nil handle unless told to fail
type MockDB struct {
	mock.Mock
}

func (m *MockDB) Transaction(fc func(*gorm.DB) error, opts ...*sql.TxOptions) error {
	args := m.Called(fc)
	if err := args.Error(0); err != nil {
		return err
	}
	return fc(nil)
}

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Geocode(ctx context.Context, addr geocoding.Address) (orb.Point, bool, error) {
	args := m.Called(ctx, addr)
	return args.Get(0).(orb.Point), args.Bool(1), args.Error(2)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) InvalidateProperties(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type recordedUpdate struct {
	id       int64
	point    *orb.Point
	timeZone string
}

type updateRecorder struct {
	mu    sync.Mutex
	calls []recordedUpdate
}

func (r *updateRecorder) update(_ *gorm.DB, id int64, point *orb.Point, tz string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedUpdate{id: id, point: point, timeZone: tz})
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.BatchProcessing.MaxRetries = 2
	cfg.BatchProcessing.RetryDelay = 0
	return cfg
}

func newProcessor(db Transactor, geo Geocoder, rec *updateRecorder) *BatchProcessor {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	p := NewBatchProcessor(db, geo, queue.New[*models.Location](10, logger), testConfig(), logger)
	p.update = rec.update
	return p
}

func TestNewBatchProcessor(t *testing.T) {
	mockDB := &MockDB{}
	geo := &MockGeocoder{}
	q := queue.New[*models.Location](10, logrus.New())
	cfg := testConfig()
	logger := logrus.New()

	p := NewBatchProcessor(mockDB, geo, q, cfg, logger)

	assert.NotNil(t, p)
	assert.Equal(t, mockDB, p.db)
	assert.Equal(t, q, p.queue)
	assert.Equal(t, cfg, p.config)
	assert.NotNil(t, p.update)
}

func TestBatchProcessor_ProcessBatch(t *testing.T) {
	mockDB := &MockDB{}
	geo := &MockGeocoder{}
	cache := &MockInvalidator{}
	rec := &updateRecorder{}
	p := newProcessor(mockDB, geo, rec).WithInvalidator(cache)

	la := &models.Location{ID: 1, Address: "100 Main St", City: "Los Angeles", Country: "United States", PostalCode: "90012"}
	nowhere := &models.Location{ID: 2, Address: "1 Nowhere", City: "Atlantis", Country: "Sea", PostalCode: "00000"}
	flaky := &models.Location{ID: 3, Address: "2 Broken Rd", City: "Austin", Country: "United States", PostalCode: "73301"}

	geo.On("Geocode", mock.Anything, mock.MatchedBy(func(a geocoding.Address) bool { return a.City == "Los Angeles" })).
		Return(orb.Point{-118.2437, 34.0522}, true, nil)
	geo.On("Geocode", mock.Anything, mock.MatchedBy(func(a geocoding.Address) bool { return a.City == "Atlantis" })).
		Return(orb.Point{}, false, nil)
	geo.On("Geocode", mock.Anything, mock.MatchedBy(func(a geocoding.Address) bool { return a.City == "Austin" })).
		Return(orb.Point{}, false, errors.New("upstream 503"))
	mockDB.On("Transaction", mock.Anything).Return(nil).Once()
	cache.On("InvalidateProperties", mock.Anything).Return(nil).Once()

	err := p.processBatch(context.Background(), []*models.Location{la, nowhere, flaky})
	require.NoError(t, err)

	require.Len(t, rec.calls, 3)
	assert.Equal(t, int64(1), rec.calls[0].id)
	require.NotNil(t, rec.calls[0].point)
	assert.Equal(t, "America/Los_Angeles", rec.calls[0].timeZone)
	assert.Nil(t, rec.calls[1].point)
	assert.Nil(t, rec.calls[2].point)

	assert.False(t, la.Unresolved())
	assert.Equal(t, 1, la.GeocodeAttempts)
	assert.True(t, nowhere.Unresolved())
	assert.Equal(t, 1, nowhere.GeocodeAttempts)

	mockDB.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestBatchProcessor_NoMatchesSkipsInvalidation(t *testing.T) {
	mockDB := &MockDB{}
	geo := &MockGeocoder{}
	cache := &MockInvalidator{}
	p := newProcessor(mockDB, geo, &updateRecorder{}).WithInvalidator(cache)

	geo.On("Geocode", mock.Anything, mock.Anything).Return(orb.Point{}, false, nil)
	mockDB.On("Transaction", mock.Anything).Return(nil).Once()

	require.NoError(t, p.processBatch(context.Background(), []*models.Location{{ID: 9}}))
	cache.AssertNotCalled(t, "InvalidateProperties", mock.Anything)
}

func TestBatchProcessor_Retries(t *testing.T) {
	mockDB := &MockDB{}
	geo := &MockGeocoder{}
	rec := &updateRecorder{}
	p := newProcessor(mockDB, geo, rec)

	geo.On("Geocode", mock.Anything, mock.Anything).Return(orb.Point{}, false, nil)
	mockDB.On("Transaction", mock.Anything).Return(errors.New("db error")).Times(3)

	err := p.processBatch(context.Background(), []*models.Location{{ID: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process batch after 3 attempts")
	assert.Empty(t, rec.calls)
	mockDB.AssertNumberOfCalls(t, "Transaction", 3)
	// geocoding is not repeated per retry
	geo.AssertNumberOfCalls(t, "Geocode", 1)
}

func TestBatchProcessor_RecoversOnRetry(t *testing.T) {
	mockDB := &MockDB{}
	geo := &MockGeocoder{}
	rec := &updateRecorder{}
	p := newProcessor(mockDB, geo, rec)

	geo.On("Geocode", mock.Anything, mock.Anything).Return(orb.Point{}, false, nil)
	mockDB.On("Transaction", mock.Anything).Return(errors.New("serialization failure")).Once()
	mockDB.On("Transaction", mock.Anything).Return(nil).Once()

	require.NoError(t, p.processBatch(context.Background(), []*models.Location{{ID: 1}}))
	assert.Len(t, rec.calls, 1)
}

func TestBatchProcessor_CancelledContext(t *testing.T) {
	mockDB := &MockDB{}
	geo := &MockGeocoder{}
	p := newProcessor(mockDB, geo, &updateRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.processBatch(ctx, []*models.Location{{ID: 1}})
	assert.ErrorIs(t, err, context.Canceled)
	mockDB.AssertNotCalled(t, "Transaction", mock.Anything)
	geo.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
}

func TestBatchProcessor_StartConsumesQueue(t *testing.T) {
	mockDB := &MockDB{}
	geo := &MockGeocoder{}
	rec := &updateRecorder{}
	p := newProcessor(mockDB, geo, rec)

	geo.On("Geocode", mock.Anything, mock.Anything).Return(orb.Point{-97.7431, 30.2672}, true, nil)
	mockDB.On("Transaction", mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start()
	p.queue.Start(ctx)
	defer p.queue.Close()

	require.NoError(t, p.queue.Push([]*models.Location{{ID: 7}}))

	assert.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.calls) == 1
	}, time.Second, 10*time.Millisecond)
}

type releaseRecorder struct {
	released [][]int64
}

func (r *releaseRecorder) Release(locations []*models.Location) {
	ids := make([]int64, 0, len(locations))
	for _, loc := range locations {
		ids = append(ids, loc.ID)
	}
	r.released = append(r.released, ids)
}

func TestBatchProcessor_ReleasesBatch(t *testing.T) {
	mockDB := &MockDB{}
	geo := &MockGeocoder{}
	rel := &releaseRecorder{}
	p := newProcessor(mockDB, geo, &updateRecorder{}).WithReleaser(rel)

	geo.On("Geocode", mock.Anything, mock.Anything).Return(orb.Point{}, false, nil)
	mockDB.On("Transaction", mock.Anything).Return(nil).Once()
	mockDB.On("Transaction", mock.Anything).Return(errors.New("db error"))

	require.NoError(t, p.processBatch(context.Background(), []*models.Location{{ID: 1}, {ID: 2}}))
	require.Error(t, p.processBatch(context.Background(), []*models.Location{{ID: 3}}))

	assert.Equal(t, [][]int64{{1, 2}, {3}}, rel.released)
}
