package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rayane1997/app-price-tracker/internal/store"
)

func floatPtr(v float64) *float64 { return &v }
func strPtr(s string) *string     { return &s }

// mockStore is an in-memory Store for engine tests. History is ordered
// oldest first; ids mirror slice positions.
type mockStore struct {
	history   []store.PriceHistory
	alerts    []store.Alert
	createErr error
	nextID    uint
}

func newMockStore() *mockStore {
	return &mockStore{nextID: 1}
}

func (m *mockStore) addHistory(entry store.PriceHistory) store.PriceHistory {
	entry.ID = m.nextID
	m.nextID++
	m.history = append(m.history, entry)
	return entry
}

func (m *mockStore) CreateAlert(_ context.Context, alert *store.Alert) error {
	if m.createErr != nil {
		return m.createErr
	}
	alert.ID = m.nextID
	m.nextID++
	m.alerts = append(m.alerts, *alert)
	return nil
}

func (m *mockStore) HasRecentAlert(_ context.Context, productID uint, kind store.AlertKind, since time.Time) (bool, error) {
	for _, a := range m.alerts {
		if a.ProductID == productID && a.Kind == kind && a.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) LastPricedEntryBefore(_ context.Context, productID uint, beforeID uint) (*store.PriceHistory, error) {
	for i := len(m.history) - 1; i >= 0; i-- {
		e := m.history[i]
		if e.ProductID == productID && e.ID < beforeID && e.Price != nil {
			return &e, nil
		}
	}
	return nil, nil
}

func (m *mockStore) RecentHistoryBefore(_ context.Context, productID uint, beforeID uint, limit int) ([]store.PriceHistory, error) {
	var out []store.PriceHistory
	for i := len(m.history) - 1; i >= 0 && len(out) < limit; i-- {
		e := m.history[i]
		if e.ProductID == productID && e.ID < beforeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestEngine(s Store, now time.Time) *Engine {
	e := NewEngine(s, 10.0, 24*time.Hour)
	e.now = func() time.Time { return now }
	return e
}

func testProduct() *store.Product {
	return &store.Product{
		ID:       1,
		URL:      "https://www.fnac.com/casque-audio",
		Name:     strPtr("Casque Audio Pro"),
		Currency: "EUR",
		Status:   store.ProductStatusActive,
	}
}

func TestEngineFirstPriceNoAlerts(t *testing.T) {
	s := newMockStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(s, now)

	current := s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(149.99), RecordedAt: now})

	alerts, err := engine.CheckAndCreate(context.Background(), testProduct(), &current)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestEngineTargetReached(t *testing.T) {
	s := newMockStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(s, now)

	s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(399.99), RecordedAt: now.Add(-24 * time.Hour)})
	current := s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(299.99), RecordedAt: now})

	product := testProduct()
	product.TargetPrice = floatPtr(299.99)

	alerts, err := engine.CheckAndCreate(context.Background(), product, &current)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, store.AlertKindTargetReached, a.Kind)
	assert.Equal(t, store.AlertStatusUnread, a.Status)
	require.NotNil(t, a.OldPrice)
	assert.InDelta(t, 399.99, *a.OldPrice, 0.001)
	assert.InDelta(t, 299.99, a.NewPrice, 0.001)
	assert.Contains(t, a.Message, "Casque Audio Pro")
	assert.Contains(t, a.Message, "299.99 EUR")
	assert.Contains(t, a.Message, "target of 299.99")
}

func TestEngineTargetNotReached(t *testing.T) {
	s := newMockStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(s, now)

	current := s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(300.00), RecordedAt: now})

	product := testProduct()
	product.TargetPrice = floatPtr(299.99)

	alerts, err := engine.CheckAndCreate(context.Background(), product, &current)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestEnginePriceDrop(t *testing.T) {
	s := newMockStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(s, now)

	s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(100.00), RecordedAt: now.Add(-6 * time.Hour)})
	current := s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(85.00), RecordedAt: now})

	alerts, err := engine.CheckAndCreate(context.Background(), testProduct(), &current)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, store.AlertKindPriceDrop, a.Kind)
	require.NotNil(t, a.DropPercentage)
	assert.InDelta(t, 15.0, *a.DropPercentage, 0.001)
	assert.Contains(t, a.Message, "15.0%")
	assert.Contains(t, a.Message, "100.00")
	assert.Contains(t, a.Message, "85.00")
}

func TestEnginePriceDropBelowThreshold(t *testing.T) {
	s := newMockStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(s, now)

	s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(100.00), RecordedAt: now.Add(-6 * time.Hour)})
	current := s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(91.00), RecordedAt: now})

	alerts, err := engine.CheckAndCreate(context.Background(), testProduct(), &current)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestEnginePriceDropDedup(t *testing.T) {
	s := newMockStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(s, now)

	s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(100.00), RecordedAt: now.Add(-6 * time.Hour)})
	first := s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(85.00), RecordedAt: now})

	alerts, err := engine.CheckAndCreate(context.Background(), testProduct(), &first)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	// A further drop right after is suppressed by the window.
	second := s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(80.00), RecordedAt: now.Add(time.Minute)})
	alerts, err = engine.CheckAndCreate(context.Background(), testProduct(), &second)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	// Aging the first alert past the window unblocks the rule.
	s.alerts[0].CreatedAt = now.Add(-25 * time.Hour)
	alerts, err = engine.CheckAndCreate(context.Background(), testProduct(), &second)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, store.AlertKindPriceDrop, alerts[0].Kind)
}

func TestEngineDedupBoundaryExclusive(t *testing.T) {
	s := newMockStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(s, now)

	s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(100.00), RecordedAt: now.Add(-36 * time.Hour)})
	s.alerts = append(s.alerts, store.Alert{
		ProductID: 1,
		Kind:      store.AlertKindPriceDrop,
		CreatedAt: now.Add(-24 * time.Hour),
	})

	current := s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(85.00), RecordedAt: now})
	alerts, err := engine.CheckAndCreate(context.Background(), testProduct(), &current)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
}

func TestEnginePromoRisingEdge(t *testing.T) {
	s := newMockStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(s, now)

	s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(59.99), IsPromo: false, RecordedAt: now.Add(-6 * time.Hour)})
	current := s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(49.99), IsPromo: true, PromoPercentage: floatPtr(17), RecordedAt: now})

	alerts, err := engine.CheckAndCreate(context.Background(), testProduct(), &current)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, store.AlertKindPriceDrop, alerts[0].Kind)
	assert.Equal(t, store.AlertKindPromoDetected, alerts[1].Kind)
	assert.Contains(t, alerts[1].Message, "save 17%")
}

func TestEnginePromoStillOnNoRepeat(t *testing.T) {
	s := newMockStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(s, now)

	s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(49.99), IsPromo: true, RecordedAt: now.Add(-48 * time.Hour)})
	current := s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(49.99), IsPromo: true, RecordedAt: now})

	alerts, err := engine.CheckAndCreate(context.Background(), testProduct(), &current)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestEnginePromoAfterFailedCheck(t *testing.T) {
	s := newMockStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(s, now)

	// The preceding entry is a failed check; its promo flag still gates
	// the rising edge.
	s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(49.99), IsPromo: true, RecordedAt: now.Add(-12 * time.Hour)})
	s.addHistory(store.PriceHistory{ProductID: 1, Price: nil, IsPromo: false, RecordedAt: now.Add(-6 * time.Hour)})
	current := s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(49.99), IsPromo: true, RecordedAt: now})

	alerts, err := engine.CheckAndCreate(context.Background(), testProduct(), &current)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, store.AlertKindPromoDetected, alerts[0].Kind)
}

func TestEngineNilPriceNoAlerts(t *testing.T) {
	s := newMockStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(s, now)

	s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(49.99), IsPromo: true, RecordedAt: now.Add(-6 * time.Hour)})
	current := s.addHistory(store.PriceHistory{ProductID: 1, Price: nil, IsPromo: true, RecordedAt: now})

	product := testProduct()
	product.TargetPrice = floatPtr(100.00)

	alerts, err := engine.CheckAndCreate(context.Background(), product, &current)
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Empty(t, s.alerts)
}

func TestEngineMultipleKindsOrdered(t *testing.T) {
	s := newMockStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(s, now)

	s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(100.00), IsPromo: false, RecordedAt: now.Add(-6 * time.Hour)})
	current := s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(75.00), IsPromo: true, PromoPercentage: floatPtr(25), RecordedAt: now})

	product := testProduct()
	product.TargetPrice = floatPtr(80.00)

	alerts, err := engine.CheckAndCreate(context.Background(), product, &current)
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, store.AlertKindTargetReached, alerts[0].Kind)
	assert.Equal(t, store.AlertKindPriceDrop, alerts[1].Kind)
	assert.Equal(t, store.AlertKindPromoDetected, alerts[2].Kind)
}

func TestEngineCreateFailurePartialResult(t *testing.T) {
	s := newMockStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(s, now)

	s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(100.00), RecordedAt: now.Add(-6 * time.Hour)})
	current := s.addHistory(store.PriceHistory{ProductID: 1, Price: floatPtr(85.00), RecordedAt: now})
	s.createErr = errors.New("insert failed")

	alerts, err := engine.CheckAndCreate(context.Background(), testProduct(), &current)
	require.Error(t, err)
	assert.Empty(t, alerts)
}
