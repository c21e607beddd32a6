package enrichment

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avasseur/folio/internal/dataset"
	"github.com/avasseur/folio/internal/domain"
)

// MockOracle is a mock price oracle for testing.
type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) CurrentPrice(ctx context.Context, identifier string) (domain.Quote, error) {
	args := m.Called(ctx, identifier)
	return args.Get(0).(domain.Quote), args.Error(1)
}

func (m *MockOracle) PreviousClose(ctx context.Context, identifier string) (float64, error) {
	args := m.Called(ctx, identifier)
	return args.Get(0).(float64), args.Error(1)
}

// MockBatchOracle also implements domain.BatchOracle.
type MockBatchOracle struct {
	MockOracle
}

func (m *MockBatchOracle) BatchCurrent(ctx context.Context, identifiers []string) []domain.QuoteResult {
	args := m.Called(ctx, identifiers)
	return args.Get(0).([]domain.QuoteResult)
}

func (m *MockBatchOracle) BatchPreviousClose(ctx context.Context, identifiers []string) []domain.PriceResult {
	args := m.Called(ctx, identifiers)
	return args.Get(0).([]domain.PriceResult)
}

func positionsFixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	d, err := dataset.New(
		dataset.ColumnSpec{Name: "isin", Kind: dataset.KindString, Values: []any{
			"US0846707026", "LU0131510165",
		}},
		dataset.ColumnSpec{Name: "quantity", Kind: dataset.KindNumeric, Values: []any{
			10.0, 20.0,
		}},
	)
	require.NoError(t, err)
	return d
}

func TestAttachLastPrice(t *testing.T) {
	asOf := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	t.Run("appends aligned lastDate and lastPrice columns", func(t *testing.T) {
		oracle := new(MockOracle)
		oracle.On("CurrentPrice", mock.Anything, "US0846707026").
			Return(domain.Quote{Price: 412.5, AsOf: asOf}, nil)
		oracle.On("CurrentPrice", mock.Anything, "LU0131510165").
			Return(domain.Quote{Price: 611.0, AsOf: asOf}, nil)

		svc := New(oracle, zerolog.Nop())
		out, err := svc.AttachLastPrice(context.Background(), positionsFixture(t), "isin")
		require.NoError(t, err)

		assert.Equal(t, []string{"isin", "quantity", ColLastDate, ColLastPrice}, out.Columns())
		prices, err := out.Floats(ColLastPrice)
		require.NoError(t, err)
		assert.Equal(t, []float64{412.5, 611.0}, prices)
		oracle.AssertExpectations(t)
	})

	t.Run("one bad identifier never aborts the batch", func(t *testing.T) {
		oracle := new(MockOracle)
		oracle.On("CurrentPrice", mock.Anything, "US0846707026").
			Return(domain.Quote{}, domain.ErrSecurityNotFound)
		oracle.On("CurrentPrice", mock.Anything, "LU0131510165").
			Return(domain.Quote{Price: 611.0, AsOf: asOf}, nil)

		svc := New(oracle, zerolog.Nop())
		out, err := svc.AttachLastPrice(context.Background(), positionsFixture(t), "isin")
		require.NoError(t, err)

		prices, err := out.Floats(ColLastPrice)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(prices[0]))
		assert.Equal(t, 611.0, prices[1])

		dates, ok := out.Column(ColLastDate)
		require.True(t, ok)
		assert.Nil(t, dates.Values[0])
		assert.Equal(t, asOf, dates.Values[1])
	})

	t.Run("empty dataset gets empty columns and no oracle calls", func(t *testing.T) {
		empty, err := dataset.New(
			dataset.ColumnSpec{Name: "isin", Kind: dataset.KindString, Values: []any{}},
		)
		require.NoError(t, err)

		oracle := new(MockOracle)
		svc := New(oracle, zerolog.Nop())
		out, err := svc.AttachLastPrice(context.Background(), empty, "isin")
		require.NoError(t, err)

		assert.Equal(t, 0, out.Len())
		assert.Equal(t, []string{"isin", ColLastDate, ColLastPrice}, out.Columns())
		oracle.AssertNotCalled(t, "CurrentPrice", mock.Anything, mock.Anything)
	})

	t.Run("missing security column aborts", func(t *testing.T) {
		svc := New(new(MockOracle), zerolog.Nop())
		_, err := svc.AttachLastPrice(context.Background(), positionsFixture(t), "symbol")
		assert.ErrorIs(t, err, dataset.ErrMissingColumn)
	})

	t.Run("prefers the batch path when the oracle supports it", func(t *testing.T) {
		oracle := new(MockBatchOracle)
		oracle.On("BatchCurrent", mock.Anything, []string{"US0846707026", "LU0131510165"}).
			Return([]domain.QuoteResult{
				{Quote: domain.Quote{Price: 412.5, AsOf: asOf}},
				{Quote: domain.Quote{Price: 611.0, AsOf: asOf}},
			})

		svc := New(oracle, zerolog.Nop())
		out, err := svc.AttachLastPrice(context.Background(), positionsFixture(t), "isin")
		require.NoError(t, err)

		prices, err := out.Floats(ColLastPrice)
		require.NoError(t, err)
		assert.Equal(t, []float64{412.5, 611.0}, prices)
		oracle.AssertNotCalled(t, "CurrentPrice", mock.Anything, mock.Anything)
	})
}

func TestAttachPreviousClose(t *testing.T) {
	t.Run("derives totalClosePrice when quantity exists", func(t *testing.T) {
		oracle := new(MockOracle)
		oracle.On("PreviousClose", mock.Anything, "US0846707026").Return(400.0, nil)
		oracle.On("PreviousClose", mock.Anything, "LU0131510165").Return(600.0, nil)

		svc := New(oracle, zerolog.Nop())
		out, err := svc.AttachPreviousClose(context.Background(), positionsFixture(t), "isin")
		require.NoError(t, err)

		closes, err := out.Floats(ColPreviousClose)
		require.NoError(t, err)
		totals, err := out.Floats(ColTotalClosePrice)
		require.NoError(t, err)
		assert.Equal(t, []float64{400, 600}, closes)
		assert.Equal(t, []float64{4000, 12000}, totals)
	})

	t.Run("totalClosePrice is zeros without a quantity column", func(t *testing.T) {
		securities, err := dataset.New(
			dataset.ColumnSpec{Name: "isin", Kind: dataset.KindString, Values: []any{"US0846707026"}},
		)
		require.NoError(t, err)

		oracle := new(MockOracle)
		oracle.On("PreviousClose", mock.Anything, "US0846707026").Return(400.0, nil)

		svc := New(oracle, zerolog.Nop())
		out, err := svc.AttachPreviousClose(context.Background(), securities, "isin")
		require.NoError(t, err)

		totals, err := out.Floats(ColTotalClosePrice)
		require.NoError(t, err)
		assert.Equal(t, []float64{0}, totals)
	})

	t.Run("failed lookup writes a sentinel and continues", func(t *testing.T) {
		oracle := new(MockOracle)
		oracle.On("PreviousClose", mock.Anything, "US0846707026").
			Return(0.0, domain.ErrUnavailable)
		oracle.On("PreviousClose", mock.Anything, "LU0131510165").Return(600.0, nil)

		svc := New(oracle, zerolog.Nop())
		out, err := svc.AttachPreviousClose(context.Background(), positionsFixture(t), "isin")
		require.NoError(t, err)

		closes, err := out.Floats(ColPreviousClose)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(closes[0]))
		assert.Equal(t, 600.0, closes[1])
	})
}
