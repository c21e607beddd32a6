package overview

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avasseur/folio/internal/dataset"
	"github.com/avasseur/folio/internal/domain"
	"github.com/avasseur/folio/internal/modules/enrichment"
)

// MockSource is a mock transaction source for testing.
type MockSource struct {
	mock.Mock
}

func (m *MockSource) FetchByAttribute(ctx context.Context, attribute domain.Attribute) (*dataset.Dataset, error) {
	args := m.Called(ctx, attribute)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dataset.Dataset), args.Error(1)
}

func (m *MockSource) FetchAll(ctx context.Context) (*dataset.Dataset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dataset.Dataset), args.Error(1)
}

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

func securityTransactions(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		dataset.ColumnSpec{Name: "isin", Kind: dataset.KindString, Values: []any{
			"US0846707026", "US0846707026", "LU0131510165",
		}},
		dataset.ColumnSpec{Name: "securityName", Kind: dataset.KindString, Values: []any{
			"Berkshire Hathaway Inc.", "Berkshire Hathaway Inc.", "Independance et Expansion France Small A",
		}},
		dataset.ColumnSpec{Name: "quantity", Kind: dataset.KindNumeric, Values: []any{
			10.0, 6.0, 20.0,
		}},
		dataset.ColumnSpec{Name: "unitPrice", Kind: dataset.KindNumeric, Values: []any{
			300.0, 320.0, 550.0,
		}},
		dataset.ColumnSpec{Name: "totalPrice", Kind: dataset.KindNumeric, Values: []any{
			3000.0, 1920.0, 11000.0,
		}},
	)
	require.NoError(t, err)
	return ds
}

func newService(source domain.TransactionSource, oracle domain.PriceOracle) *Service {
	return NewService(source, enrichment.New(oracle, zerolog.Nop()), zerolog.Nop())
}

func TestByAttribute(t *testing.T) {
	asOf := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	source := new(MockSource)
	source.On("FetchByAttribute", mock.Anything, domain.AttributeSecurity).
		Return(securityTransactions(t), nil)

	oracle := new(MockOracle)
	oracle.On("CurrentPrice", mock.Anything, "LU0131510165").
		Return(domain.Quote{Price: 611.0, AsOf: asOf}, nil)
	oracle.On("CurrentPrice", mock.Anything, "US0846707026").
		Return(domain.Quote{Price: 412.5, AsOf: asOf}, nil)
	oracle.On("PreviousClose", mock.Anything, "LU0131510165").Return(600.0, nil)
	oracle.On("PreviousClose", mock.Anything, "US0846707026").Return(408.0, nil)

	svc := newService(source, oracle)
	out, err := svc.ByAttribute(context.Background(), domain.AttributeSecurity)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"isin", "quantity", "lastDate", "lastPrice", "previousClosePrice", "totalClosePrice",
	}, out.Columns())

	isins, err := out.Strings("isin")
	require.NoError(t, err)
	quantities, err := out.Floats("quantity")
	require.NoError(t, err)
	totals, err := out.Floats("totalClosePrice")
	require.NoError(t, err)

	// Groups come back in ascending key order with summed quantities.
	assert.Equal(t, []string{"LU0131510165", "US0846707026"}, isins)
	assert.Equal(t, []float64{20, 16}, quantities)
	assert.Equal(t, []float64{20 * 600.0, 16 * 408.0}, totals)
}

func TestByAttributeUnsupportedAttribute(t *testing.T) {
	source := new(MockSource)
	source.On("FetchByAttribute", mock.Anything, domain.Attribute("country")).
		Return(nil, domain.ErrUnsupportedAttribute)

	svc := newService(source, new(MockOracle))
	_, err := svc.ByAttribute(context.Background(), domain.Attribute("country"))

	// The originating error is surfaced unchanged in meaning.
	assert.ErrorIs(t, err, domain.ErrUnsupportedAttribute)
}

func TestByAttributeAbortsAfterFailedStage(t *testing.T) {
	// A dataset without a quantity column makes aggregation fail; the
	// oracle must never be consulted afterwards.
	broken, err := dataset.New(
		dataset.ColumnSpec{Name: "isin", Kind: dataset.KindString, Values: []any{"US0846707026"}},
	)
	require.NoError(t, err)

	source := new(MockSource)
	source.On("FetchByAttribute", mock.Anything, domain.AttributeSecurity).Return(broken, nil)

	oracle := new(MockOracle)
	svc := newService(source, oracle)

	_, err = svc.ByAttribute(context.Background(), domain.AttributeSecurity)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
	oracle.AssertNotCalled(t, "CurrentPrice", mock.Anything, mock.Anything)
}

func TestPositions(t *testing.T) {
	asOf := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	source := new(MockSource)
	source.On("FetchByAttribute", mock.Anything, domain.AttributeSecurity).
		Return(securityTransactions(t), nil)

	oracle := new(MockOracle)
	oracle.On("CurrentPrice", mock.Anything, "LU0131510165").
		Return(domain.Quote{Price: 611.0, AsOf: asOf}, nil)
	oracle.On("CurrentPrice", mock.Anything, "US0846707026").
		Return(domain.Quote{Price: 412.5, AsOf: asOf}, nil)

	svc := newService(source, oracle)
	out, err := svc.Positions(context.Background())
	require.NoError(t, err)

	returns, err := out.Floats("cumulativeReturn")
	require.NoError(t, err)
	require.Len(t, returns, 2)

	// LU: 20 shares at 611 vs 11000 cost; US: 16 shares at 412.5 vs 4920 cost.
	assert.InDelta(t, (20*611.0-11000)/11000, returns[0], 1e-12)
	assert.InDelta(t, (16*412.5-4920)/4920, returns[1], 1e-12)
}
