package transforms

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avasseur/folio/internal/dataset"
)

func fixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	d, err := dataset.New(
		dataset.ColumnSpec{Name: ColISIN, Kind: dataset.KindString, Values: []any{
			"US0846707026", "US0846707026", "LU0131510165",
		}},
		dataset.ColumnSpec{Name: ColSecurityName, Kind: dataset.KindString, Values: []any{
			"Berkshire Hathaway Inc.", "Berkshire Hathaway Inc.", "Indep. et Expansion Small A",
		}},
		dataset.ColumnSpec{Name: "brokerName", Kind: dataset.KindString, Values: []any{
			"BourseDirect", "TradeRepublic", "BourseDirect",
		}},
		dataset.ColumnSpec{Name: ColQuantity, Kind: dataset.KindNumeric, Values: []any{
			10.0, 6.0, 20.0,
		}},
		dataset.ColumnSpec{Name: ColUnitPrice, Kind: dataset.KindNumeric, Values: []any{
			300.0, 320.0, 550.0,
		}},
		dataset.ColumnSpec{Name: ColTotalPrice, Kind: dataset.KindNumeric, Values: []any{
			3000.0, 1920.0, 11000.0,
		}},
	)
	require.NoError(t, err)
	return d
}

func TestSumQuantityByAttribute(t *testing.T) {
	t.Run("returns exactly the attribute and summed quantity", func(t *testing.T) {
		out, err := SumQuantityByAttribute("brokerName", fixture(t))
		require.NoError(t, err)

		assert.Equal(t, []string{"brokerName", ColQuantity}, out.Columns())
		brokers, err := out.Strings("brokerName")
		require.NoError(t, err)
		quantities, err := out.Floats(ColQuantity)
		require.NoError(t, err)
		assert.Equal(t, []string{"BourseDirect", "TradeRepublic"}, brokers)
		assert.Equal(t, []float64{30, 6}, quantities)
	})

	t.Run("unknown attribute aborts", func(t *testing.T) {
		_, err := SumQuantityByAttribute("country", fixture(t))
		assert.ErrorIs(t, err, dataset.ErrMissingColumn)
	})
}

func TestAggregateCostPrice(t *testing.T) {
	out, err := AggregateCostPrice(fixture(t))
	require.NoError(t, err)

	require.Equal(t, 2, out.Len())
	assert.Equal(t, []string{ColISIN, ColSecurityName, ColQuantity, ColCostPrice, ColTotalPrice}, out.Columns())

	isins, err := out.Strings(ColISIN)
	require.NoError(t, err)
	quantities, err := out.Floats(ColQuantity)
	require.NoError(t, err)
	costPrices, err := out.Floats(ColCostPrice)
	require.NoError(t, err)
	totals, err := out.Floats(ColTotalPrice)
	require.NoError(t, err)

	assert.Equal(t, []string{"LU0131510165", "US0846707026"}, isins)
	assert.Equal(t, []float64{20, 16}, quantities)
	assert.Equal(t, []float64{550, 310}, costPrices)
	assert.Equal(t, []float64{11000, 4920}, totals)
}

func TestComputeCumulativeReturn(t *testing.T) {
	positions, err := dataset.New(
		dataset.ColumnSpec{Name: ColQuantity, Kind: dataset.KindNumeric, Values: []any{10.0, 5.0}},
		dataset.ColumnSpec{Name: ColLastPrice, Kind: dataset.KindNumeric, Values: []any{390.0, 100.0}},
		dataset.ColumnSpec{Name: ColTotalPrice, Kind: dataset.KindNumeric, Values: []any{3000.0, 600.0}},
	)
	require.NoError(t, err)

	out, err := ComputeCumulativeReturn(positions)
	require.NoError(t, err)

	totalLast, err := out.Floats(ColTotalLastPrice)
	require.NoError(t, err)
	returns, err := out.Floats(ColCumulativeReturn)
	require.NoError(t, err)

	assert.Equal(t, []float64{3900, 500}, totalLast)
	assert.InDelta(t, 0.30, returns[0], 1e-12)
	assert.InDelta(t, -float64(1)/6, returns[1], 1e-12)

	t.Run("zero total price yields a non-finite return, not an error", func(t *testing.T) {
		free, err := dataset.New(
			dataset.ColumnSpec{Name: ColQuantity, Kind: dataset.KindNumeric, Values: []any{1.0}},
			dataset.ColumnSpec{Name: ColLastPrice, Kind: dataset.KindNumeric, Values: []any{50.0}},
			dataset.ColumnSpec{Name: ColTotalPrice, Kind: dataset.KindNumeric, Values: []any{0.0}},
		)
		require.NoError(t, err)
		out, err := ComputeCumulativeReturn(free)
		require.NoError(t, err)
		returns, err := out.Floats(ColCumulativeReturn)
		require.NoError(t, err)
		assert.True(t, math.IsInf(returns[0], 1))
	})

	t.Run("missing required column aborts", func(t *testing.T) {
		incomplete, err := dataset.New(
			dataset.ColumnSpec{Name: ColQuantity, Kind: dataset.KindNumeric, Values: []any{1.0}},
		)
		require.NoError(t, err)
		_, err = ComputeCumulativeReturn(incomplete)
		assert.ErrorIs(t, err, dataset.ErrMissingColumn)
	})
}
