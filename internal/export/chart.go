package export

import (
	"bytes"

	"github.com/wcharczuk/go-chart/v2"

	"tally/internal/core"
)

// totalsPie renders a pie of the period's income, expense and savings
// totals. Returns nil bytes when all three are zero, a pie of nothing
// renders as garbage.
func totalsPie(s core.PeriodSummary) ([]byte, error) {
	slices := []struct {
		label string
		total core.Money
	}{
		{"Income", s.Income},
		{"Expenses", s.Expense},
		{"Savings", s.Savings},
	}

	var values []chart.Value
	for _, sl := range slices {
		if sl.total.Cents == 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: sl.label + " " + sl.total.String(),
			Value: sl.total.Units(),
		})
	}
	if len(values) == 0 {
		return nil, nil
	}

	pie := chart.PieChart{
		Width:  512,
		Height: 512,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
