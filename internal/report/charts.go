package report

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/dbailuk/arcgis-automation/internal/errors"
	"github.com/wcharczuk/go-chart/v2"
)

// ActivityPie renders the active/inactive user split. Returns (nil, nil)
// when there is no data to plot.
func ActivityPie(active, inactive int) (*bytes.Buffer, error) {
	if active+inactive == 0 {
		return nil, nil
	}

	pie := chart.PieChart{
		Title:  "Active vs. Inactive Users",
		Width:  600,
		Height: 600,
		Values: []chart.Value{
			{Value: float64(active), Label: fmt.Sprintf("Active Users (%d)", active)},
			{Value: float64(inactive), Label: fmt.Sprintf("Inactive Users (%d)", inactive)},
		},
	}

	buf := &bytes.Buffer{}
	if err := pie.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrChartRender, err.Error())
	}
	return buf, nil
}

// ActionsBar renders the suggested-actions distribution.
func ActionsBar(counts map[string]int) (*bytes.Buffer, error) {
	return countsBar("Suggested Actions Distribution", counts)
}

// RolesBar renders the user-role distribution.
func RolesBar(counts map[string]int) (*bytes.Buffer, error) {
	return countsBar("User Role Distribution", counts)
}

func countsBar(title string, counts map[string]int) (*bytes.Buffer, error) {
	if len(counts) == 0 {
		return nil, nil
	}

	// Sort labels so the chart layout is deterministic.
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	bars := make([]chart.Value, 0, len(labels))
	for _, label := range labels {
		bars = append(bars, chart.Value{Value: float64(counts[label]), Label: label})
	}

	bar := chart.BarChart{
		Title:    title,
		Width:    800,
		Height:   600,
		BarWidth: 60,
		Bars:     bars,
	}

	buf := &bytes.Buffer{}
	if err := bar.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrChartRender, err.Error())
	}
	return buf, nil
}
