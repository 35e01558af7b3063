package compare

import (
	"errors"
	"io"

	"github.com/wcharczuk/go-chart/v2"
)

// WriteChart renders the compressed size of every result as an SVG bar chart.
func WriteChart(w io.Writer, title string, results []Result) error {
	if len(results) == 0 {
		return errors.New("compare: no results to chart")
	}

	bars := make([]chart.Value, 0, len(results))
	for _, r := range results {
		bars = append(bars, chart.Value{
			Label: r.Name,
			Value: float64(r.Size),
		})
	}

	graph := chart.BarChart{
		Title:    title,
		Height:   512,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Bars: bars,
	}
	return graph.Render(chart.SVG, w)
}
