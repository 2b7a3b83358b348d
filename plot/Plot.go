// Package plot renders experiment data as HTML line charts
package plot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/cartlearn/deepcart/utils/intutils"
)

// EpisodeReturns renders the episodic returns of a training run as a
// line chart and writes the chart to the HTML file filename. The
// series parameter maps series names to the per-episode returns to
// plot for that series.
func EpisodeReturns(filename, title string,
	series map[string][]float64) error {
	numEpisodes := 0
	for _, returns := range series {
		numEpisodes = intutils.Max(numEpisodes, len(returns))
	}
	if numEpisodes == 0 {
		return fmt.Errorf("episodereturns: no data to plot")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	var episodes []string
	for i := 0; i < numEpisodes; i++ {
		episodes = append(episodes, fmt.Sprintf("%d", i))
	}
	line = line.SetXAxis(episodes)

	for name, returns := range series {
		items := make([]opts.LineData, 0, len(returns))
		for _, r := range returns {
			items = append(items, opts.LineData{Value: r})
		}
		line.AddSeries(name, items)
	}

	page := components.NewPage()
	page.AddCharts(line)

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("episodereturns: could not create chart "+
				"directory: %v", err)
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("episodereturns: could not create chart file: %v",
			err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("episodereturns: could not render chart: %v", err)
	}
	return nil
}
