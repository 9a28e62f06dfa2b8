// Package report writes evaluation and search results as CSV, JSON and
// box plots.
package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/YuminosukeSato/cvbench/evaluation"
	"github.com/YuminosukeSato/cvbench/search"
)

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteFolds writes one row per fold with one column per metric.
func WriteFolds(w io.Writer, rs *evaluation.ResultSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rs.Names()); err != nil {
		return errors.Wrap(err, "report: write fold header")
	}
	for _, row := range rs.Rows() {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = formatFloat(v)
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "report: write fold row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "report: flush folds")
}

// axesOf returns the union of axis names over the table, in first-seen order.
func axesOf(table []search.Row) []string {
	seen := map[string]bool{}
	var axes []string
	for _, row := range table {
		for _, b := range row.Config.Bindings {
			if !seen[b.Axis] {
				seen[b.Axis] = true
				axes = append(axes, b.Axis)
			}
		}
	}
	return axes
}

// metricsOf returns the metric names of the first evaluated row.
func metricsOf(table []search.Row) []string {
	for _, row := range table {
		if row.Valid() {
			return row.Results.Names()
		}
	}
	return nil
}

// ranks assigns 1 to the best score; equal scores share a rank and the
// lower index sorts first. Failed rows get 0.
func ranks(table []search.Row) []int {
	order := make([]int, 0, len(table))
	for i, row := range table {
		if row.Valid() && !math.IsNaN(row.Score) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return table[order[a]].Score > table[order[b]].Score
	})
	out := make([]int, len(table))
	for pos, i := range order {
		if pos > 0 && table[order[pos-1]].Score == table[i].Score {
			out[i] = out[order[pos-1]]
			continue
		}
		out[i] = pos + 1
	}
	return out
}

// WriteSearch writes one row per configuration: its index, the label of
// every axis, mean and std of every metric, the rank by primary metric and
// the error of failed configurations.
func WriteSearch(w io.Writer, res *search.Result) error {
	axes := axesOf(res.Table)
	names := metricsOf(res.Table)

	header := []string{"index"}
	for _, a := range axes {
		header = append(header, "param_"+a)
	}
	for _, m := range names {
		header = append(header, "mean_test_"+m, "std_test_"+m)
	}
	header = append(header, "rank_test_"+res.Primary, "error")

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "report: write search header")
	}
	rank := ranks(res.Table)
	for i, row := range res.Table {
		rec := []string{strconv.Itoa(row.Config.Index)}
		for _, a := range axes {
			rec = append(rec, row.Config.Label(a))
		}
		for _, m := range names {
			mean, std := math.NaN(), math.NaN()
			if row.Valid() {
				mean, _ = row.Results.Mean(m)
				std, _ = row.Results.Std(m)
			}
			rec = append(rec, formatFloat(mean), formatFloat(std))
		}
		errText := ""
		if row.Err != nil {
			errText = row.Err.Error()
		}
		rec = append(rec, strconv.Itoa(rank[i]), errText)
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "report: write search row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "report: flush search")
}

// Best is the JSON document describing the winning configuration.
type Best struct {
	Index  int               `json:"index"`
	Score  float64           `json:"score"`
	Metric string            `json:"metric"`
	RunID  string            `json:"run_id"`
	Params map[string]string `json:"params"`
}

// NewBest extracts the winning configuration of res.
func NewBest(res *search.Result) Best {
	return Best{
		Index:  res.Best.Index,
		Score:  res.Score,
		Metric: res.Primary,
		RunID:  res.RunID,
		Params: res.Best.Params(),
	}
}

// WriteBest writes NewBest(res) as indented JSON.
func WriteBest(w io.Writer, res *search.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(NewBest(res)), "report: encode best")
}
