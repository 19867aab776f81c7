package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"ctrllab/internal/loop"
)

// ExportData is the flat JSON document written for one run.
type ExportData struct {
	ID       string             `json:"id,omitempty"`
	Plant    string             `json:"plant"`
	Stepper  string             `json:"stepper"`
	Law      string             `json:"law"`
	Dt       float64            `json:"dt"`
	Duration float64            `json:"duration"`
	Seed     int64              `json:"seed"`
	Steps    int                `json:"steps"`
	Times    []float64          `json:"times"`
	States   []loop.State       `json:"states"`
	Controls []loop.Control     `json:"controls"`
	Metrics  map[string]float64 `json:"metrics"`
}

// ExportJSON writes the run header and its full trajectory as indented
// JSON.
func ExportJSON(w io.Writer, run Run, res *loop.Result) error {
	doc := ExportData{
		ID:       run.ID,
		Plant:    run.Plant,
		Stepper:  run.Stepper,
		Law:      run.Law,
		Dt:       run.Dt,
		Duration: run.Duration,
		Seed:     run.Seed,
		Steps:    res.StepsTaken,
		Times:    res.Times,
		States:   res.States,
		Controls: res.Controls,
		Metrics:  res.Metrics,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ExportCSV writes the trajectory as time,x0..xn,u0..um rows. The final
// state has no control sample, so its control columns are zero-padded.
func ExportCSV(w io.Writer, res *loop.Result) error {
	cw := csv.NewWriter(w)

	if len(res.States) == 0 {
		cw.Flush()
		return cw.Error()
	}

	header := []string{"time"}
	for i := range res.States[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	nu := 0
	if len(res.Controls) > 0 {
		nu = len(res.Controls[0])
	}
	for i := 0; i < nu; i++ {
		header = append(header, fmt.Sprintf("u%d", i))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range res.States {
		row := make([]string, 0, len(header))
		row = append(row, formatSample(res.Times[i]))
		for _, v := range res.States[i] {
			row = append(row, formatSample(v))
		}
		if i < len(res.Controls) {
			for _, v := range res.Controls[i] {
				row = append(row, formatSample(v))
			}
		} else {
			for j := 0; j < nu; j++ {
				row = append(row, "0")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatSample(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
