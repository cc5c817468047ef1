package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// evalLog streams one CSV row per evaluation: the seed-averaged metrics
// followed by the clamped parameter values actually simulated.
type evalLog struct {
	file   *os.File
	writer *csv.Writer
}

// newEvalLog creates path and writes the header.
func newEvalLog(path string, params *ParamVector) (*evalLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating eval log: %w", err)
	}
	l := &evalLog{file: f, writer: csv.NewWriter(f)}

	header := []string{"eval", "fitness", "clustering", "diversity", "failed_seeds"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := l.write(header); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// Append records one evaluation.
func (l *evalLog) Append(n int, ev Evaluation, values []float64) error {
	row := []string{
		strconv.Itoa(n),
		strconv.FormatFloat(ev.Fitness, 'f', 6, 64),
		strconv.FormatFloat(ev.Clustering, 'f', 6, 64),
		strconv.FormatFloat(ev.Diversity, 'f', 6, 64),
		strconv.Itoa(ev.Failed),
	}
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	return l.write(row)
}

// write flushes every row so a killed run keeps its history.
func (l *evalLog) write(row []string) error {
	if err := l.writer.Write(row); err != nil {
		return fmt.Errorf("writing eval log: %w", err)
	}
	l.writer.Flush()
	return l.writer.Error()
}

// Close flushes and closes the file.
func (l *evalLog) Close() error {
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
