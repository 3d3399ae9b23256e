// Package csvdata turns an uploaded delimited-text blob into a models.Dataset.
package csvdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/BerylCAtieno/customer-persona-agent/internal/errs"
	"github.com/BerylCAtieno/customer-persona-agent/internal/models"
)

// Parse reads text with a header row. Cells are typed dynamically: numbers
// become float64, true/false become bool, empty cells become nil and anything
// else stays a string. Rows short of the header simply lack the trailing keys.
//
// Rows whose idField is nil, or that have no field besides it, are dropped.
func Parse(text, idField string) (*models.Dataset, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errs.Input("CSV data is required.")
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = sniffDelimiter(text)

	header, err := r.Read()
	if err != nil {
		return nil, &errs.InputError{Msg: "read CSV header", Err: err}
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	if !contains(header, idField) {
		return nil, errs.Input("CSV header has no %q column", idField)
	}

	ds := &models.Dataset{Columns: header}
	line := 1
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, &errs.InputError{Msg: fmt.Sprintf("read CSV line %d", line), Err: err}
		}
		rec := make(models.Record, len(header))
		for i, cell := range row {
			if i >= len(header) {
				break
			}
			rec[header[i]] = typed(cell)
		}
		if rec[idField] == nil || len(rec) < 2 {
			continue
		}
		ds.Records = append(ds.Records, rec)
	}
	if len(ds.Records) == 0 {
		return nil, errs.Input("CSV data contains no usable rows")
	}
	return ds, nil
}

func typed(cell string) any {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

// sniffDelimiter picks among ',', ';' and tab by counting them in the header line.
func sniffDelimiter(text string) rune {
	first, _, _ := strings.Cut(text, "\n")
	best, bestN := ',', strings.Count(first, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(first, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
