package domain

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// requiredColumns must be present for a file to decode. Spatial columns are
// not required here: their absence is a data-quality verdict, not a decoding
// failure.
var requiredColumns = []string{
	ColDate, ColTemp, ColDewPoint, ColPressure, ColMin, ColMax, ColPrecip, ColFlags,
}

// stationYearHeader is the column order written by EncodeStationYear.
var stationYearHeader = []string{
	ColStation, ColDate, ColLatitude, ColLongitude, ColElevation,
	ColTemp, ColDewPoint, ColPressure, ColMin, ColMax, ColPrecip, ColFlags,
}

// ParseStationYear decodes a station-year CSV. It returns an error wrapping
// ErrEmptyData when there is no header or no data rows, and ErrMalformed for
// CSV syntax errors, ragged rows, or missing measurement columns.
func ParseStationYear(data []byte) (StationYearFile, error) {
	r := csv.NewReader(bytes.NewReader(data))

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return StationYearFile{}, fmt.Errorf("parse station-year: %w", ErrEmptyData)
	}
	if err != nil {
		return StationYearFile{}, fmt.Errorf("parse station-year header: %w: %w", ErrMalformed, err)
	}

	idx := indexColumns(header)
	if len(idx) == 0 {
		return StationYearFile{}, fmt.Errorf("parse station-year: blank header: %w", ErrEmptyData)
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return StationYearFile{}, fmt.Errorf("parse station-year: missing column %s: %w", col, ErrMalformed)
		}
	}

	var file StationYearFile
	for _, f := range SpatialFields {
		_, ok := idx[f.String()]
		file.absent[f] = !ok
	}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return StationYearFile{}, fmt.Errorf("parse station-year row: %w: %w", ErrMalformed, err)
		}
		file.Records = append(file.Records, decodeRecord(row, idx))
	}

	if len(file.Records) == 0 {
		return StationYearFile{}, fmt.Errorf("parse station-year: no rows: %w", ErrEmptyData)
	}
	return file, nil
}

// indexColumns maps trimmed column names to their position. The first
// occurrence of a duplicated name wins.
func indexColumns(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if name == "" {
			continue
		}
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	return idx
}

func decodeRecord(row []string, idx map[string]int) DailyRecord {
	cell := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	return DailyRecord{
		Station:   cell(ColStation),
		Latitude:  cell(ColLatitude),
		Longitude: cell(ColLongitude),
		Elevation: cell(ColElevation),
		Date:      cell(ColDate),
		Temp:      parseReading(cell(ColTemp)),
		DewPoint:  parseReading(cell(ColDewPoint)),
		Pressure:  parseReading(cell(ColPressure)),
		Min:       parseReading(cell(ColMin)),
		Max:       parseReading(cell(ColMax)),
		Precip:    parseReading(cell(ColPrecip)),
		Flags:     cell(ColFlags),
	}
}

// parseReading returns an absent reading for blank or unparseable cells.
func parseReading(s string) Reading {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reading{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Reading{}
	}
	return Present(v)
}

// EncodeStationYear writes records as a station-year CSV with the full header.
func EncodeStationYear(records []DailyRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(stationYearHeader); err != nil {
		return nil, fmt.Errorf("encode station-year header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.Station, rec.Date, rec.Latitude, rec.Longitude, rec.Elevation,
			formatReading(rec.Temp), formatReading(rec.DewPoint), formatReading(rec.Pressure),
			formatReading(rec.Min), formatReading(rec.Max), formatReading(rec.Precip),
			rec.Flags,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("encode station-year row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode station-year: %w", err)
	}
	return buf.Bytes(), nil
}

func formatReading(r Reading) string {
	if !r.OK {
		return ""
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}
