package domain

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SummaryHeader is the column layout of a yearly summary.
var SummaryHeader = []string{
	"SITE_NUMBER", "LATITUDE", "LONGITUDE", "ELEVATION",
	"AVERAGE_TEMP", "DEWP", "STP", "MIN", "MAX", "PRCP",
}

// SiteAverages is one summary row: a station's spatial attributes and the
// mean of each metric over the year. A metric with no readings is NaN.
type SiteAverages struct {
	Station   string
	Latitude  string
	Longitude string
	Elevation string

	Temp     float64
	DewPoint float64
	Pressure float64
	Min      float64
	Max      float64
	Precip   float64
}

// YearlySummary is the consolidated per-station averages for one year, in
// file-processing order.
type YearlySummary struct {
	Year  string
	Sites []SiteAverages
}

// Summarize reduces a validated station-year file to its yearly averages.
// Spatial attributes come from the first row.
func Summarize(file StationYearFile) (SiteAverages, error) {
	if len(file.Records) == 0 {
		return SiteAverages{}, fmt.Errorf("summarize: %w", ErrEmptyData)
	}
	first := file.Records[0]

	var temp, dewp, stp, lo, hi, prcp mean
	for _, rec := range file.Records {
		temp.add(rec.Temp)
		dewp.add(rec.DewPoint)
		stp.add(rec.Pressure)
		lo.add(rec.Min)
		hi.add(rec.Max)
		prcp.add(rec.Precip)
	}

	return SiteAverages{
		Station:   first.Station,
		Latitude:  first.Latitude,
		Longitude: first.Longitude,
		Elevation: first.Elevation,
		Temp:      temp.value(),
		DewPoint:  dewp.value(),
		Pressure:  stp.value(),
		Min:       lo.value(),
		Max:       hi.value(),
		Precip:    prcp.value(),
	}, nil
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(r Reading) {
	if !r.OK {
		return
	}
	m.sum += r.Value
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return math.NaN()
	}
	return m.sum / float64(m.n)
}

// Encode renders the summary as CSV: the header, then one line per site.
func (s YearlySummary) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(SummaryHeader); err != nil {
		return nil, fmt.Errorf("encode summary header: %w", err)
	}
	for _, site := range s.Sites {
		row := []string{
			site.Station, site.Latitude, site.Longitude, site.Elevation,
			FormatMean(site.Temp), FormatMean(site.DewPoint), FormatMean(site.Pressure),
			FormatMean(site.Min), FormatMean(site.Max), FormatMean(site.Precip),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("encode summary row %s: %w", site.Station, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatMean renders an average as the shortest decimal that round-trips,
// keeping a ".0" on integral values (55 -> "55.0"). NaN renders empty.
func FormatMean(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') && !math.IsInf(v, 0) {
		s += ".0"
	}
	return s
}
