// Command genmock writes a station-year fixture tree for local runs and
// tests. Each year gets a set of consistent station files plus one file per
// failure kind the validator recognises.
//
// Usage:
//
//	go run ./cmd/genmock --out data/mock --years 1929,1930 --stations 5
package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alecthomas/kong"
	"github.com/couchcryptid/station-data-etl-service/internal/domain"
)

type cli struct {
	Out      string   `help:"Output directory for the fixture tree." default:"data/mock" type:"path"`
	Years    []string `help:"Years to generate." default:"1929,1930"`
	Stations int      `help:"Valid stations per year." default:"5"`
	Days     int      `help:"Daily rows per station file." default:"30"`
	Seed     uint64   `help:"Random seed for reproducible readings." default:"42"`
}

type station struct {
	id, lat, lon, elev string
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("genmock"),
		kong.Description("Generate station-year fixture files."),
	)
	ctx.FatalIfErrorf(c.run())
}

func (c *cli) run() error {
	if c.Stations < 1 || c.Days < 2 {
		return fmt.Errorf("need at least 1 station and 2 days, got %d and %d", c.Stations, c.Days)
	}
	rng := rand.New(rand.NewPCG(c.Seed, c.Seed))

	total := 0
	for _, year := range c.Years {
		if _, err := strconv.Atoi(year); err != nil {
			return fmt.Errorf("year %q: %w", year, err)
		}
		dir := filepath.Join(c.Out, year)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}

		for i := range c.Stations {
			st := station{
				id:   fmt.Sprintf("03%03d099999", i),
				lat:  strconv.FormatFloat(50+float64(i)*0.25, 'f', 3, 64),
				lon:  strconv.FormatFloat(-2-float64(i)*0.125, 'f', 3, 64),
				elev: strconv.FormatFloat(10+float64(i)*12.5, 'f', 1, 64),
			}
			if err := writeRecords(dir, st.id, records(rng, st, year, c.Days)); err != nil {
				return err
			}
			total++
		}

		n, err := writeFailures(rng, dir, year, c.Days)
		if err != nil {
			return err
		}
		total += n
		log.Printf("%s: %d valid, %d failing", year, c.Stations, n)
	}

	log.Printf("wrote %d files to %s", total, c.Out)
	return nil
}

// writeFailures writes one file per failure kind and returns how many.
func writeFailures(rng *rand.Rand, dir, year string, days int) (int, error) {
	base := station{lat: "58.217", lon: "-6.317", elev: "13.0"}

	// Latitude drifts by formatting halfway through the year.
	drift := base
	drift.id = "99001099999"
	recs := records(rng, drift, year, days)
	for i := days / 2; i < days; i++ {
		recs[i].Latitude = "58.2170"
	}
	if err := writeRecords(dir, drift.id, recs); err != nil {
		return 0, err
	}

	// Station id changes mid-file.
	changed := base
	changed.id = "99002099999"
	recs = records(rng, changed, year, days)
	recs[days-1].Station = "99002199999"
	if err := writeRecords(dir, changed.id, recs); err != nil {
		return 0, err
	}

	// Elevation blank throughout.
	blank := base
	blank.id = "99003099999"
	blank.elev = ""
	if err := writeRecords(dir, blank.id, records(rng, blank, year, days)); err != nil {
		return 0, err
	}

	// No ELEVATION column.
	rows := [][]string{{"STATION", "DATE", "LATITUDE", "LONGITUDE", "TEMP", "DEWP", "STP", "MIN", "MAX", "PRCP", "FRSHTT"}}
	rows = append(rows, []string{"99004099999", year + "-01-01", base.lat, base.lon, "45.1", "40.0", "1001.2", "40.0", "50.0", "0.01", "000000"})
	if err := writeRows(dir, "99004099999", rows); err != nil {
		return 0, err
	}

	// Empty object.
	if err := os.WriteFile(filepath.Join(dir, "99005099999.csv"), nil, 0o644); err != nil {
		return 0, err
	}

	// Ragged row. csv.Writer does not enforce a field count.
	rows = [][]string{
		{"STATION", "DATE", "LATITUDE", "LONGITUDE", "ELEVATION", "TEMP", "DEWP", "STP", "MIN", "MAX", "PRCP", "FRSHTT"},
		{"99006099999", year + "-01-01", base.lat, base.lon, base.elev},
	}
	if err := writeRows(dir, "99006099999", rows); err != nil {
		return 0, err
	}

	return 6, nil
}

func records(rng *rand.Rand, st station, year string, days int) []domain.DailyRecord {
	start, _ := time.Parse("2006", year)
	recs := make([]domain.DailyRecord, days)
	for i := range recs {
		temp := round1(30 + rng.Float64()*40)
		recs[i] = domain.DailyRecord{
			Station:   st.id,
			Latitude:  st.lat,
			Longitude: st.lon,
			Elevation: st.elev,
			Date:      start.AddDate(0, 0, i).Format(time.DateOnly),
			Temp:      domain.Present(temp),
			DewPoint:  domain.Present(round1(temp - rng.Float64()*10)),
			Pressure:  domain.Present(round1(990 + rng.Float64()*30)),
			Min:       domain.Present(round1(temp - 5)),
			Max:       domain.Present(round1(temp + 5)),
			Precip:    domain.Present(math.Round(rng.Float64()*100) / 100),
			Flags:     "000000",
		}
		// Roughly one day in ten has no dew point reading.
		if rng.IntN(10) == 0 {
			recs[i].DewPoint = domain.Reading{}
		}
	}
	return recs
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func writeRecords(dir, id string, recs []domain.DailyRecord) error {
	data, err := domain.EncodeStationYear(recs)
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	return os.WriteFile(filepath.Join(dir, id+".csv"), data, 0o644)
}

func writeRows(dir, id string, rows [][]string) error {
	f, err := os.Create(filepath.Join(dir, id+".csv"))
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", id, err)
	}
	return f.Close()
}
