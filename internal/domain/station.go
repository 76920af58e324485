package domain

// Column names of the station-year schema.
const (
	ColStation   = "STATION"
	ColLatitude  = "LATITUDE"
	ColLongitude = "LONGITUDE"
	ColElevation = "ELEVATION"
	ColDate      = "DATE"
	ColTemp      = "TEMP"
	ColDewPoint  = "DEWP"
	ColPressure  = "STP"
	ColMin       = "MIN"
	ColMax       = "MAX"
	ColPrecip    = "PRCP"
	ColFlags     = "FRSHTT"
)

// SpatialField identifies one of the per-row spatial attributes.
type SpatialField int

const (
	FieldStation SpatialField = iota
	FieldLatitude
	FieldLongitude
	FieldElevation
)

// SpatialFields lists the spatial attributes in check order.
var SpatialFields = [...]SpatialField{FieldStation, FieldLatitude, FieldLongitude, FieldElevation}

// String returns the CSV column name of the field.
func (f SpatialField) String() string {
	switch f {
	case FieldStation:
		return ColStation
	case FieldLatitude:
		return ColLatitude
	case FieldLongitude:
		return ColLongitude
	case FieldElevation:
		return ColElevation
	default:
		return "UNKNOWN"
	}
}

// Reading is an optional numeric cell. OK is false for blank or unparseable
// input.
type Reading struct {
	Value float64
	OK    bool
}

// Present returns a present reading.
func Present(v float64) Reading { return Reading{Value: v, OK: true} }

// DailyRecord is one row of a station-year file. Spatial attributes are kept
// as raw text so that formatting drift is detectable.
type DailyRecord struct {
	Station   string
	Latitude  string
	Longitude string
	Elevation string

	Date     string
	Temp     Reading
	DewPoint Reading
	Pressure Reading
	Min      Reading
	Max      Reading
	Precip   Reading
	Flags    string
}

// Spatial returns the raw value of a spatial field.
func (r DailyRecord) Spatial(f SpatialField) string {
	switch f {
	case FieldStation:
		return r.Station
	case FieldLatitude:
		return r.Latitude
	case FieldLongitude:
		return r.Longitude
	case FieldElevation:
		return r.Elevation
	default:
		return ""
	}
}

// StationYearFile is a decoded station-year file.
type StationYearFile struct {
	Records []DailyRecord

	// absent records spatial columns missing from the header.
	absent [len(SpatialFields)]bool
}

// HasColumn reports whether the file's header carried the spatial column.
func (f StationYearFile) HasColumn(field SpatialField) bool {
	return !f.absent[field]
}
