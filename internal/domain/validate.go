package domain

import "errors"

// Verdict is the outcome of validating one station-year file.
type Verdict int

const (
	Valid Verdict = iota
	MissingSpatial
	NonUniqueSpatial
	EmptyData
	ParseError
	NotFound
)

// Verdicts lists every verdict, Valid first.
var Verdicts = [...]Verdict{Valid, MissingSpatial, NonUniqueSpatial, EmptyData, ParseError, NotFound}

// String returns the reason code used in quarantine keys, metrics and logs.
func (v Verdict) String() string {
	switch v {
	case Valid:
		return "valid"
	case MissingSpatial:
		return "missing_spatial"
	case NonUniqueSpatial:
		return "non_unique_spatial"
	case EmptyData:
		return "empty_data"
	case ParseError:
		return "parse_error"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Inspection is the result of checking a file's content.
type Inspection struct {
	Verdict Verdict

	// Column names the spatial column that failed a check.
	Column string

	// Err carries the decoding failure behind EmptyData and ParseError.
	Err error
}

// Inspect decodes content and applies the uniqueness and completeness checks
// to its spatial columns. Both checks run; uniqueness is reported first.
func Inspect(content []byte) Inspection {
	file, err := ParseStationYear(content)
	if err != nil {
		if errors.Is(err, ErrEmptyData) {
			return Inspection{Verdict: EmptyData, Err: err}
		}
		return Inspection{Verdict: ParseError, Err: err}
	}

	uniqueCol, unique := CheckUnique(file)
	completeCol, complete := CheckComplete(file)

	switch {
	case !unique:
		return Inspection{Verdict: NonUniqueSpatial, Column: uniqueCol.String()}
	case !complete:
		return Inspection{Verdict: MissingSpatial, Column: completeCol.String()}
	default:
		return Inspection{Verdict: Valid}
	}
}

// CheckUnique reports whether every spatial column present in the file holds
// a single distinct value. Blank cells count as a value. On failure it
// returns the first offending field.
func CheckUnique(file StationYearFile) (SpatialField, bool) {
	for _, f := range SpatialFields {
		if !file.HasColumn(f) {
			continue
		}
		seen := make(map[string]struct{}, 1)
		for _, rec := range file.Records {
			seen[rec.Spatial(f)] = struct{}{}
			if len(seen) > 1 {
				return f, false
			}
		}
	}
	return 0, true
}

// CheckComplete reports whether every spatial column is present, non-blank,
// and equal to the first row's value on every row. On failure it returns the
// first offending field.
func CheckComplete(file StationYearFile) (SpatialField, bool) {
	for _, f := range SpatialFields {
		if !file.HasColumn(f) || len(file.Records) == 0 {
			return f, false
		}
		first := file.Records[0].Spatial(f)
		if first == "" {
			return f, false
		}
		for _, rec := range file.Records[1:] {
			if rec.Spatial(f) != first {
				return f, false
			}
		}
	}
	return 0, true
}
