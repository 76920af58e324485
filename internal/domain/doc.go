// Package domain models NOAA Global Surface Summary of the Day (GSOD)
// station-year files and the data-quality policy applied to them.
//
// # Data Source
//
// Station-year files are produced upstream from the NOAA GSOD archive and
// stored one object per station per year, partitioned by year:
//
//	1929/03005099999.csv
//	1929/03026099999.csv
//	1930/03005099999.csv
//
// Each file is a CSV with a header row. Column names may carry incidental
// whitespace (`" LATITUDE"`) and are trimmed before matching. The columns this
// package relies on are:
//
//	STATION    11-digit USAF+WBAN id, e.g. "03005099999"
//	LATITUDE   decimal degrees, text
//	LONGITUDE  decimal degrees, text
//	ELEVATION  meters, text
//	DATE       yyyy-mm-dd
//	TEMP       mean temperature, °F
//	DEWP       mean dew point, °F
//	STP        mean station pressure, mb
//	MIN / MAX  minimum / maximum temperature, °F
//	PRCP       precipitation, inches
//	FRSHTT     fog/rain/snow/hail/thunder/tornado flags, e.g. "010000"
//
// # Spatial Consistency
//
// STATION, LATITUDE, LONGITUDE and ELEVATION repeat on every row and must be
// literally identical across the year. They are compared as raw text, so a
// latitude that drifts from "51.25" to "51.250", or an elevation that becomes
// "12.0" after being "12", is an inconsistency. Such files are usually merged
// or corrupted records and their measurements must not be averaged. See
// [Inspect].
//
// # Missing Readings
//
// Numeric cells that are blank or unparseable are absent readings and are
// excluded from averages. GSOD sentinels (9999.9, 999.9, 99.99) are kept as
// values; filtering them is left to downstream consumers.
//
// # Object Layout
//
// Besides the year partitions the bucket holds two reserved namespaces:
//
//	year_average/avg_{year}.csv              per-station yearly averages
//	_data_error/{year}-{station}-{reason}.csv quarantined station-year files
//
// All of these sit under a [Layout] root, the folder part of the configured
// partition prefix. See [SummaryKey], [QuarantineKey] and [IsDataKey].
package domain
