package loader

import (
	"time"

	"drugdeaths/registry"
)

// Record is one normalized death event.
//
// Year through DayOfWeek are always derived from Date. Flags holds one 0/1
// value per registry column, in registry order. Latitude and Longitude are
// both set or both nil.
type Record struct {
	ID   string
	Date time.Time

	Year      int
	Month     int
	Day       int
	Quarter   int
	DayOfWeek int // 0=Monday

	Age        int
	AgeImputed bool

	Sex  string
	Race string

	ResidenceCity   string
	ResidenceCounty string
	ResidenceState  string
	DeathCity       string
	DeathCounty     string

	Location            string
	InjuryPlace         string
	DescriptionOfInjury string
	CauseOfDeath        string

	DeathCityGeo string
	Latitude     *float64
	Longitude    *float64

	Flags []uint8
}

// Flag returns the 0/1 value of a registry column, and false if name is not
// registered.
func (r *Record) Flag(name string) (uint8, bool) {
	i, ok := registry.Index(name)
	if !ok || i >= len(r.Flags) {
		return 0, false
	}
	return r.Flags[i], true
}

// Geolocated reports whether the record carries a coordinate pair.
func (r *Record) Geolocated() bool { return r.Latitude != nil && r.Longitude != nil }

// MonthName returns the display name of the record's month.
func (r *Record) MonthName() string { return MonthName(r.Month) }

// WeekdayName returns the display name of the record's weekday.
func (r *Record) WeekdayName() string { return WeekdayName(r.DayOfWeek) }

func (r Record) clone() Record {
	r.Flags = append([]uint8(nil), r.Flags...)
	if r.Latitude != nil {
		lat, lon := *r.Latitude, *r.Longitude
		r.Latitude, r.Longitude = &lat, &lon
	}
	return r
}

func (r *Record) derive() {
	y, m, d := r.Date.Date()
	r.Year = y
	r.Month = int(m)
	r.Day = d
	r.Quarter = Quarter(r.Month)
	r.DayOfWeek = DayOfWeek(r.Date)
}

// Numeric returns the value of a numeric field: Age, Year, Month, Day,
// Quarter, DayOfWeek, Latitude, Longitude or any registry column. ok is false
// for other fields and for missing coordinates.
func (r *Record) Numeric(field string) (v float64, ok bool) {
	switch field {
	case FieldAge:
		return float64(r.Age), true
	case FieldYear:
		return float64(r.Year), true
	case FieldMonth:
		return float64(r.Month), true
	case FieldDay:
		return float64(r.Day), true
	case FieldQuarter:
		return float64(r.Quarter), true
	case FieldDayOfWeek:
		return float64(r.DayOfWeek), true
	case FieldLatitude:
		if r.Latitude == nil {
			return 0, false
		}
		return *r.Latitude, true
	case FieldLongitude:
		if r.Longitude == nil {
			return 0, false
		}
		return *r.Longitude, true
	}
	f, ok := r.Flag(field)
	return float64(f), ok
}
