package ingest

import (
	"strings"
	"time"
)

// Worldwide is the name of the synthetic entity holding the global totals.
const Worldwide = "Worldwide"

type CountryStat struct {
	Name                  string
	Confirmed             int64
	Deaths                int64
	Active                int64
	Recovered             int64
	LastUpdatedBySourceAt time.Time
}

// nameSet is a set of strings that remembers insertion order.
type nameSet struct {
	order []string
	seen  map[string]struct{}
}

func newNameSet() *nameSet {
	return &nameSet{seen: make(map[string]struct{})}
}

func (s *nameSet) Add(name string) bool {
	if _, ok := s.seen[name]; ok {
		return false
	}
	s.seen[name] = struct{}{}
	s.order = append(s.order, name)
	return true
}

func (s *nameSet) Values() []string { return s.order }
func (s *nameSet) Len() int         { return len(s.order) }

// CountryTable is the result of one aggregation pass.
type CountryTable struct {
	names     *nameSet
	byName    map[string]*CountryStat
	UpdatedAt time.Time
	Rows      int
	Skipped   int
}

// Aggregate folds the report rows into per-country totals plus Worldwide.
// Rows without a country name, or carrying the reserved Worldwide name, are
// counted in Skipped and contribute to nothing.
func Aggregate(rows []RawRow) *CountryTable {
	names := collectCountryNames(rows)
	t := newCountryTable(names, sourceUpdatedAt(rows))
	t.fold(rows)
	return t
}

func countryOf(row RawRow) (string, bool) {
	name := strings.TrimSpace(row[ColCountry])
	if name == "" || name == Worldwide {
		return "", false
	}
	return name, true
}

func collectCountryNames(rows []RawRow) *nameSet {
	names := newNameSet()
	for _, row := range rows {
		if name, ok := countryOf(row); ok {
			names.Add(name)
		}
	}
	names.Add(Worldwide)
	return names
}

// sourceUpdatedAt takes the report time from the first row only; every
// entity of a run shares it.
func sourceUpdatedAt(rows []RawRow) time.Time {
	if len(rows) == 0 {
		return time.Time{}
	}
	ts, err := utcTimestamp(rows[0][ColLastUpdate])
	if err != nil {
		return time.Time{}
	}
	return ts
}

func newCountryTable(names *nameSet, updatedAt time.Time) *CountryTable {
	t := &CountryTable{
		names:     names,
		byName:    make(map[string]*CountryStat, names.Len()),
		UpdatedAt: updatedAt,
	}
	for _, name := range names.Values() {
		t.byName[name] = &CountryStat{Name: name, LastUpdatedBySourceAt: updatedAt}
	}
	return t
}

func (t *CountryTable) fold(rows []RawRow) {
	var confirmed, deaths, active, recovered int64

	for _, row := range rows {
		t.Rows++
		name, ok := countryOf(row)
		if !ok {
			t.Skipped++
			continue
		}

		c := NormalizeCount(row[ColConfirmed])
		d := NormalizeCount(row[ColDeaths])
		a := NormalizeCount(row[ColActive])
		r := NormalizeCount(row[ColRecovered])

		stat := t.byName[name]
		stat.Confirmed += c
		stat.Deaths += d
		stat.Active += a
		stat.Recovered += r

		confirmed += c
		deaths += d
		active += a
		recovered += r
	}

	ww := t.byName[Worldwide]
	ww.Confirmed = confirmed
	ww.Deaths = deaths
	ww.Active = active
	ww.Recovered = recovered
}

// Stats returns copies of all entities, countries in first-seen order and
// Worldwide last.
func (t *CountryTable) Stats() []CountryStat {
	out := make([]CountryStat, 0, t.names.Len())
	for _, name := range t.names.Values() {
		out = append(out, *t.byName[name])
	}
	return out
}

func (t *CountryTable) Get(name string) (CountryStat, bool) {
	s, ok := t.byName[name]
	if !ok {
		return CountryStat{}, false
	}
	return *s, true
}

func (t *CountryTable) Worldwide() CountryStat {
	return *t.byName[Worldwide]
}

// Len counts entities including Worldwide.
func (t *CountryTable) Len() int { return t.names.Len() }
