package report

import (
	"fmt"
	"strings"

	"drugdeaths/chart"
	"drugdeaths/frame"
	"drugdeaths/loader"
	"drugdeaths/registry"
	"drugdeaths/stats"
)

// Column names introduced by section aggregations.
const (
	FieldDeaths   = "Deaths"
	FieldAgeGroup = "Age Group"
	FieldDrug     = "Drug"
	FieldWeekday  = "Weekday"
	FieldMonth    = "Month Name"
)

// Section is one chart of the report.
type Section struct {
	Name  string
	Title string
	Build func(*loader.Table) (*chart.Spec, error)
}

// Options are per-section chart option overrides keyed by section name.
// Each value is decoded into the section's chart option type; unknown keys
// are ignored.
type Options map[string]map[string]any

type sectionDef struct {
	name  string
	title string
	build func(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error)
}

var catalog = []sectionDef{
	{"deaths_by_year", "Deaths per year", deathsByYear},
	{"deaths_by_month", "Deaths per month", deathsByMonth},
	{"deaths_by_quarter", "Deaths per quarter", deathsByQuarter},
	{"sex_distribution", "Deaths by sex", sexDistribution},
	{"top_causes", "Top 10 causes of death", topCauses},
	{"age_groups", "Deaths by age group", ageGroups},
	{"locations", "Deaths by place of death", locations},
	{"drugs_male", "Males - most prevalent drugs", drugsFor("Male")},
	{"drugs_female", "Females - most prevalent drugs", drugsFor("Female")},
	{"race", "Deaths by race", race},
	{"race_by_sex", "Deaths by race and sex", raceBySex},
	{"drugs_by_race", "Most prevalent drugs by race", drugsByRace},
	{"weekday_by_month", "Deaths by weekday and month", weekdayByMonth},
	{"correlation", "Pearson correlation", correlation},
	{"age_by_sex", "Age distribution by sex", ageBySex},
	{"county_by_sex", "Deaths by county and sex", countyBySex},
	{"top_cities", "Top geolocated death cities", topCities},
}

// Sections returns the default report in display order.
func Sections() []Section {
	return Configure(nil)
}

// Configure returns the default report with option overrides applied.
func Configure(opts Options) []Section {
	out := make([]Section, len(catalog))
	for i, def := range catalog {
		def, ov := def, opts[def.name]
		out[i] = Section{
			Name:  def.name,
			Title: def.title,
			Build: func(t *loader.Table) (*chart.Spec, error) {
				return def.build(t, def.title, ov)
			},
		}
	}
	return out
}

// SectionNames lists the names of the default sections.
func SectionNames() []string {
	out := make([]string, len(catalog))
	for i, def := range catalog {
		out[i] = def.name
	}
	return out
}

// Select keeps the named sections, in the order given.
func Select(sections []Section, names ...string) ([]Section, error) {
	if len(names) == 0 {
		return sections, nil
	}
	byName := make(map[string]Section, len(sections))
	for _, s := range sections {
		byName[s.Name] = s
	}
	out := make([]Section, 0, len(names))
	for _, n := range names {
		s, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("report: unknown section %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

// AgeGroup buckets an age: 20 and under is "21-", then ten-year bands up to
// 60, and "60+" above.
func AgeGroup(age int) string {
	switch {
	case age <= 20:
		return "21-"
	case age <= 30:
		return "21-30"
	case age <= 40:
		return "31-40"
	case age <= 50:
		return "41-50"
	case age <= 60:
		return "51-60"
	default:
		return "60+"
	}
}

// AgeGroups lists the AgeGroup buckets in ascending order.
func AgeGroups() []string {
	return []string{"21-", "21-30", "31-40", "41-50", "51-60", "60+"}
}

func isMaleOrFemale(r frame.Row) bool {
	s := r.String(loader.FieldSex)
	return s == "Male" || s == "Female"
}

func countBy(f *frame.Frame, keys ...string) *frame.Frame {
	return f.GroupBy(keys...).Count(FieldDeaths)
}

func lowerColumn(f *frame.Frame, col string) *frame.Frame {
	return f.WithColumn(col, func(r frame.Row) any { return strings.ToLower(r.String(col)) })
}

func lineOpts(title string, ov map[string]any, base chart.LineOptions) (chart.LineOptions, error) {
	base.Title = title
	return chart.MergeOptions(base, ov)
}

func barOpts(title string, ov map[string]any, base chart.BarOptions) (chart.BarOptions, error) {
	base.Title = title
	return chart.MergeOptions(base, ov)
}

func deathsByYear(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error) {
	o, err := lineOpts(title, ov, chart.LineOptions{Total: true})
	if err != nil {
		return nil, err
	}
	f := countBy(t.Frame().Filter(isMaleOrFemale), loader.FieldYear, loader.FieldSex)
	return chart.BuildLine(f, loader.FieldYear, FieldDeaths, loader.FieldSex, o)
}

func deathsByMonth(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error) {
	o, err := barOpts(title, ov, chart.BarOptions{Order: loader.MonthNames(), Labels: boolPtr(false)})
	if err != nil {
		return nil, err
	}
	f := t.Frame().Filter(isMaleOrFemale).
		WithColumn(FieldMonth, func(r frame.Row) any { return loader.MonthName(int(r.Int(loader.FieldMonth))) })
	return chart.BuildBar(countBy(f, FieldMonth, loader.FieldSex), FieldMonth, FieldDeaths, loader.FieldSex, o)
}

func deathsByQuarter(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error) {
	o, err := barOpts(title, ov, chart.BarOptions{Order: []string{"1", "2", "3", "4"}})
	if err != nil {
		return nil, err
	}
	f := countBy(t.Frame().Filter(isMaleOrFemale), loader.FieldQuarter, loader.FieldSex)
	return chart.BuildBar(f, loader.FieldQuarter, FieldDeaths, loader.FieldSex, o)
}

func sexDistribution(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error) {
	o, err := chart.MergeOptions(chart.PieOptions{Options: chart.Options{Title: title}}, ov)
	if err != nil {
		return nil, err
	}
	f := countBy(t.Frame().Filter(isMaleOrFemale), loader.FieldSex)
	return chart.BuildPie(f, loader.FieldSex, FieldDeaths, o)
}

// rankedBar counts f by category, keeps the top n when n > 0 and draws a
// horizontal bar coloured by the count.
func rankedBar(f *frame.Frame, category string, n int, title string, ov map[string]any) (*chart.Spec, error) {
	o, err := barOpts(title, ov, chart.BarOptions{Horizontal: true, Sort: "-x"})
	if err != nil {
		return nil, err
	}
	counts := countBy(f, category).SortBy(FieldDeaths, true)
	if n > 0 {
		counts = counts.Head(n)
	}
	return chart.BuildBar(counts, category, FieldDeaths, FieldDeaths, o)
}

// nonEmpty keeps rows whose col is not blank.
func nonEmpty(col string) func(frame.Row) bool {
	return func(r frame.Row) bool { return strings.TrimSpace(r.String(col)) != "" }
}

func topCauses(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error) {
	f := lowerColumn(t.Frame().Filter(nonEmpty(loader.FieldCauseOfDeath)), loader.FieldCauseOfDeath)
	return rankedBar(f, loader.FieldCauseOfDeath, 10, title, ov)
}

func ageGroups(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error) {
	o, err := barOpts(title, ov, chart.BarOptions{Horizontal: true, Order: AgeGroups()})
	if err != nil {
		return nil, err
	}
	f := t.Frame().WithColumn(FieldAgeGroup, func(r frame.Row) any { return AgeGroup(int(r.Int(loader.FieldAge))) })
	return chart.BuildBar(countBy(f, FieldAgeGroup), FieldAgeGroup, FieldDeaths, FieldDeaths, o)
}

func locations(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error) {
	f := t.Frame().Filter(nonEmpty(loader.FieldLocation))
	return rankedBar(lowerColumn(f, loader.FieldLocation), loader.FieldLocation, 0, title, ov)
}

// drugCounts counts deaths per registry column over the rows of f.
func drugCounts(f *frame.Frame) (*frame.Frame, error) {
	out := frame.New(FieldDrug, FieldDeaths)
	for _, d := range registry.Columns() {
		n := f.Filter(func(r frame.Row) bool { return r.Int(d) == 1 }).Len()
		if err := out.Append(d, n); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func drugsFor(sex string) func(*loader.Table, string, map[string]any) (*chart.Spec, error) {
	return func(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error) {
		o, err := barOpts(title, ov, chart.BarOptions{Horizontal: true, Sort: "-x"})
		if err != nil {
			return nil, err
		}
		counts, err := drugCounts(t.Frame().Filter(func(r frame.Row) bool { return r.String(loader.FieldSex) == sex }))
		if err != nil {
			return nil, err
		}
		return chart.BuildBar(counts, FieldDrug, FieldDeaths, FieldDeaths, o)
	}
}

func knownRace(r frame.Row) bool { return r.String(loader.FieldRace) != loader.Unknown }

func race(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error) {
	return rankedBar(t.Frame().Filter(knownRace), loader.FieldRace, 0, title, ov)
}

func raceBySex(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error) {
	o, err := barOpts(title, ov, chart.BarOptions{Horizontal: true, Sort: "-x", Labels: boolPtr(false)})
	if err != nil {
		return nil, err
	}
	f := countBy(t.Frame().Filter(knownRace), loader.FieldRace, loader.FieldSex)
	return chart.BuildBar(f, loader.FieldRace, FieldDeaths, loader.FieldSex, o)
}

func drugsByRace(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error) {
	o, err := barOpts(title, ov, chart.BarOptions{Horizontal: true, Sort: "-x", Labels: boolPtr(false)})
	if err != nil {
		return nil, err
	}
	all := t.Frame()
	parts := make([]*frame.Frame, 0, registry.Len())
	for _, d := range registry.Columns() {
		part := countBy(all.Filter(func(r frame.Row) bool { return r.Int(d) == 1 }), loader.FieldRace).
			WithColumn(FieldDrug, func(frame.Row) any { return d }).
			Select(FieldDrug, loader.FieldRace, FieldDeaths)
		parts = append(parts, part)
	}
	f := frame.Concat(parts...)
	if err := f.Err(); err != nil {
		return nil, err
	}
	return chart.BuildBar(f, FieldDrug, FieldDeaths, loader.FieldRace, o)
}

func weekdayByMonth(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error) {
	o, err := chart.MergeOptions(chart.HeatmapOptions{Options: chart.Options{Title: title}}, ov)
	if err != nil {
		return nil, err
	}
	// Ordered so that both axes come out in calendar order.
	f := t.Frame().
		SortBy(loader.FieldMonth, false).
		SortBy(loader.FieldDayOfWeek, false).
		WithColumn(FieldMonth, func(r frame.Row) any { return loader.MonthName(int(r.Int(loader.FieldMonth))) }).
		WithColumn(FieldWeekday, func(r frame.Row) any { return loader.WeekdayName(int(r.Int(loader.FieldDayOfWeek))) })
	return chart.BuildHeatmap(countBy(f, FieldMonth, FieldWeekday), FieldMonth, FieldWeekday, FieldDeaths, o)
}

func correlation(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error) {
	o, err := chart.MergeOptions(chart.HeatmapOptions{
		Options: chart.Options{Title: title, Width: 700, Height: 700, LabelAngle: intPtr(-45)},
		Scheme:  "PuBu",
	}, ov)
	if err != nil {
		return nil, err
	}
	fields := stats.DefaultCorrelationFields()
	corr, err := stats.Correlation(t, fields)
	if err != nil {
		return nil, err
	}
	f, err := stats.CorrelationFrame(corr, fields)
	if err != nil {
		return nil, err
	}
	return chart.BuildHeatmap(f, stats.FieldX, stats.FieldY, stats.FieldR, o)
}

func ageBySex(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error) {
	o, err := chart.MergeOptions(chart.BoxplotOptions{Options: chart.Options{Title: title, LabelAngle: intPtr(0)}}, ov)
	if err != nil {
		return nil, err
	}
	f := t.Frame().Filter(isMaleOrFemale).Select(loader.FieldSex, loader.FieldAge)
	return chart.BuildBoxplot(f, loader.FieldSex, loader.FieldAge, o)
}

func countyBySex(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error) {
	o, err := barOpts(title, ov, chart.BarOptions{Horizontal: true, Sort: "-x"})
	if err != nil {
		return nil, err
	}
	f := countBy(t.Frame().Filter(isMaleOrFemale), loader.FieldDeathCounty, loader.FieldSex)
	return chart.BuildBar(f, loader.FieldDeathCounty, FieldDeaths, loader.FieldSex, o)
}

func topCities(t *loader.Table, title string, ov map[string]any) (*chart.Spec, error) {
	f := t.Frame().Filter(func(r frame.Row) bool { return r.Value(loader.FieldLatitude) != nil })
	return rankedBar(f, loader.FieldDeathCity, 15, title, ov)
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }
