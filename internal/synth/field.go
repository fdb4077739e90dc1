package synth

import (
	"math"
	"strings"
	"time"

	"github.com/datasynth/api/internal/errs"
	"github.com/datasynth/api/internal/model"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05"
)

// IDPools maps a field name to previously generated identifiers that the
// field should reference.
type IDPools map[string][]int64

// FieldValue returns one value for f. pool may be nil.
//
// An identifier rule is tried first: fields whose name contains "id" may
// follow a CUST/PROD/ORD pattern, and INTEGER *_id fields draw from pool or
// fall back to a 1000-9999 range. Otherwise the declared type decides.
func FieldValue(src *Source, f model.FieldSpec, pool []int64) (any, error) {
	return fieldValue(src, f, pool, nil)
}

// fieldValue carries the job's pools so nested RECORD fields resolve their
// own *_id pools.
func fieldValue(src *Source, f model.FieldSpec, pool []int64, pools IDPools) (any, error) {
	lname := strings.ToLower(f.Name)
	ftype := model.FieldType(strings.ToUpper(string(f.Type)))

	if strings.Contains(lname, "id") {
		pattern := f.Constraints.String("pattern")
		if pattern != "" && hasIDPrefix(pattern) {
			return ExpandPattern(src, pattern), nil
		}
		if ftype == model.FieldTypeInteger && strings.HasSuffix(lname, "_id") {
			if len(pool) > 0 {
				return src.Pick(pool), nil
			}
			min := f.Constraints.Int("min", 1000)
			max := f.Constraints.Int("max", 9999)
			return int64(src.Intn(min, max)), nil
		}
	}

	switch ftype {
	case model.FieldTypeRecord:
		if f.IsRepeated() {
			n := src.Intn(1, 3)
			out := make([]model.Record, 0, n)
			for i := 0; i < n; i++ {
				rec, err := GenerateRecord(src, f.Fields, pools)
				if err != nil {
					return nil, err
				}
				out = append(out, rec)
			}
			return out, nil
		}
		return GenerateRecord(src, f.Fields, pools)
	case model.FieldTypeString:
		return generateString(src, f), nil
	case model.FieldTypeInteger:
		return generateInteger(src, f, lname), nil
	case model.FieldTypeDecimal:
		return generateDecimal(src, f, lname), nil
	case model.FieldTypeDate:
		return generateDate(src, f, lname).Format(dateLayout), nil
	case model.FieldTypeTimestamp:
		ts := src.Instant(src.now.AddDate(-5, 0, 0), src.now)
		if f.Constraints.Bool("iso_format") {
			return ts.Format(timestampLayout), nil
		}
		return ts.Unix(), nil
	case model.FieldTypeBoolean:
		return src.Chance(booleanWeight(lname)), nil
	case model.FieldTypeBytes:
		n := src.Intn(f.Constraints.Int("min_length", 10), f.Constraints.Int("max_length", 1024))
		return src.Bytes(max(n, 0)), nil
	case model.FieldTypeTime:
		h, m, s := src.Intn(0, 23), src.Intn(0, 59), src.Intn(0, 59)
		t := time.Date(2000, 1, 1, h, m, s, 0, time.UTC)
		if f.Constraints.Bool("with_seconds") {
			return t.Format("15:04:05"), nil
		}
		return t.Format("15:04"), nil
	case model.FieldTypeFloat:
		return src.Floatn(f.Constraints.Float("min", 0), f.Constraints.Float("max", 10000)), nil
	}

	return nil, &errs.UnsupportedTypeError{Field: f.Name, Type: string(f.Type)}
}

func generateInteger(src *Source, f model.FieldSpec, lname string) int64 {
	if strings.Contains(lname, "age") {
		return int64(src.Intn(18, 90))
	}
	if strings.Contains(lname, "year") {
		return int64(src.Intn(1970, src.now.Year()))
	}

	min := f.Constraints.Int("min", 1)
	max := f.Constraints.Int("max", 100000)
	step := f.Constraints.Int("step", 1)
	if min > max {
		min, max = max, min
	}
	if step <= 1 {
		return int64(src.Intn(min, max))
	}
	return int64(min + step*src.Intn(0, (max-min)/step))
}

func generateDecimal(src *Source, f model.FieldSpec, lname string) float64 {
	defScale := 2
	if strings.Contains(lname, "geo") {
		defScale = 4
	}
	scale := f.Constraints.Int("scale", defScale)

	switch {
	case strings.Contains(lname, "latitude"):
		return round(src.Floatn(-90, 90), scale)
	case strings.Contains(lname, "longitude"):
		return round(src.Floatn(-180, 180), scale)
	}
	return round(src.Floatn(f.Constraints.Float("min", 0.0001), f.Constraints.Float("max", 100000.0)), scale)
}

type dateHandler struct {
	substr string
	gen    func(src *Source) time.Time
}

// dateHandlers apply when the field is not a birth date, in this order.
var dateHandlers = []dateHandler{
	{"start", func(s *Source) time.Time { return s.Date(s.now.AddDate(-3, 0, 0), s.now.AddDate(0, 0, -1)) }},
	{"end", func(s *Source) time.Time { return s.Date(s.now.AddDate(0, 0, 1), s.now.AddDate(3, 0, 0)) }},
	{"effective", func(s *Source) time.Time {
		decade := s.now.Year() - s.now.Year()%10
		return s.Date(time.Date(decade, 1, 1, 0, 0, 0, 0, time.UTC), s.now)
	}},
	{"expir", func(s *Source) time.Time { return s.Date(s.now.AddDate(1, 0, 0), s.now.AddDate(10, 0, 0)) }},
}

func generateDate(src *Source, f model.FieldSpec, lname string) time.Time {
	if strings.Contains(lname, "birth") {
		return birthDate(src, f.Constraints.Int("min_age", 18), f.Constraints.Int("max_age", 90))
	}
	for _, h := range dateHandlers {
		if strings.Contains(lname, h.substr) {
			return h.gen(src)
		}
	}

	from := src.now.AddDate(-5, 0, 0)
	to := src.now
	if d, ok := parseDate(f.Constraints.String("min_date")); ok {
		from = d
	}
	if d, ok := parseDate(f.Constraints.String("max_date")); ok {
		to = d
	}
	return src.Date(from, to)
}

// birthDate picks a date of birth such that the age on src.now lies in
// [minAge, maxAge] inclusive.
func birthDate(src *Source, minAge, maxAge int) time.Time {
	if minAge > maxAge {
		minAge, maxAge = maxAge, minAge
	}
	today := truncateDay(src.now)
	latest := today.AddDate(-minAge, 0, 0)
	for Age(latest, today) < minAge {
		latest = latest.AddDate(0, 0, -1)
	}
	earliest := today.AddDate(-(maxAge + 1), 0, 1)
	for Age(earliest, today) > maxAge {
		earliest = earliest.AddDate(0, 0, 1)
	}
	return src.Date(earliest, latest)
}

// Age returns the number of whole years between birth and on.
func Age(birth, on time.Time) int {
	age := on.Year() - birth.Year()
	if on.Month() < birth.Month() || (on.Month() == birth.Month() && on.Day() < birth.Day()) {
		age--
	}
	return age
}

func booleanWeight(lname string) float64 {
	for _, s := range []string{"active", "enabled", "verified"} {
		if strings.Contains(lname, s) {
			return 0.8
		}
	}
	for _, s := range []string{"deleted", "expired"} {
		if strings.Contains(lname, s) {
			return 0.2
		}
	}
	return 0.5
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func round(v float64, scale int) float64 {
	if scale < 0 {
		scale = 0
	}
	p := math.Pow(10, float64(scale))
	return math.Round(v*p) / p
}
