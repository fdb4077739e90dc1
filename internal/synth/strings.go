package synth

import (
	"strings"

	"github.com/datasynth/api/internal/model"
)

type stringGen func(src *Source, f model.FieldSpec, lname string) string

// stringHandler pairs a field-name substring with its generator.
type stringHandler struct {
	substr string
	gen    stringGen
}

// stringHandlers is evaluated top to bottom; the first substring found in the
// lower-cased field name wins. Several entries can match one name
// ("email_address" contains both "email" and "address"), so order matters.
var stringHandlers = []stringHandler{
	{"email", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.Email() }},
	{"phone", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.PhoneFormatted() }},
	{"mobile", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.Phone() }},
	{"country_code", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.CountryAbr() }},
	{"country", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.Country() }},
	{"url", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.URL() }},
	{"username", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.Username() }},
	{"credit_card", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.CreditCardNumber(nil) }},
	{"zip", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.Zip() }},
	{"city", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.City() }},
	{"state", func(s *Source, _ model.FieldSpec, lname string) string {
		if strings.Contains(lname, "abbr") {
			return s.faker.StateAbr()
		}
		return s.faker.State()
	}},
	{"address", func(s *Source, _ model.FieldSpec, _ string) string {
		return s.faker.Street() + ", " + s.faker.City() + ", " + s.faker.StateAbr() + " " + s.faker.Zip()
	}},
	{"description", func(s *Source, f model.FieldSpec, _ string) string {
		return description(s, f.Constraints.Int("max_length", 200))
	}},
	{"ipv4", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.IPv4Address() }},
	{"ipv6", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.IPv6Address() }},
	{"first_name", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.FirstName() }},
	{"last_name", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.LastName() }},
	{"full_name", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.Name() }},
	{"ssn", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.SSN() }},
	{"company", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.Company() }},
	{"job", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.JobTitle() }},
	{"color", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.Color() }},
	{"license_plate", func(s *Source, _ model.FieldSpec, _ string) string { return ExpandPattern(s, "???-####") }},
	{"iban", func(s *Source, _ model.FieldSpec, _ string) string {
		return s.faker.CountryAbr() + ExpandPattern(s, "##????##############")
	}},
	{"currency_code", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.CurrencyShort() }},
	{"language", func(s *Source, _ model.FieldSpec, lname string) string {
		if strings.Contains(lname, "code") {
			return s.faker.LanguageAbbreviation()
		}
		return s.faker.Language()
	}},
	{"uuid", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.UUID() }},
	{"mac_address", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.MacAddress() }},
	{"user_agent", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.UserAgent() }},
	{"file_name", func(s *Source, _ model.FieldSpec, _ string) string {
		return strings.ToLower(s.faker.Word()) + "." + s.faker.FileExtension()
	}},
	{"mime_type", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.FileMimeType() }},
	{"password", func(s *Source, _ model.FieldSpec, _ string) string {
		return s.faker.Password(true, true, true, true, false, 12)
	}},
	{"domain", func(s *Source, _ model.FieldSpec, _ string) string { return s.faker.DomainName() }},
	{"twitter", func(s *Source, _ model.FieldSpec, _ string) string { return "@" + s.faker.Username() }},
	{"bitcoin", func(s *Source, _ model.FieldSpec, _ string) string { return ExpandPattern(s, "????##########") }},
}

func generateString(src *Source, f model.FieldSpec) string {
	if f.Constraints.Has("pattern") {
		return ExpandPattern(src, f.Constraints.String("pattern"))
	}

	lname := strings.ToLower(f.Name)
	for _, h := range stringHandlers {
		if strings.Contains(lname, h.substr) {
			return h.gen(src, f, lname)
		}
	}

	minLen := f.Constraints.Int("min_length", 5)
	maxLen := f.Constraints.Int("max_length", 50)
	if minLen < 0 {
		minLen = 0
	}
	return src.String(src.Intn(minLen, maxLen))
}

// description builds a sentence of random words no longer than maxLen.
func description(src *Source, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	var b strings.Builder
	for b.Len() < maxLen {
		w := src.faker.Word()
		if w == "" {
			break
		}
		if b.Len() == 0 {
			w = strings.ToUpper(w[:1]) + w[1:]
		} else {
			w = " " + w
		}
		if b.Len()+len(w)+1 > maxLen {
			break
		}
		b.WriteString(w)
	}
	if b.Len() == 0 {
		return src.String(min(maxLen, 5))
	}
	b.WriteByte('.')
	return b.String()
}
