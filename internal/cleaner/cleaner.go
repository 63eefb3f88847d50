// Package cleaner normalizes mapped lead records field by field. Cleaning
// never drops a record: a value that fails validation flags the record and
// moves on. Applying the same options twice changes nothing.
package cleaner

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/SafeerAbbas624/lead-management-system/internal/lead"
)

// Name, phone, and address format settings.
const (
	FormatProper   = "proper"
	FormatUpper    = "upper"
	FormatLower    = "lower"
	FormatPreserve = "preserve"

	PhoneStandard      = "standard"      // (nnn) nnn-nnnn
	PhoneDashes        = "dashes"        // nnn-nnn-nnnn
	PhoneDots          = "dots"          // nnn.nnn.nnnn
	PhoneInternational = "international" // +1 nnn nnn nnnn
	PhoneRaw           = "raw"           // digits only

	EmailLowercase = "lowercase"
)

// Options selects which cleaning rules run and how fields are formatted.
type Options struct {
	TrimWhitespace bool
	NormalizeCase  bool
	ValidateEmail  bool
	ValidatePhone  bool
	CorrectTypos   bool
	FlagMissing    bool

	NameFormat    string
	PhoneFormat   string
	EmailFormat   string
	AddressFormat string

	// TypoCorrections maps a bad email domain suffix to its correction.
	// Merged over the built-in table; caller entries win.
	TypoCorrections map[string]string
}

// DefaultOptions returns the standard cleaning configuration.
func DefaultOptions() Options {
	return Options{
		TrimWhitespace: true,
		NormalizeCase:  true,
		ValidateEmail:  true,
		ValidatePhone:  true,
		CorrectTypos:   true,
		FlagMissing:    true,
		NameFormat:     FormatProper,
		PhoneFormat:    PhoneStandard,
		EmailFormat:    EmailLowercase,
		AddressFormat:  FormatProper,
	}
}

// defaultTypos covers the domain misspellings that show up constantly in
// purchased lead sheets.
var defaultTypos = map[string]string{
	"gmial.com":   "gmail.com",
	"gamil.com":   "gmail.com",
	"gmal.com":    "gmail.com",
	"gmail.co":    "gmail.com",
	"yaho.com":    "yahoo.com",
	"yahooo.com":  "yahoo.com",
	"yahoo.co":    "yahoo.com",
	"hotmial.com": "hotmail.com",
	"hotmal.com":  "hotmail.com",
	"hotmail.co":  "hotmail.com",
	"outlok.com":  "outlook.com",
	"outlook.co":  "outlook.com",
}

var (
	emailRx    = regexp.MustCompile(`^[\w.+-]+@[\w.-]+\.[A-Za-z]{2,}$`)
	nonDigitRx = regexp.MustCompile(`\D`)
	multiWSRx  = regexp.MustCompile(`\s+`)
	zipJunkRx  = regexp.MustCompile(`[^\d-]`)
	mcRx       = regexp.MustCompile(`Mc([a-z])`)
	oAposRx    = regexp.MustCompile(`O'([a-z])`)
)

var titleCaser = cases.Title(language.English)

var companySuffixes = []string{"Inc", "Corp", "Ltd", "Llc", "Co"}

// Clean applies the options to every record and returns the cleaned batch.
func Clean(leads []lead.Lead, opts Options) []lead.Lead {
	out := make([]lead.Lead, len(leads))
	for i, l := range leads {
		out[i] = CleanOne(l, opts)
	}
	return out
}

// CleanOne cleans a single record.
func CleanOne(l lead.Lead, opts Options) lead.Lead {
	if opts.TrimWhitespace {
		l.FirstName = strings.TrimSpace(l.FirstName)
		l.LastName = strings.TrimSpace(l.LastName)
		l.Email = strings.TrimSpace(l.Email)
		l.Phone = strings.TrimSpace(l.Phone)
		l.CompanyName = strings.TrimSpace(l.CompanyName)
		l.Address = strings.TrimSpace(l.Address)
		l.City = strings.TrimSpace(l.City)
		l.State = strings.TrimSpace(l.State)
		l.ZipCode = strings.TrimSpace(l.ZipCode)
		l.Country = strings.TrimSpace(l.Country)
		l.ExclusivityNotes = strings.TrimSpace(l.ExclusivityNotes)
	}

	l.Email = cleanEmail(l.Email, opts, &l.Flagged)
	l.Phone = cleanPhone(l.Phone, opts, &l.Flagged)

	if opts.NormalizeCase {
		l.FirstName = cleanName(l.FirstName, opts.NameFormat)
		l.LastName = cleanName(l.LastName, opts.NameFormat)
		l.CompanyName = cleanCompany(l.CompanyName)
		l.Address = caseFormat(collapseWS(l.Address), opts.AddressFormat)
		l.City = caseFormat(collapseWS(l.City), opts.AddressFormat)
		l.Country = caseFormat(l.Country, opts.AddressFormat)
		if len(l.State) == 2 {
			l.State = strings.ToUpper(l.State)
		}
	}

	l.ZipCode = zipJunkRx.ReplaceAllString(l.ZipCode, "")

	if opts.FlagMissing && l.Email == "" && l.Phone == "" {
		l.Flagged = true
	}
	return l
}

func cleanEmail(email string, opts Options, flagged *bool) string {
	if email == "" {
		return email
	}
	if opts.EmailFormat == EmailLowercase {
		email = strings.ToLower(email)
	}
	if opts.CorrectTypos {
		for typo, fix := range defaultTypos {
			if _, overridden := opts.TypoCorrections[typo]; overridden {
				continue
			}
			if strings.HasSuffix(email, typo) {
				email = strings.TrimSuffix(email, typo) + fix
				break
			}
		}
		for typo, fix := range opts.TypoCorrections {
			if strings.HasSuffix(email, typo) {
				email = strings.TrimSuffix(email, typo) + fix
				break
			}
		}
	}
	if opts.ValidateEmail && !emailRx.MatchString(email) {
		*flagged = true
	}
	return email
}

func cleanPhone(phone string, opts Options, flagged *bool) string {
	if phone == "" {
		return phone
	}
	digits := nonDigitRx.ReplaceAllString(phone, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) < 10 {
		if opts.ValidatePhone {
			*flagged = true
		}
		return phone
	}

	a, b, c := digits[:3], digits[3:6], digits[6:10]
	switch opts.PhoneFormat {
	case PhoneDashes:
		return fmt.Sprintf("%s-%s-%s", a, b, c)
	case PhoneDots:
		return fmt.Sprintf("%s.%s.%s", a, b, c)
	case PhoneInternational:
		return fmt.Sprintf("+1 %s %s %s", a, b, c)
	case PhoneRaw:
		return digits[:10]
	default:
		return fmt.Sprintf("(%s) %s-%s", a, b, c)
	}
}

func cleanName(name, format string) string {
	if name == "" {
		return name
	}
	switch format {
	case FormatUpper:
		return strings.ToUpper(name)
	case FormatLower:
		return strings.ToLower(name)
	case FormatPreserve:
		return name
	default: // proper
		name = titleCaser.String(strings.ToLower(name))
		name = mcRx.ReplaceAllStringFunc(name, func(m string) string {
			return "Mc" + strings.ToUpper(m[2:])
		})
		name = oAposRx.ReplaceAllStringFunc(name, func(m string) string {
			return "O'" + strings.ToUpper(m[2:])
		})
		return name
	}
}

func cleanCompany(company string) string {
	if company == "" {
		return company
	}
	company = titleCaser.String(strings.ToLower(collapseWS(company)))
	for _, suffix := range companySuffixes {
		if strings.HasSuffix(company, " "+suffix) {
			company = strings.TrimSuffix(company, suffix) + strings.ToUpper(suffix)
			break
		}
	}
	return company
}

func caseFormat(s, format string) string {
	if s == "" {
		return s
	}
	switch format {
	case FormatUpper:
		return strings.ToUpper(s)
	case FormatLower:
		return strings.ToLower(s)
	case FormatPreserve:
		return s
	default:
		return titleCaser.String(strings.ToLower(s))
	}
}

func collapseWS(s string) string {
	return strings.TrimSpace(multiWSRx.ReplaceAllString(s, " "))
}
