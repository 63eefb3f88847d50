// Package mapper maps arbitrary source file headers onto the canonical lead
// schema. Scoring combines keyword, regex, and fuzzy matching; sample values
// can override a weak lexical guess.
package mapper

import "regexp"

// Canonical field names. These are the keys of FieldMapping and line up with
// lead.Lead attributes.
const (
	FieldEmail            = "email"
	FieldFirstName        = "firstname"
	FieldLastName         = "lastname"
	FieldPhone            = "phone"
	FieldCompanyName      = "companyname"
	FieldAddress          = "address"
	FieldCity             = "city"
	FieldState            = "state"
	FieldZipCode          = "zipcode"
	FieldTaxID            = "taxid"
	FieldCountry          = "country"
	FieldLeadScore        = "leadscore"
	FieldExclusivity      = "exclusivity"
	FieldExclusivityNotes = "exclusivitynotes"
	FieldLeadCost         = "leadcost"
	FieldRevenue          = "revenue"
	FieldIsDNC            = "isdnc"
)

// fieldPattern describes how to recognize one canonical field in a header.
// Weight scales the raw match score: identity fields are more trustworthy
// matches than fuzzy numeric guesses.
type fieldPattern struct {
	Field    string
	Keywords []string
	Patterns []*regexp.Regexp
	Weight   float64
}

func rx(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile("(?i)" + e)
	}
	return out
}

// fieldPatterns is iterated in order: identity fields claim headers first so
// a header like "email address" can never be stolen by a weaker field.
var fieldPatterns = []fieldPattern{
	{
		Field:    FieldEmail,
		Keywords: []string{"email", "mail", "e-mail", "email_address", "emailaddress", "e_mail"},
		Patterns: rx(`.*email.*`, `.*mail.*`, `.*@.*`),
		Weight:   1.0,
	},
	{
		Field:    FieldFirstName,
		Keywords: []string{"firstname", "first_name", "first name", "fname", "given_name", "givenname", "owner first name"},
		Patterns: rx(`.*first.*name.*`, `.*given.*name.*`, `.*fname.*`),
		Weight:   1.0,
	},
	{
		Field:    FieldLastName,
		Keywords: []string{"lastname", "last_name", "last name", "lname", "surname", "family_name", "owner last name"},
		Patterns: rx(`.*last.*name.*`, `.*surname.*`, `.*family.*name.*`, `.*lname.*`),
		Weight:   1.0,
	},
	{
		Field:    FieldPhone,
		Keywords: []string{"phone", "mobile", "tel", "telephone", "cell", "phone_number", "phone number", "alt phone"},
		Patterns: rx(`.*phone.*`, `.*mobile.*`, `.*tel.*`, `.*cell.*`),
		Weight:   1.0,
	},
	{
		Field:    FieldCompanyName,
		Keywords: []string{"company", "business", "companyname", "company_name", "company name", "business name", "biz", "business_name"},
		Patterns: rx(`.*company.*`, `.*business.*`, `.*biz.*`, `.*firm.*`, `.*corp.*`),
		Weight:   1.0,
	},
	{
		Field:    FieldAddress,
		Keywords: []string{"address", "addr", "street", "location"},
		Patterns: rx(`.*address.*`, `.*addr.*`, `.*street.*`, `.*location.*`),
		Weight:   0.8,
	},
	{
		Field:    FieldCity,
		Keywords: []string{"city", "town", "municipality"},
		Patterns: rx(`.*city.*`, `.*town.*`),
		Weight:   0.8,
	},
	{
		Field:    FieldState,
		Keywords: []string{"state", "province", "region"},
		Patterns: rx(`.*state.*`, `.*province.*`, `.*region.*`),
		Weight:   0.8,
	},
	{
		Field:    FieldZipCode,
		Keywords: []string{"zip", "zipcode", "zip_code", "postal", "postal_code", "postcode"},
		Patterns: rx(`.*zip.*`, `.*postal.*`, `.*postcode.*`),
		Weight:   0.8,
	},
	{
		Field:    FieldTaxID,
		Keywords: []string{"tax_id", "taxid", "ein", "tax id", "federal_id"},
		Patterns: rx(`.*tax.*id.*`, `.*ein.*`, `.*federal.*id.*`),
		Weight:   0.7,
	},
	{
		Field:    FieldCountry,
		Keywords: []string{"country", "nation", "nationality"},
		Patterns: rx(`.*country.*`, `.*nation.*`),
		Weight:   0.8,
	},
	{
		Field:    FieldLeadScore,
		Keywords: []string{"score", "lead_score", "lead score", "rating", "quality", "grade"},
		Patterns: rx(`.*score.*`, `.*rating.*`, `.*quality.*`, `.*grade.*`),
		Weight:   0.6,
	},
	{
		Field:    FieldExclusivity,
		Keywords: []string{"exclusivity", "exclusive", "exclu", "exclus"},
		Patterns: rx(`.*exclusiv.*`, `.*exclu.*`),
		Weight:   0.6,
	},
	{
		Field:    FieldExclusivityNotes,
		Keywords: []string{"notes", "comments", "remarks", "exclusivity notes", "exclusivity_notes", "note"},
		Patterns: rx(`.*notes.*`, `.*comments.*`, `.*remarks.*`),
		Weight:   0.5,
	},
	{
		Field:    FieldLeadCost,
		Keywords: []string{"cost", "price", "amount", "value", "lead_cost", "lead cost", "loan", "loan_amount"},
		Patterns: rx(`.*cost.*`, `.*price.*`, `.*amount.*`, `.*value.*`, `.*loan.*`),
		Weight:   0.6,
	},
	{
		Field:    FieldRevenue,
		Keywords: []string{"revenue", "income", "sales", "monthly revenue", "annual revenue"},
		Patterns: rx(`.*revenue.*`, `.*income.*`, `.*sales.*`),
		Weight:   0.5,
	},
	{
		Field:    FieldIsDNC,
		Keywords: []string{"is_dnc", "dnc", "do_not_call", "do_not_contact", "opt_out", "unsubscribe"},
		Patterns: rx(`.*dnc.*`, `.*do.not.*`, `.*opt.out.*`, `.*unsubscribe.*`),
		Weight:   0.8,
	},
}

// patternFor returns the pattern set for a canonical field, or nil.
func patternFor(field string) *fieldPattern {
	for i := range fieldPatterns {
		if fieldPatterns[i].Field == field {
			return &fieldPatterns[i]
		}
	}
	return nil
}

// Fields returns the canonical field names in mapping priority order.
func Fields() []string {
	out := make([]string, len(fieldPatterns))
	for i, p := range fieldPatterns {
		out[i] = p.Field
	}
	return out
}
