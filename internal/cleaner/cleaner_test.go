package cleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SafeerAbbas624/lead-management-system/internal/lead"
)

func TestCleanOne_Defaults(t *testing.T) {
	l := CleanOne(lead.Lead{
		FirstName:   "  ann ",
		LastName:    "mcdonald",
		Email:       " Ann@GMIAL.COM ",
		Phone:       "1-555-123-4567",
		CompanyName: "acme   consulting llc",
		Address:     "12 main st",
		State:       "ny",
	}, DefaultOptions())

	assert.Equal(t, "Ann", l.FirstName)
	assert.Equal(t, "McDonald", l.LastName)
	assert.Equal(t, "ann@gmail.com", l.Email)
	assert.Equal(t, "(555) 123-4567", l.Phone)
	assert.Equal(t, "Acme Consulting LLC", l.CompanyName)
	assert.Equal(t, "12 Main St", l.Address)
	assert.Equal(t, "NY", l.State)
	assert.False(t, l.Flagged)
}

func TestCleanOne_Idempotent(t *testing.T) {
	opts := DefaultOptions()
	in := lead.Lead{
		FirstName:   "o'connor",
		LastName:    "MCDONALD",
		Email:       "Bob@Yaho.com",
		Phone:       "+1 (555) 987-6543",
		CompanyName: "widgets inc",
		Address:     "99  ELM  AVE",
		City:        "springfield",
		Country:     "usa",
	}
	once := CleanOne(in, opts)
	twice := CleanOne(once, opts)
	assert.Equal(t, once, twice)
}

func TestCleanOne_PhoneFormats(t *testing.T) {
	cases := map[string]string{
		PhoneStandard:      "(555) 123-4567",
		PhoneDashes:        "555-123-4567",
		PhoneDots:          "555.123.4567",
		PhoneInternational: "+1 555 123 4567",
		PhoneRaw:           "5551234567",
	}
	for format, want := range cases {
		opts := DefaultOptions()
		opts.PhoneFormat = format
		l := CleanOne(lead.Lead{Phone: "15551234567", Email: "a@x.com"}, opts)
		assert.Equal(t, want, l.Phone, "format %s", format)
	}
}

func TestCleanOne_FlagsInvalidNeverDrops(t *testing.T) {
	opts := DefaultOptions()

	l := CleanOne(lead.Lead{Email: "not-an-email", Phone: "(555) 123-4567"}, opts)
	assert.True(t, l.Flagged)
	assert.Equal(t, "not-an-email", l.Email)

	l = CleanOne(lead.Lead{Email: "a@x.com", Phone: "12345"}, opts)
	assert.True(t, l.Flagged)
	assert.Equal(t, "12345", l.Phone)

	l = CleanOne(lead.Lead{}, opts)
	assert.True(t, l.Flagged) // neither email nor phone present
}

func TestCleanOne_CustomTypoCorrections(t *testing.T) {
	opts := DefaultOptions()
	opts.TypoCorrections = map[string]string{"exampel.com": "example.com"}

	l := CleanOne(lead.Lead{Email: "a@exampel.com", Phone: "5551234567"}, opts)
	assert.Equal(t, "a@example.com", l.Email)
}

func TestCleanOne_NameFormats(t *testing.T) {
	opts := DefaultOptions()
	opts.NameFormat = FormatUpper
	assert.Equal(t, "ANN", CleanOne(lead.Lead{FirstName: "ann", Email: "a@x.com"}, opts).FirstName)

	opts.NameFormat = FormatLower
	assert.Equal(t, "ann", CleanOne(lead.Lead{FirstName: "ANN", Email: "a@x.com"}, opts).FirstName)

	opts.NameFormat = FormatPreserve
	assert.Equal(t, "aNN", CleanOne(lead.Lead{FirstName: "aNN", Email: "a@x.com"}, opts).FirstName)
}

func TestClean_Batch(t *testing.T) {
	out := Clean([]lead.Lead{
		{Email: "A@X.COM", Phone: "5551234567"},
		{Email: "B@X.COM", Phone: "5559876543"},
	}, DefaultOptions())
	assert.Len(t, out, 2)
	assert.Equal(t, "a@x.com", out[0].Email)
	assert.Equal(t, "b@x.com", out[1].Email)
}
