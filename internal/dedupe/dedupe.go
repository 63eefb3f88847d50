// Package dedupe separates a cleaned batch into unique leads and duplicates,
// first within the batch, then against already stored leads.
package dedupe

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/SafeerAbbas624/lead-management-system/internal/lead"
)

// Duplicate reason codes.
const (
	ReasonBatchEmail = "duplicate email in batch"
	ReasonBatchPhone = "duplicate phone in batch"
	ReasonStoreMatch = "matches existing lead"
	ReasonNoIdentity = "no email or phone"
)

// Duplicate pairs a rejected record with why it was rejected. For database
// matches the existing record's id and source are carried for audit.
type Duplicate struct {
	Lead           lead.Lead `json:"lead"`
	Reason         string    `json:"reason"`
	ExistingID     int64     `json:"existing_id,omitempty"`
	ExistingSource string    `json:"existing_source,omitempty"`
}

// Result of a deduplication pass. BatchDuplicates and StoreDuplicates are
// disjoint counts; they are reported separately, never summed.
type Result struct {
	Clean           []lead.Lead `json:"-"`
	Duplicates      []Duplicate `json:"-"`
	BatchDuplicates int         `json:"batch_duplicates"`
	StoreDuplicates int         `json:"store_duplicates"`
	NoIdentity      int         `json:"no_identity"`
}

var nonDigitRx = regexp.MustCompile(`\D`)

// NormalizeEmail lowercases and trims an email for identity comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips non-digits and drops a leading country code "1"
// when more than ten digits remain.
func NormalizePhone(phone string) string {
	digits := nonDigitRx.ReplaceAllString(phone, "")
	if len(digits) > 10 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

// LeadFinder is the read capability the cross-store pass needs.
type LeadFinder interface {
	FindLeadsByIdentity(ctx context.Context, emails, phones []string) ([]lead.Lead, error)
}

// Run performs the intra-batch pass, then the cross-store pass against
// finder. A nil finder skips the cross-store pass.
func Run(ctx context.Context, batch []lead.Lead, finder LeadFinder) (*Result, error) {
	res := intraBatch(batch)

	if finder == nil || len(res.Clean) == 0 {
		return res, nil
	}

	if err := crossStore(ctx, res, finder); err != nil {
		return nil, err
	}

	zap.S().Infow("dedupe complete",
		"clean", len(res.Clean),
		"batch_duplicates", res.BatchDuplicates,
		"store_duplicates", res.StoreDuplicates,
		"no_identity", res.NoIdentity)
	return res, nil
}

// intraBatch keeps the first occurrence of every email or phone identity.
// A record repeating either identity is a duplicate. Records with neither
// identity are ineligible for the clean set.
func intraBatch(batch []lead.Lead) *Result {
	res := &Result{}
	seenEmail := map[string]bool{}
	seenPhone := map[string]bool{}

	for _, l := range batch {
		email := NormalizeEmail(l.Email)
		phone := NormalizePhone(l.Phone)

		if email == "" && phone == "" {
			res.NoIdentity++
			res.Duplicates = append(res.Duplicates, Duplicate{Lead: l, Reason: ReasonNoIdentity})
			continue
		}

		switch {
		case email != "" && seenEmail[email]:
			res.BatchDuplicates++
			res.Duplicates = append(res.Duplicates, Duplicate{Lead: l, Reason: ReasonBatchEmail})
			continue
		case phone != "" && seenPhone[phone]:
			res.BatchDuplicates++
			res.Duplicates = append(res.Duplicates, Duplicate{Lead: l, Reason: ReasonBatchPhone})
			continue
		}

		if email != "" {
			seenEmail[email] = true
		}
		if phone != "" {
			seenPhone[phone] = true
		}
		res.Clean = append(res.Clean, l)
	}
	return res
}

func crossStore(ctx context.Context, res *Result, finder LeadFinder) error {
	var emails, phones []string
	for _, l := range res.Clean {
		if e := NormalizeEmail(l.Email); e != "" {
			emails = append(emails, e)
		}
		if p := NormalizePhone(l.Phone); p != "" {
			phones = append(phones, p)
		}
	}

	existing, err := finder.FindLeadsByIdentity(ctx, emails, phones)
	if err != nil {
		return eris.Wrap(err, "dedupe: query existing leads")
	}
	if len(existing) == 0 {
		return nil
	}

	existingEmail := map[string]lead.Lead{}
	existingPhone := map[string]lead.Lead{}
	for _, l := range existing {
		if e := NormalizeEmail(l.Email); e != "" {
			existingEmail[e] = l
		}
		if p := NormalizePhone(l.Phone); p != "" {
			existingPhone[p] = l
		}
	}

	var clean []lead.Lead
	for _, l := range res.Clean {
		match, found := existingEmail[NormalizeEmail(l.Email)]
		if !found || NormalizeEmail(l.Email) == "" {
			match, found = existingPhone[NormalizePhone(l.Phone)]
			if NormalizePhone(l.Phone) == "" {
				found = false
			}
		}
		if found {
			res.StoreDuplicates++
			res.Duplicates = append(res.Duplicates, Duplicate{
				Lead:           l,
				Reason:         ReasonStoreMatch,
				ExistingID:     match.ID,
				ExistingSource: match.LeadSource,
			})
			continue
		}
		clean = append(clean, l)
	}
	res.Clean = clean
	return nil
}
