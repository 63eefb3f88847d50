package mapper

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/SafeerAbbas624/lead-management-system/internal/lead"
)

// acceptThreshold is the minimum weighted score a header must reach before a
// field will claim it.
const acceptThreshold = 0.5

// Mapping is a partial injective mapping canonical field -> source header.
// No header is claimed by two fields and no field claims two headers.
type Mapping struct {
	FieldToHeader map[string]string  `json:"mapping"`
	Confidence    map[string]float64 `json:"confidence"`
	Unmapped      []string           `json:"unmapped_headers,omitempty"`
}

// HeaderFor returns the source header mapped to a field, or "".
func (m *Mapping) HeaderFor(field string) string {
	return m.FieldToHeader[field]
}

// OverallConfidence is the fraction of source headers that were mapped.
func (m *Mapping) OverallConfidence(totalHeaders int) float64 {
	if totalHeaders == 0 {
		return 0
	}
	return float64(len(m.FieldToHeader)) / float64(totalHeaders)
}

// Map produces a Mapping for the given headers. Sample rows, when provided,
// refine lexical guesses by value shape. Manual overrides (field -> header)
// always win and are applied before automatic mapping.
func Map(headers []string, samples []map[string]string, overrides map[string]string) *Mapping {
	m := &Mapping{
		FieldToHeader: map[string]string{},
		Confidence:    map[string]float64{},
	}
	claimed := map[string]bool{}

	headerSet := make(map[string]bool, len(headers))
	for _, h := range headers {
		headerSet[h] = true
	}

	for field, header := range overrides {
		if patternFor(field) == nil || !headerSet[header] || claimed[header] {
			continue
		}
		m.FieldToHeader[field] = header
		m.Confidence[field] = 1.0
		claimed[header] = true
	}

	for _, p := range fieldPatterns {
		if _, done := m.FieldToHeader[p.Field]; done {
			continue
		}

		var bestHeader string
		var bestScore float64
		for _, h := range headers {
			if claimed[h] {
				continue
			}
			if s := scoreAgainst(normalizeHeader(h), &p); s > bestScore && s > acceptThreshold {
				bestScore = s
				bestHeader = h
			}
		}
		if bestHeader == "" {
			continue
		}
		m.FieldToHeader[p.Field] = bestHeader
		m.Confidence[p.Field] = bestScore
		claimed[bestHeader] = true
		zap.S().Debugw("mapped header", "header", bestHeader, "field", p.Field, "score", bestScore)
	}

	if len(samples) > 0 {
		refineWithSamples(m, headers, samples, claimed)
	}

	for _, h := range headers {
		if !claimed[h] {
			m.Unmapped = append(m.Unmapped, h)
		}
	}
	return m
}

var (
	emailShape = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	phoneShape = regexp.MustCompile(`[\d\s\-()]{7,}`)
	moneyJunk  = regexp.MustCompile(`[$,]`)
)

// refineWithSamples adjusts the mapping using column value shapes. A strong
// data signal (> 0.8) that beats the lexical score moves the header to the
// suggested field; a weaker consistent signal averages into the confidence.
func refineWithSamples(m *Mapping, headers []string, samples []map[string]string, claimed map[string]bool) {
	headerField := map[string]string{}
	for f, h := range m.FieldToHeader {
		headerField[h] = f
	}

	for _, h := range headers {
		values := sampleColumn(samples, h)
		if len(values) == 0 {
			continue
		}

		for field, dataConf := range analyzeSamples(h, values) {
			current, mapped := headerField[h]
			lexical := 0.0
			if mapped {
				lexical = m.Confidence[current]
			}

			switch {
			case dataConf > 0.8 && dataConf > lexical:
				// Strong data signal wins, provided the suggested field is
				// free (or already this header's).
				if owner, taken := m.FieldToHeader[field]; taken && owner != h {
					continue
				}
				if mapped && current != field {
					delete(m.FieldToHeader, current)
					delete(m.Confidence, current)
				}
				m.FieldToHeader[field] = h
				m.Confidence[field] = dataConf
				headerField[h] = field
				claimed[h] = true
			case mapped && current == field && dataConf > lexical:
				m.Confidence[field] = (lexical + dataConf) / 2
			}
		}
	}
}

func sampleColumn(samples []map[string]string, header string) []string {
	var out []string
	for _, row := range samples {
		if v := strings.TrimSpace(row[header]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// analyzeSamples classifies a column by the shape of its values, returning
// canonical field -> fraction of samples matching that shape.
func analyzeSamples(header string, values []string) map[string]float64 {
	out := map[string]float64{}
	n := float64(len(values))

	var emails, phones, numbers int
	for _, v := range values {
		if emailShape.MatchString(v) {
			emails++
		}
		if phoneShape.MatchString(v) {
			phones++
		}
		if _, err := strconv.ParseFloat(moneyJunk.ReplaceAllString(v, ""), 64); err == nil {
			numbers++
		}
	}

	if emails > 0 {
		out[FieldEmail] = float64(emails) / n
	}
	if phones > 0 {
		out[FieldPhone] = float64(phones) / n
	}
	if float64(numbers)/n > 0.7 {
		lower := strings.ToLower(header)
		switch {
		case strings.Contains(lower, "loan") || strings.Contains(lower, "amount") ||
			strings.Contains(lower, "principal") || strings.Contains(lower, "cost") ||
			strings.Contains(lower, "price"):
			out[FieldLeadCost] = float64(numbers) / n
		case strings.Contains(lower, "revenue") || strings.Contains(lower, "sales") ||
			strings.Contains(lower, "income"):
			out[FieldRevenue] = float64(numbers) / n
		}
	}
	return out
}

// BuildLead converts a header-keyed row into a canonical lead using the
// mapping. Unmapped headers land verbatim in Metadata.
func BuildLead(row map[string]string, m *Mapping) lead.Lead {
	get := func(field string) string {
		h := m.FieldToHeader[field]
		if h == "" {
			return ""
		}
		return strings.TrimSpace(row[h])
	}

	l := lead.Lead{
		FirstName:        get(FieldFirstName),
		LastName:         get(FieldLastName),
		Email:            get(FieldEmail),
		Phone:            get(FieldPhone),
		CompanyName:      get(FieldCompanyName),
		TaxID:            get(FieldTaxID),
		Address:          get(FieldAddress),
		City:             get(FieldCity),
		State:            get(FieldState),
		ZipCode:          get(FieldZipCode),
		Country:          get(FieldCountry),
		ExclusivityNotes: get(FieldExclusivityNotes),
		LeadStatus:       "New",
	}

	l.LeadScore = parseMoney(get(FieldLeadScore))
	l.LeadCost = parseMoney(get(FieldLeadCost))
	l.Revenue = parseMoney(get(FieldRevenue))
	l.Exclusivity = isTruthy(get(FieldExclusivity))

	mappedHeaders := map[string]bool{}
	for _, h := range m.FieldToHeader {
		mappedHeaders[h] = true
	}
	for h, v := range row {
		if mappedHeaders[h] || strings.TrimSpace(v) == "" {
			continue
		}
		if l.Metadata == nil {
			l.Metadata = map[string]string{}
		}
		l.Metadata[h] = v
	}

	// The raw DNC flag is carried for the compliance check downstream.
	if dncRaw := get(FieldIsDNC); dncRaw != "" {
		if l.Metadata == nil {
			l.Metadata = map[string]string{}
		}
		l.Metadata[FieldIsDNC] = dncRaw
	}
	return l
}

// parseMoney strips currency symbols and separators, then parses a float.
// Unparseable input is zero.
func parseMoney(s string) float64 {
	if s == "" {
		return 0
	}
	cleaned := moneyJunk.ReplaceAllString(strings.TrimSpace(s), "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return f
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1":
		return true
	}
	return false
}
