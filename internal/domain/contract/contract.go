// Package contract defines the commercial-contract document record and its
// payload mapping at the storage boundary.
package contract

import "strings"

// Payload field names at the storage boundary.
const (
	FieldCaseName          = "case_name"
	FieldCitation          = "citation"
	FieldCourt             = "court"
	FieldCourtLevel        = "court_level"
	FieldJurisdiction      = "jurisdiction"
	FieldDateFiled         = "date_filed"
	FieldCaseType          = "case_type"
	FieldIndustry          = "industry"
	FieldCompanySize       = "company_size"
	FieldContractStatus    = "contract_status"
	FieldEstimatedValue    = "estimated_value"
	FieldComplexityLevel   = "complexity_level"
	FieldRiskLevel         = "risk_level"
	FieldRenewalTerms      = "renewal_terms"
	FieldContractStartDate = "contract_start_date"
	FieldContractEndDate   = "contract_end_date"
	FieldSummary           = "summary"
	FieldFullText          = "full_text"
	FieldURL               = "url"
)

// Storage-only payload keys (vector blobs, the derived filing-date number)
// never surface as contract metadata.
const (
	internalVectorPrefix = "vec_"
	internalDateField    = "date_filed_ts"
)

func isInternalField(key string) bool {
	return strings.HasPrefix(key, internalVectorPrefix) || key == internalDateField
}

// Contract is a single commercial-contract document. All metadata fields are
// optional except ID; unknown payload keys ride along in Extra.
type Contract struct {
	ID                string
	CaseName          string
	Citation          string
	Court             string
	CourtLevel        string
	Jurisdiction      string
	DateFiled         string
	CaseType          string
	Industry          string
	CompanySize       string
	ContractStatus    string
	EstimatedValue    string
	ComplexityLevel   string
	RiskLevel         string
	RenewalTerms      string
	ContractStartDate string
	ContractEndDate   string
	Summary           string
	FullText          string
	URL               string

	// Extra holds unrecognized payload keys verbatim (passthrough metadata).
	Extra map[string]string
}

// CategoricalFields lists the payload fields that participate in filtering
// and in the filter-value catalog.
func CategoricalFields() []string {
	return []string{
		FieldJurisdiction,
		FieldCourtLevel,
		FieldCaseType,
		FieldIndustry,
		FieldCompanySize,
		FieldContractStatus,
		FieldComplexityLevel,
		FieldRiskLevel,
		FieldRenewalTerms,
	}
}

// FromPayload reconstructs a Contract from a stored payload map.
// Storage-internal keys are skipped.
func FromPayload(id string, payload map[string]string) Contract {
	c := Contract{ID: id}
	for k, v := range payload {
		if isInternalField(k) {
			continue
		}
		if !c.setKnown(k, v) {
			if c.Extra == nil {
				c.Extra = make(map[string]string)
			}
			c.Extra[k] = v
		}
	}
	return c
}

// Payload flattens the contract into a storage payload map. Empty fields are
// omitted so absent metadata imposes no tag to match against.
func (c *Contract) Payload() map[string]string {
	p := make(map[string]string, 20+len(c.Extra))
	put := func(k, v string) {
		if v != "" {
			p[k] = v
		}
	}
	put(FieldCaseName, c.CaseName)
	put(FieldCitation, c.Citation)
	put(FieldCourt, c.Court)
	put(FieldCourtLevel, c.CourtLevel)
	put(FieldJurisdiction, c.Jurisdiction)
	put(FieldDateFiled, c.DateFiled)
	put(FieldCaseType, c.CaseType)
	put(FieldIndustry, c.Industry)
	put(FieldCompanySize, c.CompanySize)
	put(FieldContractStatus, c.ContractStatus)
	put(FieldEstimatedValue, c.EstimatedValue)
	put(FieldComplexityLevel, c.ComplexityLevel)
	put(FieldRiskLevel, c.RiskLevel)
	put(FieldRenewalTerms, c.RenewalTerms)
	put(FieldContractStartDate, c.ContractStartDate)
	put(FieldContractEndDate, c.ContractEndDate)
	put(FieldSummary, c.Summary)
	put(FieldFullText, c.FullText)
	put(FieldURL, c.URL)
	for k, v := range c.Extra {
		if !isInternalField(k) {
			p[k] = v
		}
	}
	return p
}

// Categorical returns the contract's categorical field values keyed by
// payload field name. Used by the filter-value catalog.
func (c *Contract) Categorical() map[string]string {
	return map[string]string{
		FieldJurisdiction:    c.Jurisdiction,
		FieldCourtLevel:      c.CourtLevel,
		FieldCaseType:        c.CaseType,
		FieldIndustry:        c.Industry,
		FieldCompanySize:     c.CompanySize,
		FieldContractStatus:  c.ContractStatus,
		FieldComplexityLevel: c.ComplexityLevel,
		FieldRiskLevel:       c.RiskLevel,
		FieldRenewalTerms:    c.RenewalTerms,
	}
}

// Normalize trims surrounding whitespace on all categorical fields.
// Values are trimmed at ingestion and again at filter compile time; case is
// preserved in both places.
func (c *Contract) Normalize() {
	c.Jurisdiction = strings.TrimSpace(c.Jurisdiction)
	c.CourtLevel = strings.TrimSpace(c.CourtLevel)
	c.CaseType = strings.TrimSpace(c.CaseType)
	c.Industry = strings.TrimSpace(c.Industry)
	c.CompanySize = strings.TrimSpace(c.CompanySize)
	c.ContractStatus = strings.TrimSpace(c.ContractStatus)
	c.ComplexityLevel = strings.TrimSpace(c.ComplexityLevel)
	c.RiskLevel = strings.TrimSpace(c.RiskLevel)
	c.RenewalTerms = strings.TrimSpace(c.RenewalTerms)
}

func (c *Contract) setKnown(key, value string) bool {
	switch key {
	case FieldCaseName:
		c.CaseName = value
	case FieldCitation:
		c.Citation = value
	case FieldCourt:
		c.Court = value
	case FieldCourtLevel:
		c.CourtLevel = value
	case FieldJurisdiction:
		c.Jurisdiction = value
	case FieldDateFiled:
		c.DateFiled = value
	case FieldCaseType:
		c.CaseType = value
	case FieldIndustry:
		c.Industry = value
	case FieldCompanySize:
		c.CompanySize = value
	case FieldContractStatus:
		c.ContractStatus = value
	case FieldEstimatedValue:
		c.EstimatedValue = value
	case FieldComplexityLevel:
		c.ComplexityLevel = value
	case FieldRiskLevel:
		c.RiskLevel = value
	case FieldRenewalTerms:
		c.RenewalTerms = value
	case FieldContractStartDate:
		c.ContractStartDate = value
	case FieldContractEndDate:
		c.ContractEndDate = value
	case FieldSummary:
		c.Summary = value
	case FieldFullText:
		c.FullText = value
	case FieldURL:
		c.URL = value
	default:
		return false
	}
	return true
}
