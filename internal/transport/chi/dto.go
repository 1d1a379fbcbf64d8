package chi

import (
	"time"

	"github.com/atticus-search/atticus/internal/domain/contract"
	"github.com/atticus-search/atticus/internal/domain/search/filter"
	"github.com/atticus-search/atticus/internal/domain/search/result"
)

// searchRequest is the POST /api/v1/search body.
type searchRequest struct {
	Query   string         `json:"query"`
	Filters *searchFilters `json:"filters,omitempty"`
	Limit   *int           `json:"limit,omitempty"`
	Offset  *int           `json:"offset,omitempty"`
}

// searchFilters names the accepted categorical selections plus the inclusive
// filing-date window (ISO dates, YYYY-MM-DD).
type searchFilters struct {
	Jurisdiction    []string `json:"jurisdiction,omitempty"`
	CourtLevel      []string `json:"court_level,omitempty"`
	CaseType        []string `json:"case_type,omitempty"`
	Industry        []string `json:"industry,omitempty"`
	CompanySize     []string `json:"company_size,omitempty"`
	ContractStatus  []string `json:"contract_status,omitempty"`
	ComplexityLevel []string `json:"complexity_level,omitempty"`
	RiskLevel       []string `json:"risk_level,omitempty"`
	RenewalTerms    []string `json:"renewal_terms,omitempty"`
	DateFrom        string   `json:"date_from,omitempty"`
	DateTo          string   `json:"date_to,omitempty"`
}

func (f *searchFilters) toSpec() filter.Spec {
	if f == nil {
		return filter.Spec{}
	}
	fields := map[string][]string{
		contract.FieldJurisdiction:    f.Jurisdiction,
		contract.FieldCourtLevel:      f.CourtLevel,
		contract.FieldCaseType:        f.CaseType,
		contract.FieldIndustry:        f.Industry,
		contract.FieldCompanySize:     f.CompanySize,
		contract.FieldContractStatus:  f.ContractStatus,
		contract.FieldComplexityLevel: f.ComplexityLevel,
		contract.FieldRiskLevel:       f.RiskLevel,
		contract.FieldRenewalTerms:    f.RenewalTerms,
	}
	for k, v := range fields {
		if len(v) == 0 {
			delete(fields, k)
		}
	}
	return filter.Spec{Fields: fields, DateFrom: f.DateFrom, DateTo: f.DateTo}
}

// contractJSON is the wire form of one contract, with the optional
// similarity score attached on search results.
type contractJSON struct {
	ID                string   `json:"id"`
	CaseName          string   `json:"case_name"`
	Citation          string   `json:"citation,omitempty"`
	Court             string   `json:"court,omitempty"`
	CourtLevel        string   `json:"court_level,omitempty"`
	Jurisdiction      string   `json:"jurisdiction,omitempty"`
	DateFiled         string   `json:"date_filed,omitempty"`
	CaseType          string   `json:"case_type,omitempty"`
	Industry          string   `json:"industry,omitempty"`
	CompanySize       string   `json:"company_size,omitempty"`
	ContractStatus    string   `json:"contract_status,omitempty"`
	EstimatedValue    string   `json:"estimated_value,omitempty"`
	ComplexityLevel   string   `json:"complexity_level,omitempty"`
	RiskLevel         string   `json:"risk_level,omitempty"`
	RenewalTerms      string   `json:"renewal_terms,omitempty"`
	ContractStartDate string   `json:"contract_start_date,omitempty"`
	ContractEndDate   string   `json:"contract_end_date,omitempty"`
	Summary           string   `json:"summary,omitempty"`
	FullText          string   `json:"full_text,omitempty"`
	URL               string   `json:"url,omitempty"`
	Score             *float64 `json:"score,omitempty"`
}

func contractToJSON(c *contract.Contract, score *float64) contractJSON {
	return contractJSON{
		ID:                c.ID,
		CaseName:          c.CaseName,
		Citation:          c.Citation,
		Court:             c.Court,
		CourtLevel:        c.CourtLevel,
		Jurisdiction:      c.Jurisdiction,
		DateFiled:         c.DateFiled,
		CaseType:          c.CaseType,
		Industry:          c.Industry,
		CompanySize:       c.CompanySize,
		ContractStatus:    c.ContractStatus,
		EstimatedValue:    c.EstimatedValue,
		ComplexityLevel:   c.ComplexityLevel,
		RiskLevel:         c.RiskLevel,
		RenewalTerms:      c.RenewalTerms,
		ContractStartDate: c.ContractStartDate,
		ContractEndDate:   c.ContractEndDate,
		Summary:           c.Summary,
		FullText:          c.FullText,
		URL:               c.URL,
		Score:             score,
	}
}

func resultsToJSON(results []result.Result) []contractJSON {
	out := make([]contractJSON, 0, len(results))
	for i := range results {
		score := results[i].Score
		out = append(out, contractToJSON(&results[i].Contract, &score))
	}
	return out
}

// searchResponse is the POST /api/v1/search envelope.
type searchResponse struct {
	Query          string         `json:"query"`
	Total          int            `json:"total"`
	Results        []contractJSON `json:"results"`
	FiltersApplied *searchFilters `json:"filters_applied,omitempty"`
	ProcessingTime float64        `json:"processing_time"`
}

// filterOptionsResponse is the GET /api/v1/filters envelope, one sorted
// value list per category.
type filterOptionsResponse struct {
	Jurisdictions    []string `json:"jurisdictions"`
	CourtLevels      []string `json:"court_levels"`
	CaseTypes        []string `json:"case_types"`
	Industries       []string `json:"industries"`
	CompanySizes     []string `json:"company_sizes"`
	ContractStatuses []string `json:"contract_statuses"`
	ComplexityLevels []string `json:"complexity_levels"`
	RiskLevels       []string `json:"risk_levels"`
	RenewalTerms     []string `json:"renewal_terms"`
}

func filterOptionsFromCatalog(values map[string][]string) filterOptionsResponse {
	get := func(field string) []string {
		if v := values[field]; v != nil {
			return v
		}
		return []string{}
	}
	return filterOptionsResponse{
		Jurisdictions:    get(contract.FieldJurisdiction),
		CourtLevels:      get(contract.FieldCourtLevel),
		CaseTypes:        get(contract.FieldCaseType),
		Industries:       get(contract.FieldIndustry),
		CompanySizes:     get(contract.FieldCompanySize),
		ContractStatuses: get(contract.FieldContractStatus),
		ComplexityLevels: get(contract.FieldComplexityLevel),
		RiskLevels:       get(contract.FieldRiskLevel),
		RenewalTerms:     get(contract.FieldRenewalTerms),
	}
}

// healthResponse is the GET /api/v1/health envelope.
type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks"`
}

// statsResponse is the GET /api/v1/stats envelope.
type statsResponse struct {
	Status         string `json:"status"`
	TotalContracts int    `json:"total_contracts"`
}

// errorResponse is the error envelope. Detail carries internals only when
// the server runs with debug enabled.
type errorResponse struct {
	Error     string    `json:"error"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
