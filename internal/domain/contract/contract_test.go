package contract

import (
	"testing"
)

func TestPayloadRoundTrip(t *testing.T) {
	c := Contract{
		ID:             "contract-1",
		CaseName:       "Acme Corp v. Globex",
		Jurisdiction:   "Delaware",
		CourtLevel:     "State Supreme",
		DateFiled:      "2020-03-15",
		Industry:       "Technology",
		ContractStatus: "Active",
		Summary:        "Breach of a software licensing agreement.",
		Extra:          map[string]string{"docket_number": "2020-cv-1234"},
	}

	got := FromPayload("contract-1", c.Payload())
	if got.CaseName != c.CaseName || got.Jurisdiction != c.Jurisdiction ||
		got.DateFiled != c.DateFiled || got.Summary != c.Summary {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Extra["docket_number"] != "2020-cv-1234" {
		t.Errorf("Extra = %v", got.Extra)
	}
}

func TestPayloadOmitsEmptyFields(t *testing.T) {
	c := Contract{ID: "c1", CaseName: "Acme v. Globex"}
	p := c.Payload()
	if len(p) != 1 {
		t.Errorf("payload = %v, want only case_name", p)
	}
	if _, ok := p[FieldJurisdiction]; ok {
		t.Error("empty jurisdiction should be omitted")
	}
}

func TestFromPayloadSkipsInternalFields(t *testing.T) {
	c := FromPayload("c1", map[string]string{
		"case_name":     "Acme v. Globex",
		"vec_dense":     "\x00\x01",
		"date_filed_ts": "1584230400",
	})
	if c.CaseName != "Acme v. Globex" {
		t.Errorf("CaseName = %q", c.CaseName)
	}
	if len(c.Extra) != 0 {
		t.Errorf("internal fields leaked into Extra: %v", c.Extra)
	}
}

func TestCategoricalCoversCategoricalFields(t *testing.T) {
	c := Contract{
		Jurisdiction: "Delaware", CourtLevel: "Federal", CaseType: "Breach",
		Industry: "Technology", CompanySize: "Large", ContractStatus: "Active",
		ComplexityLevel: "High", RiskLevel: "Medium", RenewalTerms: "Annual",
	}
	cat := c.Categorical()
	for _, f := range CategoricalFields() {
		if cat[f] == "" {
			t.Errorf("field %q missing from Categorical()", f)
		}
	}
	if len(cat) != len(CategoricalFields()) {
		t.Errorf("Categorical() has %d entries, want %d", len(cat), len(CategoricalFields()))
	}
}

func TestNormalizeTrimsCategoricals(t *testing.T) {
	c := Contract{Jurisdiction: "  Delaware ", Industry: "\tTechnology\n"}
	c.Normalize()
	if c.Jurisdiction != "Delaware" || c.Industry != "Technology" {
		t.Errorf("Normalize left %q / %q", c.Jurisdiction, c.Industry)
	}
}
