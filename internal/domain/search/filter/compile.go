package filter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atticus-search/atticus/internal/domain"
)

// DateField is the derived numeric payload field carrying date_filed as
// epoch seconds, indexed for range filtering.
const DateField = "date_filed_ts"

// dateLayout is the accepted wire format for date bounds.
const dateLayout = "2006-01-02"

// Spec is a client-facing filter specification before compilation: raw
// categorical selections plus an optional filing-date window.
type Spec struct {
	// Fields maps categorical field name to accepted values (OR within a
	// field, AND across fields).
	Fields map[string][]string
	// DateFrom and DateTo bound date_filed inclusively, ISO "2006-01-02".
	DateFrom string
	DateTo   string
}

// IsEmpty reports whether the spec carries no constraints.
func (s Spec) IsEmpty() bool {
	return len(s.Fields) == 0 && s.DateFrom == "" && s.DateTo == ""
}

// Compile lowers a Spec into an index Expression. Unrecognized field names
// are dropped silently, values are whitespace-trimmed with case preserved,
// and a field whose values all trim to empty imposes no constraint.
// Compilation is a pure function of its inputs.
func Compile(spec Spec, recognized []string) (Expression, error) {
	known := make(map[string]struct{}, len(recognized))
	for _, f := range recognized {
		known[f] = struct{}{}
	}

	fields := make([]string, 0, len(spec.Fields))
	for f := range spec.Fields {
		if _, ok := known[f]; ok {
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)

	var must []Condition
	for _, f := range fields {
		values := make([]string, 0, len(spec.Fields[f]))
		for _, v := range spec.Fields[f] {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		cond, err := NewMatchAny(f, values)
		if err != nil {
			return Expression{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		must = append(must, cond)
	}

	dateCond, ok, err := compileDateRange(spec.DateFrom, spec.DateTo)
	if err != nil {
		return Expression{}, err
	}
	if ok {
		must = append(must, dateCond)
	}

	expr, err := NewExpression(must, nil, nil)
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return expr, nil
}

// compileDateRange turns inclusive date bounds into an epoch-seconds range on
// DateField. From maps to the start of its day, to maps to the end of its day.
func compileDateRange(from, to string) (Condition, bool, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return Condition{}, false, nil
	}

	var gte, lte *float64
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return Condition{}, false, fmt.Errorf("%w: invalid date_from %q", domain.ErrValidation, from)
		}
		v := float64(t.Unix())
		gte = &v
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return Condition{}, false, fmt.Errorf("%w: invalid date_to %q", domain.ErrValidation, to)
		}
		v := float64(t.Add(24*time.Hour - time.Second).Unix())
		lte = &v
	}
	if gte != nil && lte != nil && *gte > *lte {
		return Condition{}, false, fmt.Errorf("%w: date_from after date_to", domain.ErrValidation)
	}

	r, err := NewRangeFilter(nil, gte, nil, lte)
	if err != nil {
		return Condition{}, false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	cond, err := NewRange(DateField, r)
	if err != nil {
		return Condition{}, false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return cond, true, nil
}
