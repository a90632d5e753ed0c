package hcl

// The catalog file layout. Rates and bounds are decoded as strings so
// that both `rate = 10040` and `rate = "0.0125"` keep their exact decimal
// value.

type fileSchema struct {
	Jurisdictions []jurisdictionBlock `hcl:"jurisdiction,block"`
}

type jurisdictionBlock struct {
	ID        string  `hcl:"id,label"`
	Name      string  `hcl:"name"`
	StateCode string  `hcl:"state_code"`
	StateName *string `hcl:"state_name,optional"`
	Type      *string `hcl:"type,optional"`

	ServiceAreas []serviceAreaBlock `hcl:"service_area,block"`
	Fees         []feeBlock         `hcl:"fee,block"`
}

type serviceAreaBlock struct {
	ID          string  `hcl:"id,label"`
	Name        string  `hcl:"name"`
	Description *string `hcl:"description,optional"`
}

type feeBlock struct {
	ID          string   `hcl:"id,label"`
	Name        string   `hcl:"name"`
	Agency      string   `hcl:"agency"`
	AgencyID    *string  `hcl:"agency_id,optional"`
	Category    *string  `hcl:"category,optional"`
	ServiceArea *string  `hcl:"service_area,optional"`
	AppliesTo   []string `hcl:"applies_to,optional"`
	UseSubtypes []string `hcl:"use_subtypes,optional"`
	Active      *bool    `hcl:"active,optional"`

	Rules []ruleBlock `hcl:"rule,block"`
}

type ruleBlock struct {
	ID             *string `hcl:"id,optional"`
	CalcType       string  `hcl:"calc_type"`
	Rate           *string `hcl:"rate,optional"`
	UnitLabel      *string `hcl:"unit_label,optional"`
	Frequency      *string `hcl:"frequency,optional"`
	MinFee         *string `hcl:"min_fee,optional"`
	MaxFee         *string `hcl:"max_fee,optional"`
	TierDriver     *string `hcl:"tier_driver,optional"`
	TierMode       *string `hcl:"tier_mode,optional"`
	FormulaDisplay *string `hcl:"formula_display,optional"`
	Current        *bool   `hcl:"current,optional"`

	Tiers      []tierBlock      `hcl:"tier,block"`
	MeterRates []meterRateBlock `hcl:"meter_rate,block"`
	Formula    *formulaBlock    `hcl:"formula,block"`
}

type tierBlock struct {
	Min   string  `hcl:"min"`
	Max   *string `hcl:"max,optional"`
	Rate  string  `hcl:"rate"`
	Basis *string `hcl:"basis,optional"`
}

type meterRateBlock struct {
	Size string `hcl:"size"`
	Rate string `hcl:"rate"`
}

type formulaBlock struct {
	Operator *string     `hcl:"operator,optional"`
	Terms    []termBlock `hcl:"term,block"`
}

type termBlock struct {
	Kind    string  `hcl:"kind"`
	Rate    *string `hcl:"rate,optional"`
	Divisor *string `hcl:"divisor,optional"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
