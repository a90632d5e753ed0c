package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"permit-fees/core/cost"
	"permit-fees/core/engine"
	"permit-fees/core/types"
)

// DefaultWidth is the rule width of the text report
const DefaultWidth = 70

// TextFormatter writes the feasibility report as plain text
type TextFormatter struct {
	Width int
}

func (f *TextFormatter) Format() Format { return FormatText }

func (f *TextFormatter) width() int {
	if f.Width <= 0 {
		return DefaultWidth
	}
	return f.Width
}

// Render writes the project summary, the financial summary and one
// section each for one-time and monthly fees
func (f *TextFormatter) Render(w io.Writer, report *Report) error {
	b := report.Breakdown
	if b == nil {
		return fmt.Errorf("report has no breakdown")
	}
	bw := bufio.NewWriter(w)
	heavy := strings.Repeat("═", f.width())
	light := strings.Repeat("─", f.width())

	fmt.Fprintln(bw, heavy)
	fmt.Fprintln(bw, "  CONSTRUCTION FEASIBILITY REPORT")
	fmt.Fprintln(bw, heavy)
	fmt.Fprintln(bw)

	p := b.Project
	project := string(p.ProjectType)
	if p.UseSubtype != "" {
		project += " - " + p.UseSubtype
	}
	fmt.Fprintf(bw, "Project: %s\n", project)
	location := p.JurisdictionName
	if p.StateCode != "" {
		location += ", " + p.StateCode
	}
	fmt.Fprintf(bw, "Location: %s\n", location)
	area := p.ServiceArea
	if area == "" {
		area = types.CitywideServiceArea
	}
	fmt.Fprintf(bw, "Service Area: %s\n\n", area)

	fmt.Fprintln(bw, "Project Details:")
	if p.NumUnits != nil {
		fmt.Fprintf(bw, "  Units: %s\n", humanize.Comma(int64(*p.NumUnits)))
	}
	if p.SquareFeet != nil {
		fmt.Fprintf(bw, "  Square Feet: %s\n", humanize.Commaf(*p.SquareFeet))
	}
	if p.ProjectValue != nil {
		fmt.Fprintf(bw, "  Project Value: %s\n", types.FormatUSD(decimal.NewFromFloat(*p.ProjectValue)))
	}
	if p.MeterSize != "" {
		fmt.Fprintf(bw, "  Meter Size: %s\n", p.MeterSize)
	}

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, light)
	fmt.Fprintln(bw, "FINANCIAL SUMMARY")
	fmt.Fprintln(bw, light)
	summaryLine(bw, "One-Time Development Fees:", b.TotalFees)
	summaryLine(bw, "Monthly Operating Costs:", b.MonthlyFees)
	summaryLine(bw, "Annual Operating Costs (Year 1):", b.AnnualOperatingCosts)
	fmt.Fprintln(bw, light)
	summaryLine(bw, "TOTAL FIRST YEAR COST:", b.FirstYearTotal)
	if b.PerUnit != nil {
		summaryLine(bw, "First Year Cost per Unit:", b.PerUnit.FirstYearCost)
	}
	fmt.Fprintln(bw, light)
	fmt.Fprintln(bw)

	oneTime, recurring := cost.Split(b.Fees)
	if len(oneTime) > 0 {
		section(bw, light, "ONE-TIME DEVELOPMENT FEES")
		for _, fee := range oneTime {
			fmt.Fprintln(bw, fee.FeeName)
			fmt.Fprintf(bw, "  Agency: %s\n", fee.AgencyName)
			fmt.Fprintf(bw, "  Service Area: %s\n", fee.ServiceArea)
			fmt.Fprintf(bw, "  Calculation: %s\n", fee.Calculation)
			fmt.Fprintf(bw, "  Amount: %s\n\n", types.FormatUSD(fee.Amount))
		}
	}
	if len(recurring) > 0 {
		section(bw, light, "MONTHLY OPERATING COSTS")
		for _, fee := range recurring {
			fmt.Fprintln(bw, fee.FeeName)
			fmt.Fprintf(bw, "  Agency: %s\n", fee.AgencyName)
			fmt.Fprintf(bw, "  Calculation: %s\n", fee.Calculation)
			fmt.Fprintf(bw, "  Monthly: %s\n", types.FormatUSD(fee.Amount))
			fmt.Fprintf(bw, "  Annual: %s\n\n", types.FormatUSD(fee.Amount.Mul(decimal.NewFromInt(cost.MonthsPerYear))))
		}
	}

	if len(b.ByCategory) > 0 {
		section(bw, light, "BY CATEGORY")
		for _, g := range cost.SortedGroups(b.ByCategory) {
			summaryLine(bw, g.Name, g.Amount)
		}
		fmt.Fprintln(bw)
	}

	if len(b.NeedsRules) > 0 {
		section(bw, light, "NEEDS MANUAL REVIEW")
		for _, n := range b.NeedsRules {
			fmt.Fprintf(bw, "%s: %s\n", n.FeeName, n.Reason)
		}
		fmt.Fprintln(bw)
	}

	fmt.Fprintln(bw, heavy)
	fmt.Fprintln(bw, "END OF REPORT")
	fmt.Fprintln(bw, heavy)
	return bw.Flush()
}

// RenderComparison writes one line per location in rank order, followed
// by the locations that failed
func (f *TextFormatter) RenderComparison(w io.Writer, cmp *engine.Comparison) error {
	bw := bufio.NewWriter(w)
	light := strings.Repeat("─", f.width())

	section(bw, light, "LOCATION COMPARISON (by first-year cost)")
	for _, idx := range cmp.Ranking {
		r := cmp.Results[idx]
		fmt.Fprintf(bw, "%2d. %-30s %18s  (one-time %s, monthly %s)\n",
			r.Rank, locationName(r.Location), types.FormatUSD(r.Breakdown.FirstYearTotal),
			types.FormatUSD(r.Breakdown.TotalFees), types.FormatUSD(r.Breakdown.MonthlyFees))
	}
	for _, r := range cmp.Results {
		if r.Breakdown == nil {
			fmt.Fprintf(bw, "  - %-30s %s: %s\n", locationName(r.Location), r.ErrorType, r.Error)
		}
	}
	return bw.Flush()
}

func locationName(l engine.Location) string {
	name := l.JurisdictionName
	if l.StateCode != "" {
		name += ", " + l.StateCode
	}
	if l.ServiceArea != "" {
		name += " (" + l.ServiceArea + ")"
	}
	return name
}

func section(w io.Writer, rule, title string) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
}

func summaryLine(w io.Writer, label string, amount decimal.Decimal) {
	fmt.Fprintf(w, "%-34s %s\n", label, types.FormatUSD(amount))
}
