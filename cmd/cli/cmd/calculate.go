package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"permit-fees/core/determinism"
	"permit-fees/core/engine"
	"permit-fees/core/output"
	"permit-fees/core/types"
	"permit-fees/internal/app"
)

var (
	projectFile   string
	calcFormat    string
	reportFormat  string
	compareFormat string
	project       projectFlags
)

// projectFlags override fields of the project file
type projectFlags struct {
	jurisdiction string
	state        string
	serviceArea  string
	preset       string
	projectType  string
	subtype      string
	units        int
	sqft         float64
	value        float64
	acreage      float64
	meter        string
}

// calculateCmd prints the fee breakdown as JSON
var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Calculate the fees for a project",
	Long: `Calculate every applicable fee for a project in one jurisdiction.

The project is read from a YAML file, from flags, or both; flags win.

Examples:
  permit-fees calculate --jurisdiction "Denver, CO" --type Residential --subtype Multifamily --units 50
  permit-fees calculate --project project.yaml --format text`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCalculate(cmd, calcFormat)
	},
}

// reportCmd prints the feasibility report
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a construction feasibility report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCalculate(cmd, reportFormat)
	},
}

// compareCmd ranks locations for one project
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare first-year costs across locations",
	Long: `Calculate the same project in several jurisdictions and rank them by
first-year cost. The YAML file holds a project and a list of locations:

  project:
    projectType: Residential
    numUnits: 50
  locations:
    - jurisdictionName: Denver
      stateCode: CO
    - jurisdictionName: Austin
      stateCode: TX`,
	RunE: runCompare,
}

func init() {
	for _, c := range []*cobra.Command{calculateCmd, reportCmd} {
		f := c.Flags()
		f.StringVarP(&projectFile, "project", "p", "", "project YAML file")
		f.StringVar(&project.jurisdiction, "jurisdiction", "", "jurisdiction name, optionally with \", ST\"")
		f.StringVar(&project.state, "state", "", "two-letter state code")
		f.StringVar(&project.serviceArea, "service-area", "", "service area name")
		f.StringVar(&project.preset, "preset", "", "project preset label, e.g. \"Multi-Family Residential\"")
		f.StringVar(&project.projectType, "type", "", "project type (Residential, Commercial, Industrial, Mixed-use, Public)")
		f.StringVar(&project.subtype, "subtype", "", "use subtype, e.g. Multifamily")
		f.IntVar(&project.units, "units", 0, "number of dwelling units")
		f.Float64Var(&project.sqft, "sqft", 0, "square feet")
		f.Float64Var(&project.value, "value", 0, "project valuation in dollars")
		f.Float64Var(&project.acreage, "acreage", 0, "site acreage")
		f.StringVar(&project.meter, "meter", "", "water meter size, e.g. 1-1/2\"")
	}
	calculateCmd.Flags().StringVarP(&calcFormat, "format", "f", string(output.FormatJSON), "output format (json, text)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", string(output.FormatText), "output format (text, json)")

	compareCmd.Flags().StringVarP(&projectFile, "project", "p", "", "comparison YAML file [REQUIRED]")
	compareCmd.Flags().StringVarP(&compareFormat, "format", "f", string(output.FormatText), "output format (text, json)")
	compareCmd.MarkFlagRequired("project")

	rootCmd.AddCommand(calculateCmd, reportCmd, compareCmd)
}

// readYAML decodes a YAML file into v
func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// projectInputs merges the project file with explicitly set flags
func projectInputs(cmd *cobra.Command) (types.ProjectInputs, error) {
	var p types.ProjectInputs
	if projectFile != "" {
		if err := readYAML(projectFile, &p); err != nil {
			return p, err
		}
	}

	f := cmd.Flags()
	if f.Changed("jurisdiction") {
		p.JurisdictionName = project.jurisdiction
	}
	if f.Changed("state") {
		p.StateCode = project.state
	}
	if f.Changed("service-area") {
		p.ServiceArea = project.serviceArea
	}
	if f.Changed("preset") {
		p.Preset = project.preset
	}
	if f.Changed("type") {
		p.ProjectType = types.ProjectType(project.projectType)
	}
	if f.Changed("subtype") {
		p.UseSubtype = project.subtype
	}
	if f.Changed("units") {
		p.NumUnits = &project.units
	}
	if f.Changed("sqft") {
		p.SquareFeet = &project.sqft
	}
	if f.Changed("value") {
		p.ProjectValue = &project.value
	}
	if f.Changed("acreage") {
		p.Acreage = &project.acreage
	}
	if f.Changed("meter") {
		p.MeterSize = project.meter
	}
	return p, nil
}

func runCalculate(cmd *cobra.Command, format string) error {
	ctx := context.Background()

	p, err := projectInputs(cmd)
	if err != nil {
		return err
	}
	formatter, err := output.NewRegistry().Get(output.Format(format))
	if err != nil {
		return err
	}

	e, c, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	b, err := e.Calculate(ctx, p)
	if err != nil {
		return err
	}

	meta := output.Metadata{GeneratedAt: time.Now().UTC(), Version: app.Version}
	if normalized := p.Clone(); engine.NormalizeInputs(&normalized) == nil {
		if hash, err := determinism.HashJSON(normalized); err == nil {
			meta.InputHash = hash.Hex()
		}
	}
	return formatter.Render(cmd.OutOrStdout(), &output.Report{Breakdown: b, Metadata: meta})
}

// compareFile is the layout of the compare command's YAML file
type compareFile struct {
	Project   types.ProjectInputs `yaml:"project"`
	Locations []engine.Location   `yaml:"locations"`
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var in compareFile
	if err := readYAML(projectFile, &in); err != nil {
		return err
	}
	formatter, err := output.NewRegistry().Get(output.Format(compareFormat))
	if err != nil {
		return err
	}

	e, c, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	cmp, err := e.Compare(ctx, in.Project, in.Locations)
	if err != nil {
		return err
	}
	return formatter.RenderComparison(cmd.OutOrStdout(), cmp)
}
