package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"permit-fees/adapters/hcl"
	"permit-fees/core/catalog"
	"permit-fees/core/match"
	"permit-fees/core/types"
	"permit-fees/db"
	"permit-fees/internal/config"
	"permit-fees/internal/logging"
)

var (
	stateFilter string
	importDSN   string
	importDrv   string
)

var jurisdictionsCmd = &cobra.Command{
	Use:   "jurisdictions",
	Short: "List jurisdictions in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(ctx context.Context, acc catalog.Accessor) error {
			js, err := acc.ListJurisdictions(ctx, stateFilter)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATE")
			for _, j := range js {
				fmt.Fprintf(w, "%s\t%s\t%s\n", j.ID, j.Name, j.StateCode)
			}
			return w.Flush()
		})
	},
}

var serviceAreasCmd = &cobra.Command{
	Use:   "service-areas <jurisdiction>",
	Short: "List a jurisdiction's service areas",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(ctx context.Context, acc catalog.Accessor) error {
			j, err := acc.ResolveJurisdiction(ctx, args[0], stateFilter)
			if err != nil {
				return err
			}
			areas, err := acc.ListServiceAreas(ctx, j.ID)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			fmt.Fprintf(w, "-\t%s\n", types.CitywideServiceArea)
			for _, a := range areas {
				fmt.Fprintf(w, "%s\t%s\n", a.ID, a.Name)
			}
			return w.Flush()
		})
	},
}

var unitLabelsCmd = &cobra.Command{
	Use:   "unit-labels",
	Short: "List the unit labels used by active rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(ctx context.Context, acc catalog.Accessor) error {
			labels, err := acc.ListUnitLabels(ctx)
			if err != nil {
				return err
			}
			for _, l := range labels {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		})
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List fee categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(ctx context.Context, acc catalog.Accessor) error {
			categories, err := acc.ListCategories(ctx)
			if err != nil {
				return err
			}
			for _, c := range categories {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		})
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List project presets",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PRESET\tTYPE\tSUBTYPE")
		for _, p := range match.Presets {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Label, p.ProjectType, p.UseSubtype)
		}
		w.Flush()
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Catalog maintenance",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Check an HCL catalog for data problems",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshot, err := hcl.NewLoader(logging.Named("catalog")).Load(args[0])
		if err != nil {
			return err
		}
		problems := snapshot.Validate(catalog.DefaultValidationRules())
		for _, p := range problems {
			fmt.Fprintln(cmd.OutOrStdout(), p.Error())
		}
		if len(problems) > 0 {
			return fmt.Errorf("%d problems found", len(problems))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d jurisdictions, %d fees: ok\n",
			len(snapshot.Jurisdictions), len(snapshot.Fees))
		return nil
	},
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import an HCL catalog into the SQL database",
	Long: `Load HCL catalog files and replace the matching jurisdictions in the
configured SQL database. The driver and DSN come from the config file unless
given as flags.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg := config.Get()

		driver, dsn := cfg.Catalog.Driver, cfg.Catalog.DSN
		if importDrv != "" {
			driver = importDrv
		}
		if importDSN != "" {
			dsn = importDSN
		}
		if driver != db.DriverSQLite && driver != db.DriverPostgres {
			return fmt.Errorf("catalog import needs a sqlite or postgres driver, got %q", driver)
		}

		snapshot, err := hcl.NewLoader(logging.Named("catalog")).Load(args[0])
		if err != nil {
			return err
		}
		store, err := db.Open(ctx, driver, dsn, logging.Named("db"))
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}

		result, err := store.Import(ctx, snapshot)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	jurisdictionsCmd.Flags().StringVar(&stateFilter, "state", "", "limit to one state")
	serviceAreasCmd.Flags().StringVar(&stateFilter, "state", "", "state code of the jurisdiction")
	catalogImportCmd.Flags().StringVar(&importDrv, "driver", "", "sqlite or postgres (default from config)")
	catalogImportCmd.Flags().StringVar(&importDSN, "dsn", "", "database DSN (default from config)")

	catalogCmd.AddCommand(catalogValidateCmd, catalogImportCmd)
	rootCmd.AddCommand(jurisdictionsCmd, serviceAreasCmd, unitLabelsCmd, categoriesCmd, presetsCmd, catalogCmd)
}

func withCatalog(fn func(ctx context.Context, acc catalog.Accessor) error) error {
	ctx := context.Background()
	_, c, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}
