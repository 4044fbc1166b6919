package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/overtime-engine/app"
	"github.com/warp/overtime-engine/overtime"
)

func SetupCommands(a *app.App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "overtimectl",
		Short:        "Administer the overtime ledger",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(rebuildCmd(a))
	rootCmd.AddCommand(balanceCmd(a))
	rootCmd.AddCommand(summaryCmd(a))
	rootCmd.AddCommand(aggregateCmd(a))
	rootCmd.AddCommand(verifyCmd(a))
	rootCmd.AddCommand(rolloverCmd(a))
	rootCmd.AddCommand(holidaysCmd(a))

	return rootCmd
}

// rebuild [employee-id...] regenerates ledgers. Without ids, --all rebuilds
// every employee active in the window's year.
func rebuildCmd(a *app.App) *cobra.Command {
	var from, to string
	var year, month int
	var all bool

	cmd := &cobra.Command{
		Use:   "rebuild [employee-id...]",
		Short: "Regenerate ledger transactions",
		Long: `Regenerate ledger transactions for one or more employees.

The window is --from/--to, or --year with an optional --month. Without a
window the ledger is rebuilt from the hire date through today.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 0 && !all {
				return fmt.Errorf("pass employee ids or --all")
			}

			ids := make([]overtime.EmployeeID, 0, len(args))
			for _, arg := range args {
				ids = append(ids, overtime.EmployeeID(arg))
			}
			if all {
				y := year
				if y == 0 {
					y = time.Now().Year()
				}
				emps, err := a.Directory.ActiveEmployees(ctx, overtime.YearPeriod(y))
				if err != nil {
					return err
				}
				for _, emp := range emps {
					ids = append(ids, emp.ID)
				}
			}

			for _, id := range ids {
				var err error
				switch {
				case from != "" || to != "":
					var f, t overtime.Date
					if f, err = overtime.ParseDate(from); err != nil {
						return err
					}
					if t, err = overtime.ParseDate(to); err != nil {
						return err
					}
					err = a.Engine.RebuildLedger(ctx, id, f, t)
				case month != 0:
					err = a.Engine.RebuildMonth(ctx, id, year, month)
				case year != 0:
					p := overtime.YearPeriod(year)
					err = a.Engine.RebuildLedger(ctx, id, p.Start, p.End)
				default:
					err = a.Engine.RebuildEmployee(ctx, id)
				}
				if err != nil {
					return fmt.Errorf("rebuild %s: %w", id, err)
				}

				balance, err := a.Engine.GetBalance(ctx, id, nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\trebuilt\tbalance %s\n", id, balance)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day of the window (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day of the window (YYYY-MM-DD)")
	cmd.Flags().IntVar(&year, "year", 0, "rebuild a whole year, or the --month of it")
	cmd.Flags().IntVar(&month, "month", 0, "rebuild one month of --year")
	cmd.Flags().BoolVar(&all, "all", false, "rebuild every active employee")
	cmd.MarkFlagsRequiredTogether("from", "to")
	cmd.MarkFlagsMutuallyExclusive("from", "year")

	return cmd
}

func balanceCmd(a *app.App) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "balance <employee-id>",
		Short: "Show the running overtime balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var at *overtime.Date
			if asOf != "" {
				d, err := overtime.ParseDate(asOf)
				if err != nil {
					return err
				}
				at = &d
			}

			balance, err := a.Engine.GetBalance(cmd.Context(), overtime.EmployeeID(args[0]), at)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), balance.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "balance after this day (YYYY-MM-DD); latest when empty")
	return cmd
}

func summaryCmd(a *app.App) *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "summary <employee-id>",
		Short: "Show target, actual and overtime for a month or a year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.Engine.GetPeriodSummary(cmd.Context(), overtime.EmployeeID(args[0]), year, month)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PERIOD\tTARGET\tACTUAL\tOVERTIME")
			for _, m := range s.Months {
				ym := overtime.YearMonth{Year: m.Year, Month: m.Month}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ym, m.TargetHours, m.ActualHours, m.Overtime)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", periodLabel(s.Year, s.Month), s.TargetHours, s.ActualHours, s.Overtime)
			if s.Month == 0 && !s.Carryover.IsZero() {
				fmt.Fprintf(w, "carryover\t\t\t%s\n", s.Carryover)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "year")
	cmd.Flags().IntVar(&month, "month", 0, "month (1-12); 0 for the whole year")
	return cmd
}

func aggregateCmd(a *app.App) *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Show organization-wide totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := a.Engine.GetAggregatedSummary(cmd.Context(), year, month)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PERIOD\tEMPLOYEES\tTARGET\tACTUAL\tOVERTIME")
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", periodLabel(agg.Year, agg.Month), agg.EmployeeCount,
				agg.TotalTargetHours, agg.TotalActualHours, agg.TotalOvertime)
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "year")
	cmd.Flags().IntVar(&month, "month", 0, "month (1-12); 0 for the whole year")
	return cmd
}

func verifyCmd(a *app.App) *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "verify <employee-id>",
		Short: "Check stored period balances against their transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := overtime.EmployeeID(args[0])
			months := []int{month}
			if month == 0 {
				months = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
			}
			for _, m := range months {
				if err := a.Engine.VerifyPeriod(cmd.Context(), id, year, m); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tconsistent\n", id, periodLabel(year, month))
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "year")
	cmd.Flags().IntVar(&month, "month", 0, "month (1-12); 0 checks every month")
	return cmd
}

func rolloverCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "rollover <year>",
		Short: "Carry each active employee's year-end balance into the next year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}

			result, err := a.Engine.RolloverYear(cmd.Context(), year)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled %d into %d: %d employees, total carryover %s\n",
				result.Year, result.Year+1, result.ProcessedCount, result.TotalCarryover)
			return nil
		},
	}
}

func holidaysCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "Manage stored public holidays",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh <year>",
		Short: "Re-fetch a year's holidays from the configured feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}

			hs, err := a.Holidays.Refresh(cmd.Context(), year)
			if err != nil {
				return err
			}
			for _, h := range hs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", h.Date, h.Name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list <year>",
		Short: "List the stored holidays of a year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}

			hs, err := a.Directory.StoredHolidays(cmd.Context(), year)
			if err != nil {
				return err
			}
			for _, h := range hs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", h.Date, h.Name, h.Region)
			}
			return nil
		},
	})

	return cmd
}

func parseYear(s string) (int, error) {
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return year, nil
}

func periodLabel(year, month int) string {
	if month == 0 {
		return fmt.Sprintf("%04d", year)
	}
	return overtime.YearMonth{Year: year, Month: time.Month(month)}.String()
}
