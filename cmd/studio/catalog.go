package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/manyblack/studio/internal/validator"
	"github.com/manyblack/studio/pkg/catalog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Work on both catalogs at once",
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count the records of both catalogs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
			ov, err := cats.Overview(ctx)
			if err != nil {
				return err
			}
			return printOr(cmd, ov, func() {
				app.out.Table([]string{"AUTOMATIONS", "PROCEDURES"}, [][]string{{
					strconv.Itoa(ov.AutomationsCount), strconv.Itoa(ov.ProceduresCount),
				}})
			})
		})
	},
}

var catalogResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Back up and clear both catalogs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
			ov, err := cats.Overview(ctx)
			if err != nil {
				return err
			}
			if err := confirmAction(cmd, "Backing up and clearing %d automations and %d procedures",
				ov.AutomationsCount, ov.ProceduresCount); err != nil {
				return err
			}
			backups, err := cats.ResetAll(ctx)
			if err != nil {
				return err
			}
			return printOr(cmd, backups, func() {
				printBackups(backups.List())
			})
		})
	},
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check references across both catalogs",
	Long: `Reports procedure steps pointing at automations or procedures that do not exist and
procedures that fall back to each other in a cycle.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
			report, err := validator.CheckCatalogs(ctx, cats)
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				if err := app.out.JSON(report); err != nil {
					return err
				}
				return report.Err()
			}
			app.out.Report(report)
			if err := report.Err(); err != nil {
				return err
			}
			app.out.Success("catalogs are consistent")
			return nil
		})
	},
}

var catalogPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Replace the backend's policy files with the local catalogs",
	Long: `Exports both local catalogs and saves them to the decision backend, which backs up
its current files first. Catalogs that fail "catalog check" are not published unless
--force is given. Run "catalog remote stats" afterwards to confirm the counts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := backend()
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
			report, err := validator.CheckCatalogs(ctx, cats)
			if err != nil {
				return err
			}
			if err := report.Err(); err != nil && !force {
				app.out.Report(report)
				return fmt.Errorf("not published, fix the catalogs or pass --force: %w", err)
			}

			ov, err := cats.Overview(ctx)
			if err != nil {
				return err
			}
			if err := confirmAction(cmd, "Replacing the policy files of %s with %d automations and %d procedures",
				c.BaseURL(), ov.AutomationsCount, ov.ProceduresCount); err != nil {
				return err
			}

			var autos, procs []byte
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) {
				autos, err = cats.Automations.Export(gctx)
				return err
			})
			g.Go(func() (err error) {
				procs, err = cats.Procedures.Export(gctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}
			if err := c.SaveCatalog(ctx, string(autos)); err != nil {
				return err
			}
			if err := c.SaveProcedures(ctx, string(procs)); err != nil {
				return err
			}
			app.out.Success("published both catalogs to %s", c.BaseURL())
			return nil
		})
	},
}

var catalogRemoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Inspect the catalogs the decision backend is running with",
}

var remoteStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count the backend's catalog records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		s, err := c.CatalogStats(sc)
		if err != nil {
			return err
		}
		return printOr(cmd, s, func() {
			app.out.Table([]string{"AUTOMATIONS", "PROCEDURES"}, [][]string{{
				strconv.Itoa(s.AutomationsCount), strconv.Itoa(s.ProceduresCount),
			}})
		})
	},
}

var remoteBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Ask the backend to back up its policy files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		b, err := c.CatalogBackup(sc)
		if err != nil {
			return err
		}
		return printOr(cmd, b, func() { app.out.Success("%s (%s)", b.Message, b.BackupPath) })
	},
}

var remoteResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Back up and empty the backend's policy files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		s, err := c.CatalogStats(sc)
		if err != nil {
			return err
		}
		if err := confirmAction(cmd, "Backing up and emptying the policy files of %s (%d automations, %d procedures)",
			c.BaseURL(), s.AutomationsCount, s.ProceduresCount); err != nil {
			return err
		}
		r, err := c.CatalogReset(sc)
		if err != nil {
			return err
		}
		return printOr(cmd, r, func() { app.out.Success("%s (%s)", r.Message, r.BackupPath) })
	},
}

func init() {
	catalogRemoteCmd.AddCommand(remoteStatsCmd, remoteBackupCmd, remoteResetCmd)
	catalogPublishCmd.Flags().Bool("force", false, "Publish even if the catalogs fail the reference check")
	catalogCmd.AddCommand(catalogStatsCmd, catalogResetCmd, catalogCheckCmd, catalogPublishCmd, catalogRemoteCmd)
	rootCmd.AddCommand(catalogCmd)
}
