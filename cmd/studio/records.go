package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/manyblack/studio/internal/presentation/graph"
	"github.com/manyblack/studio/pkg/catalog"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/schema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// recordsView describes how one catalog is picked and printed.
type recordsView[T domain.Record] struct {
	name    domain.CatalogName
	service func(*catalog.Catalogs) *catalog.Service[T]
	stats   func(context.Context, *catalog.Catalogs) (any, func(), error)
	header  []string
	row     func(T) []string
}

// withCatalogs opens the catalogs for the duration of fn.
func withCatalogs(cmd *cobra.Command, fn func(ctx context.Context, cats *catalog.Catalogs) error) error {
	sc := commandContext(cmd)
	defer sc.Cancel()
	st, err := openCatalogs()
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(sc, st.Catalogs)
}

// decodeRecord reads one YAML record from --file.
func decodeRecord[T domain.Record](cmd *cobra.Command) (T, error) {
	var rec T
	path, _ := cmd.Flags().GetString("file")
	data, err := readInput(path)
	if err != nil {
		return rec, err
	}
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return rec, &schema.AggregateError{Errors: []error{
			&schema.ValidationError{Key: "document", Reason: err.Error(), Severity: schema.SeverityError},
		}}
	}
	return rec, nil
}

// reportErr prints the issues of a failed write before returning err.
func reportErr(report schema.Report, err error) error {
	if len(report.Issues) > 0 {
		app.out.Report(report)
	}
	return err
}

func newRecordsCmd[T domain.Record](v recordsView[T], short string) *cobra.Command {
	noun := string(v.name)
	parent := &cobra.Command{
		Use:   noun,
		Short: short,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List " + noun,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
				recs, err := v.service(cats).List(ctx)
				if err != nil {
					return err
				}
				if recs == nil {
					recs = []T{}
				}
				return printOr(cmd, recs, func() {
					rows := make([][]string, len(recs))
					for i, r := range recs {
						rows[i] = v.row(r)
					}
					app.out.Table(v.header, rows)
				})
			})
		},
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Print one record as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
				rec, err := v.service(cats).Get(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON(cmd) {
					return app.out.JSON(rec)
				}
				return app.out.YAML(rec)
			})
		},
	}

	check := &cobra.Command{
		Use:   "check",
		Short: "Validate a record without storing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := decodeRecord[T](cmd)
			if err != nil {
				return err
			}
			return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
				report, err := v.service(cats).Check(ctx, rec)
				if err != nil {
					return err
				}
				if asJSON(cmd) {
					return app.out.JSON(report)
				}
				app.out.Report(report)
				if err := report.Err(); err != nil {
					return err
				}
				app.out.Success("%s is valid", rec.RecordID())
				return nil
			})
		},
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a record from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := decodeRecord[T](cmd)
			if err != nil {
				return err
			}
			return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
				report, err := v.service(cats).Add(ctx, rec)
				if err != nil {
					return reportErr(report, err)
				}
				app.out.Report(report)
				app.out.Success("added %s", rec.RecordID())
				return nil
			})
		},
	}

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a record from a YAML file; the file may carry a new id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := decodeRecord[T](cmd)
			if err != nil {
				return err
			}
			return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
				report, err := v.service(cats).Update(ctx, args[0], rec)
				if err != nil {
					return reportErr(report, err)
				}
				app.out.Report(report)
				app.out.Success("updated %s", rec.RecordID())
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
				svc := v.service(cats)
				rec, err := svc.Get(ctx, args[0])
				if err != nil {
					return fmt.Errorf("%s %q: %w", noun, args[0], err)
				}
				if err := confirmAction(cmd, "Deleting from %s: %s", noun, strings.Join(v.row(rec), " | ")); err != nil {
					return err
				}
				report, err := svc.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				app.out.Report(report)
				app.out.Success("deleted %s", args[0])
				return nil
			})
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Summarise the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
				s, table, err := v.stats(ctx, cats)
				if err != nil {
					return err
				}
				return printOr(cmd, s, table)
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Back up the catalog and clear it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
				svc := v.service(cats)
				recs, err := svc.List(ctx)
				if err != nil {
					return err
				}
				if err := confirmAction(cmd, "Backing up and clearing %d %s", len(recs), noun); err != nil {
					return err
				}
				backup, err := svc.Reset(ctx)
				if err != nil {
					return err
				}
				if asJSON(cmd) {
					return app.out.JSON(backup)
				}
				app.out.Success("backed up %d %s as %s", backup.Count, noun, backup.ID)
				return nil
			})
		},
	}

	backups := &cobra.Command{
		Use:   "backups",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
				list, err := v.service(cats).Backups(ctx)
				if err != nil {
					return err
				}
				if list == nil {
					list = []domain.Backup{}
				}
				return printOr(cmd, list, func() { printBackups(list) })
			})
		},
	}

	restore := &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Replace the catalog with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
				svc := v.service(cats)
				list, err := svc.Backups(ctx)
				if err != nil {
					return err
				}
				i := slices.IndexFunc(list, func(b domain.Backup) bool { return b.ID == args[0] })
				if i < 0 {
					return fmt.Errorf("backup %q: %w", args[0], domain.ErrNotFound)
				}
				recs, err := svc.List(ctx)
				if err != nil {
					return err
				}
				if err := confirmAction(cmd, "Replacing %d %s with the %d records of backup %s",
					len(recs), noun, list[i].Count, list[i].ID); err != nil {
					return err
				}
				if err := svc.Restore(ctx, args[0]); err != nil {
					return err
				}
				app.out.Success("restored %s from %s", noun, args[0])
				return nil
			})
		},
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Print the catalog as a policy YAML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
				data, err := v.service(cats).Export(ctx)
				if err != nil {
					return err
				}
				app.out.Printf("%s", data)
				return nil
			})
		},
	}

	imp := &cobra.Command{
		Use:   "import",
		Short: "Replace the catalog with a policy YAML document",
		Long: `Validates every record of the document against the others and replaces the
catalog only if all of them pass. The previous content is kept as a backup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			doc, err := readInput(path)
			if err != nil {
				return err
			}
			return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
				svc := v.service(cats)
				recs, err := svc.List(ctx)
				if err != nil {
					return err
				}
				if err := confirmAction(cmd, "Replacing %d %s with the content of %s", len(recs), noun, path); err != nil {
					return err
				}
				backup, report, err := svc.Import(ctx, doc)
				if err != nil {
					return reportErr(report, err)
				}
				app.out.Report(report)
				app.out.Success("imported %s, previous content kept as %s", noun, backup.ID)
				return nil
			})
		},
	}

	for _, c := range []*cobra.Command{check, add, update, imp} {
		c.Flags().StringP("file", "f", "", `YAML file, or "-" for stdin`)
	}
	parent.AddCommand(list, get, check, add, update, del, stats, reset, backups, restore, export, imp)
	return parent
}

func printBackups(list []domain.Backup) {
	rows := make([][]string, len(list))
	for i, b := range list {
		rows[i] = []string{b.ID, b.CreatedAt.Local().Format(time.DateTime), strconv.Itoa(b.Count), b.Location}
	}
	app.out.Table([]string{"ID", "CREATED", "RECORDS", "LOCATION"}, rows)
}

var automationsCmd = newRecordsCmd(recordsView[domain.Automation]{
	name:    domain.Automations,
	service: func(c *catalog.Catalogs) *catalog.Service[domain.Automation] { return c.Automations.Service },
	stats: func(ctx context.Context, c *catalog.Catalogs) (any, func(), error) {
		s, err := c.Automations.Stats(ctx)
		return s, func() {
			app.out.Table([]string{"TOTAL", "HIGH PRIORITY", "AVG COOLDOWN", "TOPICS"}, [][]string{{
				strconv.Itoa(s.Total), strconv.Itoa(s.HighPriority), s.AvgCooldown, strconv.Itoa(s.Topics),
			}})
		}, err
	},
	header: []string{"ID", "TOPIC", "PRIORITY", "COOLDOWN", "BUTTONS"},
	row: func(a domain.Automation) []string {
		return []string{a.ID, a.Topic, strconv.FormatFloat(a.Priority, 'f', 2, 64), string(a.Cooldown), strconv.Itoa(len(a.Output.Buttons))}
	},
}, "Manage the automation catalog")

var proceduresCmd = newRecordsCmd(recordsView[domain.Procedure]{
	name:    domain.Procedures,
	service: func(c *catalog.Catalogs) *catalog.Service[domain.Procedure] { return c.Procedures.Service },
	stats: func(ctx context.Context, c *catalog.Catalogs) (any, func(), error) {
		s, err := c.Procedures.Stats(ctx)
		return s, func() {
			app.out.Table([]string{"TOTAL", "STEPS", "AVG STEPS", "WITH TIMEOUT"}, [][]string{{
				strconv.Itoa(s.Total), strconv.Itoa(s.Steps), strconv.FormatFloat(s.AvgSteps, 'f', 1, 64), strconv.Itoa(s.WithTimeout),
			}})
		}, err
	},
	header: []string{"ID", "TITLE", "STEPS", "MAX TIME"},
	row: func(p domain.Procedure) []string {
		return []string{p.ID, p.Title, strconv.Itoa(len(p.Steps)), string(p.Settings.MaxProcedureTime)}
	},
}, "Manage the procedure catalog")

var graphCmd = &cobra.Command{
	Use:   "graph <id>",
	Short: "Print a Mermaid diagram of a procedure",
	Long: `Outputs a Mermaid flowchart of the procedure's steps and the automations and
procedures they fall back to. Targets missing from the catalogs are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalogs(cmd, func(ctx context.Context, cats *catalog.Catalogs) error {
			p, err := cats.Procedures.Get(ctx, args[0])
			if err != nil {
				return err
			}
			refs, err := catalog.ReferenceIndex(ctx, cats.Automations.Store(), cats.Procedures.Store())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.ProcedureMermaid(p, refs))
			return nil
		})
	},
}

func init() {
	proceduresCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(automationsCmd, proceduresCmd)
}
