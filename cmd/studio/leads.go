package main

import (
	"strconv"
	"time"

	"github.com/manyblack/studio/pkg/client"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/spf13/cobra"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Browse the backend's leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads matching the filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		filters := client.LeadsFilters{}
		filters.Q, _ = f.GetString("q")
		filters.Channel, _ = f.GetString("channel")
		filters.Lang, _ = f.GetString("lang")
		deposit, _ := f.GetString("deposit")
		filters.DepositStatus = domain.DepositStatus(deposit)
		quotex, _ := f.GetString("quotex")
		filters.AccountsQuotex = domain.AccountStatus(quotex)
		nyrion, _ := f.GetString("nyrion")
		filters.AccountsNyrion = domain.AccountStatus(nyrion)
		if f.Changed("can-deposit") {
			b, _ := f.GetBool("can-deposit")
			filters.AgreementsCanDeposit = &b
		}
		if f.Changed("wants-test") {
			b, _ := f.GetBool("wants-test")
			filters.AgreementsWantsTest = &b
		}
		filters.InactiveGtHours, _ = f.GetInt("inactive-hours")
		filters.MinEvents24h, _ = f.GetInt("min-events")
		filters.Tags, _ = f.GetStringSlice("tag")
		filters.NotTags, _ = f.GetStringSlice("not-tag")
		filters.ProcedureActive, _ = f.GetString("procedure")
		filters.ProcedureStep, _ = f.GetString("step")
		if f.Changed("pending-ops") {
			b, _ := f.GetBool("pending-ops")
			filters.PendingOps = &b
		}
		filters.UTMSource, _ = f.GetString("utm-source")
		filters.UTMMedium, _ = f.GetString("utm-medium")
		filters.UTMCampaign, _ = f.GetString("utm-campaign")
		filters.UTMContent, _ = f.GetString("utm-content")
		for name, dst := range map[string]*time.Time{
			"created-from":     &filters.CreatedFrom,
			"created-to":       &filters.CreatedTo,
			"last-active-from": &filters.LastActiveFrom,
			"last-active-to":   &filters.LastActiveTo,
		} {
			s, _ := f.GetString(name)
			t, err := parseDate(name, s)
			if err != nil {
				return err
			}
			*dst = t
		}
		filters.Page, _ = f.GetInt("page")
		filters.PageSize, _ = f.GetInt("page-size")
		filters.SortBy, _ = f.GetString("sort-by")
		filters.SortDir, _ = f.GetString("sort-dir")

		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		page, err := c.ListLeads(sc, filters)
		if err != nil {
			return err
		}
		return printOr(cmd, page, func() {
			rows := make([][]string, len(page.Items))
			for i, l := range page.Items {
				step := "-"
				if l.Procedure.Active != nil {
					step = *l.Procedure.Active
					if l.Procedure.Step != nil {
						step += "/" + *l.Procedure.Step
					}
				}
				rows[i] = []string{strconv.Itoa(l.ID), l.Name, l.Channel, l.Lang,
					string(l.Accounts["quotex"]), string(l.Accounts["nyrion"]), strconv.Itoa(l.Events24h), step}
			}
			app.out.Table([]string{"ID", "NAME", "CHANNEL", "LANG", "QUOTEX", "NYRION", "EVENTS 24H", "PROCEDURE"}, rows)
			app.out.Printf("page %d of %d, %d leads\n", page.Page, page.TotalPages, page.Total)
		})
	},
}

var leadsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a lead with its snapshot and recent events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := leadID(args[0])
		if err != nil {
			return err
		}
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		lead, err := c.GetLead(sc, id)
		if err != nil {
			return err
		}
		if asJSON(cmd) {
			return app.out.JSON(lead)
		}
		return app.out.YAML(lead)
	},
}

var leadsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := leadID(args[0])
		if err != nil {
			return err
		}
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		lead, err := c.GetLead(sc, id)
		if err != nil {
			return err
		}
		if err := confirmAction(cmd, "Deleting lead %d %q (%s) and its history", lead.ID, lead.Name, lead.Channel); err != nil {
			return err
		}
		if err := c.DeleteLead(sc, id); err != nil {
			return err
		}
		app.out.Success("deleted lead %d", id)
		return nil
	},
}

var leadsResetCmd = &cobra.Command{
	Use:   "reset-session <id>",
	Short: "Clear a lead's conversation session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := leadID(args[0])
		if err != nil {
			return err
		}
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		if err := c.ResetLeadSession(sc, id); err != nil {
			return err
		}
		app.out.Success("reset session of lead %d", id)
		return nil
	},
}

func leadID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, &invalidArg{name: "id", value: s}
	}
	return id, nil
}

// parseDate accepts a day (2006-01-02) or an RFC 3339 timestamp. Empty is the zero time.
func parseDate(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &invalidArg{name: name, value: s}
	}
	return t, nil
}

// invalidArg is a malformed argument or flag value.
type invalidArg struct {
	name, value string
}

func (e *invalidArg) Error() string { return "invalid " + e.name + " " + strconv.Quote(e.value) }

func (e *invalidArg) Unwrap() error { return domain.ErrInvalid }

func init() {
	f := leadsListCmd.Flags()
	f.String("q", "", "Search name or platform id")
	f.String("channel", "", "Channel, e.g. telegram")
	f.String("lang", "", "Language")
	f.String("deposit", "", "Deposit status: nenhum, pending, confirmado")
	f.String("quotex", "", "Quotex account status: desconhecido, reported, com_conta")
	f.String("nyrion", "", "Nyrion account status: desconhecido, reported, com_conta")
	f.Bool("can-deposit", false, "Only leads that can (or, =false, cannot) deposit")
	f.Bool("wants-test", false, "Only leads that want (or, =false, do not want) a test")
	f.Int("inactive-hours", 0, "Only leads inactive for more than this many hours")
	f.Int("min-events", 0, "Only leads with at least this many events in the last 24h")
	f.StringSlice("tag", nil, "Tags to include (repeatable)")
	f.StringSlice("not-tag", nil, "Tags to exclude (repeatable)")
	f.String("procedure", "", "Only leads running this procedure")
	f.String("step", "", "Only leads at this procedure step")
	f.Bool("pending-ops", false, "Only leads with (or, =false, without) pending operations")
	f.String("utm-source", "", "UTM source")
	f.String("utm-medium", "", "UTM medium")
	f.String("utm-campaign", "", "UTM campaign")
	f.String("utm-content", "", "UTM content")
	f.String("created-from", "", "Created on or after this date (2006-01-02 or RFC 3339)")
	f.String("created-to", "", "Created on or before this date")
	f.String("last-active-from", "", "Last active on or after this date")
	f.String("last-active-to", "", "Last active on or before this date")
	f.Int("page", 1, "Page number")
	f.Int("page-size", client.DefaultPageSize, "Leads per page")
	f.String("sort-by", "", "Sort field, e.g. last_activity_at")
	f.String("sort-dir", "", "asc or desc")

	leadsCmd.AddCommand(leadsListCmd, leadsGetCmd, leadsDeleteCmd, leadsResetCmd)
	rootCmd.AddCommand(leadsCmd)
}
