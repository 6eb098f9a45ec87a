package main

import (
	"fmt"
	"strconv"

	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/simulator"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Preview the backend's decision for a message",
	Long: `Sends a message, an optional conversation window and a lead snapshot to the backend's
simulate endpoint and prints the plan it returns. Without --apply the backend must not
persist anything.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := simulateRequest(cmd)
		if err != nil {
			return err
		}
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()

		sim := simulator.New(c, simulator.WithLogger(app.logger))
		app.out.Printf("%s\n", simulator.SafetyNotice(req.Apply))
		plan, err := sim.Run(sc, req)
		for err != nil && !asJSON(cmd) && confirm("Simulation failed: "+err.Error()+"\nRetry?") {
			plan, err = sim.Retry(sc)
		}
		if err != nil {
			return err
		}
		return printOr(cmd, plan, func() { printPlan(plan) })
	},
}

func simulateRequest(cmd *cobra.Command) (simulator.Request, error) {
	message, _ := cmd.Flags().GetString("message")
	snapshotPath, _ := cmd.Flags().GetString("snapshot")
	apply, _ := cmd.Flags().GetBool("apply")
	leadName, _ := cmd.Flags().GetString("lead-name")
	lang, _ := cmd.Flags().GetString("lang")
	window, _ := cmd.Flags().GetStringArray("window")

	req := simulator.Request{
		Message:  message,
		Snapshot: domain.NewSnapshot(),
		Apply:    apply,
		Lead:     domain.Lead{Name: leadName, Lang: lang},
	}
	if cmd.Flags().Changed("lead-id") {
		id, _ := cmd.Flags().GetInt("lead-id")
		req.Lead.ID = &id
	}
	for i, text := range window {
		req.Window = append(req.Window, domain.Message{ID: "w" + strconv.Itoa(i+1), Text: text})
	}
	if snapshotPath != "" {
		data, err := readInput(snapshotPath)
		if err != nil {
			return req, err
		}
		if err := yaml.Unmarshal(data, &req.Snapshot); err != nil {
			return req, fmt.Errorf("snapshot: %w", err)
		}
	}
	return req, nil
}

func printPlan(plan domain.Plan) {
	app.out.Printf("decision %s\n", plan.DecisionID)
	rows := make([][]string, len(plan.Actions))
	for i, a := range plan.Actions {
		detail := a.Text
		switch {
		case a.URL != "":
			detail = a.URL
		case len(a.SetFacts) > 0:
			detail = fmt.Sprint(a.SetFacts)
		}
		rows[i] = []string{strconv.Itoa(i + 1), a.Type, a.AutomationID, strconv.Itoa(len(a.Buttons)), detail}
	}
	app.out.Table([]string{"#", "TYPE", "AUTOMATION", "BUTTONS", "DETAIL"}, rows)
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	f := simulateCmd.Flags()
	f.StringP("message", "m", "", "Message to simulate")
	f.String("snapshot", "", `YAML lead snapshot, or "-" for stdin; defaults to an unknown lead`)
	f.Bool("apply", false, "Let the backend persist the plan's side effects")
	f.Int("lead-id", 0, "Existing lead to simulate as")
	f.String("lead-name", "", "Lead name")
	f.String("lang", domain.DefaultLang, "Lead language")
	f.StringArray("window", nil, "Earlier message of the conversation, repeatable, oldest first")
}
