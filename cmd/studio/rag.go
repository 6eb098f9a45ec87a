package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/manyblack/studio/pkg/client"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

var ragCmd = &cobra.Command{
	Use:   "rag",
	Short: "Tune and test the backend's retrieval-augmented answers",
}

var ragKBCmd = &cobra.Command{
	Use:   "kb",
	Short: "Print the knowledge base, or replace it with --file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()

		if path, _ := cmd.Flags().GetString("file"); path != "" {
			content, err := readInput(path)
			if err != nil {
				return err
			}
			if err := c.UpdateKnowledgeBase(sc, string(content)); err != nil {
				return err
			}
			app.out.Success("knowledge base updated")
			return nil
		}
		kb, err := c.KnowledgeBase(sc)
		if err != nil {
			return err
		}
		if asJSON(cmd) {
			return app.out.JSON(kb)
		}
		return app.out.Markdown(kb.Content)
	},
}

var ragPromptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the prompt template, or replace it with --file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()

		if path, _ := cmd.Flags().GetString("file"); path != "" {
			tmpl, err := readInput(path)
			if err != nil {
				return err
			}
			if err := c.UpdatePrompt(sc, string(tmpl)); err != nil {
				return err
			}
			app.out.Success("prompt updated")
			return nil
		}
		p, err := c.Prompt(sc)
		if err != nil {
			return err
		}
		return printOr(cmd, p, func() {
			app.out.Printf("%s\n\nplaceholders: %s\n", p.Template, strings.Join(p.Placeholders, ", "))
			if !p.IsValid {
				app.out.Printf("the backend reports this template as invalid\n")
			}
		})
	},
}

var ragModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the generation models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		models, err := c.Models(sc)
		if err != nil {
			return err
		}
		return printOr(cmd, models, func() {
			rows := make([][]string, len(models))
			for i, m := range models {
				rows[i] = []string{m.ID, m.Name, m.Provider, strconv.FormatBool(m.Available)}
			}
			app.out.Table([]string{"ID", "NAME", "PROVIDER", "AVAILABLE"}, rows)
		})
	},
}

var ragPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Print the backend's parameter presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		presets, err := c.Presets(sc)
		if err != nil {
			return err
		}
		if asJSON(cmd) {
			return app.out.JSON(presets)
		}
		return app.out.YAML(presets)
	},
}

var ragSimulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Answer a message through the RAG pipeline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := ragParameters(cmd.Flags())
		if err != nil {
			return err
		}
		in := client.RAGSimulation{Parameters: params}
		in.Message, _ = cmd.Flags().GetString("message")
		in.SafeMode, _ = cmd.Flags().GetBool("safe-mode")
		if cmd.Flags().Changed("lead-id") {
			id, _ := cmd.Flags().GetInt("lead-id")
			in.LeadID = &id
		}
		if strings.TrimSpace(in.Message) == "" {
			return fmt.Errorf("%w: --message is required", domain.ErrInvalid)
		}

		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		res, err := c.SimulateRAG(sc, in)
		if err != nil {
			return err
		}
		return printOr(cmd, res, func() {
			app.out.Printf("%s\n\nclassification %s, decision %s, %dms\n", res.Response, res.Classification, res.DecisionID, res.ProcessingTimeMS)
			rows := make([][]string, len(res.TopNResults))
			for i, r := range res.TopNResults {
				rows[i] = []string{strconv.FormatFloat(r.Score, 'f', 3, 64), r.Source, oneLine(r.Snippet, 60)}
			}
			app.out.Table([]string{"SCORE", "SOURCE", "SNIPPET"}, rows)
		})
	},
}

// ragParameters starts from --preset and applies the individual overrides.
func ragParameters(f *pflag.FlagSet) (domain.RAGParameters, error) {
	name, _ := f.GetString("preset")
	p, err := domain.Preset(name)
	if err != nil {
		return p, fmt.Errorf("%w; choose one of %s", err, strings.Join(domain.PresetNames(), ", "))
	}
	if f.Changed("model") {
		p.ModelID, _ = f.GetString("model")
	}
	if f.Changed("temperature") {
		p.Temperature, _ = f.GetFloat64("temperature")
	}
	if f.Changed("max-tokens") {
		p.MaxTokens, _ = f.GetInt("max-tokens")
	}
	if f.Changed("top-k") {
		p.TopK, _ = f.GetInt("top-k")
	}
	if f.Changed("threshold") {
		p.Threshold, _ = f.GetFloat64("threshold")
	}
	if f.Changed("re-rank") {
		p.ReRank, _ = f.GetBool("re-rank")
	}
	return p, nil
}

func addRAGFlags(f *pflag.FlagSet) {
	f.String("preset", "balanced", "Parameter preset: "+strings.Join(domain.PresetNames(), ", "))
	f.String("model", "", "Model id, overrides the preset")
	f.Float64("temperature", 0, "Sampling temperature, 0 to 2")
	f.Int("max-tokens", 0, "Answer length limit")
	f.Int("top-k", 0, "Knowledge-base chunks retrieved")
	f.Float64("threshold", 0, "Minimum retrieval score")
	f.Bool("re-rank", false, "Re-rank retrieved chunks")
	f.Bool("safe-mode", true, "Ask the backend not to persist anything")
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}

var ragLeadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Manage the scripted test leads used by RAG simulations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		leads, err := c.RAGLeads(sc)
		if err != nil {
			return err
		}
		return printOr(cmd, leads, func() {
			rows := make([][]string, len(leads))
			for i, l := range leads {
				id := "-"
				if l.ID != nil {
					id = strconv.Itoa(*l.ID)
				}
				rows[i] = []string{id, l.Name, strconv.Itoa(len(l.Messages)), oneLine(l.Description, 50)}
			}
			app.out.Table([]string{"ID", "NAME", "MESSAGES", "DESCRIPTION"}, rows)
		})
	},
}

var ragLeadsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a test lead's conversation",
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
		lead, err := c.GetRAGLead(sc, id)
		if err != nil {
			return err
		}
		return printOr(cmd, lead, func() {
			app.out.Printf("%s: %s\n", lead.Name, lead.Description)
			for _, m := range lead.Messages {
				app.out.Printf("  %-4s %s\n", m.Role, m.Text)
			}
		})
	},
}

var ragLeadsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a test lead from a YAML file (name, description, initial_messages)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		data, err := readInput(path)
		if err != nil {
			return err
		}
		var in struct {
			Name            string                  `yaml:"name"`
			Description     string                  `yaml:"description"`
			InitialMessages []client.RAGLeadMessage `yaml:"initial_messages"`
		}
		if err := yaml.Unmarshal(data, &in); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalid, err)
		}
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		lead, err := c.CreateRAGLead(sc, client.NewRAGLead{
			Name: in.Name, Description: in.Description, InitialMessages: in.InitialMessages,
		})
		if err != nil {
			return err
		}
		return printOr(cmd, lead, func() {
			if lead.ID != nil {
				app.out.Success("created test lead %d", *lead.ID)
			}
		})
	},
}

var ragLeadsSayCmd = &cobra.Command{
	Use:   "say <id> <text>",
	Short: "Append a message to a test lead's conversation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := leadID(args[0])
		if err != nil {
			return err
		}
		role, _ := cmd.Flags().GetString("role")
		if !slices.Contains([]string{"Lead", "GPT"}, role) {
			return fmt.Errorf("%w: role must be Lead or GPT", domain.ErrInvalid)
		}
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		total, err := c.AddRAGLeadMessage(sc, id, client.RAGLeadMessage{
			Role: role, Text: args[1], Timestamp: time.Now().Format("15:04"),
		})
		if err != nil {
			return err
		}
		app.out.Success("lead %d now has %d messages", id, total)
		return nil
	},
}

var ragLeadsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a test lead",
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
		if err := c.DeleteRAGLead(sc, id); err != nil {
			return err
		}
		app.out.Success("deleted test lead %d", id)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{ragKBCmd, ragPromptCmd, ragLeadsCreateCmd} {
		c.Flags().StringP("file", "f", "", `Input file, or "-" for stdin`)
	}
	ragSimulateCmd.Flags().StringP("message", "m", "", "Message to answer")
	ragSimulateCmd.Flags().Int("lead-id", 0, "Test lead whose history is used")
	addRAGFlags(ragSimulateCmd.Flags())
	ragLeadsSayCmd.Flags().String("role", "Lead", "Who speaks: Lead or GPT")

	ragLeadsCmd.AddCommand(ragLeadsGetCmd, ragLeadsCreateCmd, ragLeadsSayCmd, ragLeadsDeleteCmd)
	ragCmd.AddCommand(ragKBCmd, ragPromptCmd, ragModelsCmd, ragPresetsCmd, ragSimulateCmd, ragLeadsCmd)
	rootCmd.AddCommand(ragCmd)
}
