package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manyblack/studio/pkg/client"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/spf13/cobra"
)

var equipeCmd = &cobra.Command{
	Use:   "equipe",
	Short: "Answer staff questions and curate them for fine-tuning",
}

var equipeAskCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a staff question from the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := ragParameters(cmd.Flags())
		if err != nil {
			return err
		}
		in := client.EquipeSimulation{Message: args[0], Parameters: params}
		in.SafeMode, _ = cmd.Flags().GetBool("safe-mode")
		if s, _ := cmd.Flags().GetString("session"); s != "" {
			in.SessionID = &s
		}
		if s, _ := cmd.Flags().GetString("employee"); s != "" {
			in.FuncionarioID = &s
		}

		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		res, err := c.SimulateEquipe(sc, in)
		if err != nil {
			return err
		}
		return printOr(cmd, res, func() {
			app.out.Printf("%s\n\ninteraction %d, session %s, %.2fs, %d sources\n",
				res.Response, res.InteractionID, res.SessionID, res.ExecutionTime, len(res.KBHits))
		})
	},
}

var equipeHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded staff questions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		list, err := c.History(sc)
		if err != nil {
			return err
		}
		return printOr(cmd, list, func() {
			rows := make([][]string, len(list))
			for i, q := range list {
				rows[i] = []string{strconv.Itoa(q.ID), q.CriadoEm, oneLine(q.Pergunta, 40), oneLine(q.Resposta, 50)}
			}
			app.out.Table([]string{"ID", "CREATED", "QUESTION", "ANSWER"}, rows)
		})
	},
}

var equipeUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Correct a recorded question and answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := leadID(args[0])
		if err != nil {
			return err
		}
		question, _ := cmd.Flags().GetString("question")
		answer, _ := cmd.Flags().GetString("answer")
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		if err := c.UpdateConsulta(sc, id, question, answer); err != nil {
			return err
		}
		app.out.Success("updated consulta %d", id)
		return nil
	},
}

var equipeDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete recorded questions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := interactionIDs(args)
		if err != nil {
			return err
		}
		if err := confirmAction(cmd, "Deleting %d consultas", len(ids)); err != nil {
			return err
		}
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		res, err := c.DeleteConsultas(sc, ids)
		if err != nil {
			return err
		}
		return printOr(cmd, res, func() { app.out.Success("deleted %d consultas", res.DeletedCount) })
	},
}

var equipeExportCmd = &cobra.Command{
	Use:   "export <id>...",
	Short: "Export recorded questions as fine-tuning JSONL",
	Long: `Exports the selected consultas in the OpenAI chat fine-tuning format. Every line is
checked to hold a user question followed by an assistant answer before it is written.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := interactionIDs(args)
		if err != nil {
			return err
		}
		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()
		exp, err := c.ExportFineTuning(sc, ids)
		if err != nil {
			return err
		}
		lines, err := client.FineTuningLines(exp.Content)
		if err != nil {
			return fmt.Errorf("export %s: %w", exp.Filename, err)
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = exp.Filename
		}
		if out == "-" {
			app.out.Printf("%s", exp.Content)
			return nil
		}
		if err := os.WriteFile(out, []byte(exp.Content), 0o644); err != nil {
			return err
		}
		app.out.Success("wrote %d samples to %s", len(lines), out)
		return nil
	},
}

func interactionIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			id, err := leadID(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one id is required", domain.ErrInvalid)
	}
	return ids, nil
}

func init() {
	addRAGFlags(equipeAskCmd.Flags())
	equipeAskCmd.Flags().String("session", "", "Session to continue")
	equipeAskCmd.Flags().String("employee", "", "Employee asking")
	equipeUpdateCmd.Flags().String("question", "", "Corrected question")
	equipeUpdateCmd.Flags().String("answer", "", "Corrected answer")
	equipeExportCmd.Flags().StringP("out", "o", "", `Output file, "-" for stdout; defaults to the backend's file name`)

	equipeCmd.AddCommand(equipeAskCmd, equipeHistoryCmd, equipeUpdateCmd, equipeDeleteCmd, equipeExportCmd)
	rootCmd.AddCommand(equipeCmd)
}
