package testutils

import (
	"path/filepath"
	"testing"

	"github.com/manyblack/studio/pkg/domain"
	"github.com/stretchr/testify/require"
)

// Automation returns a valid automation with the given ID.
// Calling it twice with the same ID yields equal records.
func Automation(id string) domain.Automation {
	return domain.Automation{
		ID:          id,
		Topic:       "onboarding",
		Eligibility: "lead has not opened an account",
		Priority:    0.5,
		Cooldown:    domain.Cooldown24h,
		Output: domain.Output{
			Type: domain.OutputTypeMessage,
			Text: "Olá! Vamos abrir sua conta?",
			Buttons: []domain.Button{
				{ID: "signup", Label: "Abrir conta", Kind: domain.ButtonURL, URL: "https://broker.example/signup"},
				{ID: "done", Label: "Já abri", Kind: domain.ButtonCallback, SetFacts: `{"accounts.quotex":"reported"}`},
			},
		},
	}
}

// Procedure returns a valid procedure with the given ID whose steps point at
// the automations "ask_account" and "release_test".
func Procedure(id string) domain.Procedure {
	return domain.Procedure{
		ID:    id,
		Title: "Liberar acesso ao teste",
		Steps: []domain.ProcedureStep{
			{Name: "Conta", Condition: "lead tem conta na corretora", IfMissing: domain.RunAutomation("ask_account")},
			{Name: "Liberar", Condition: "depósito confirmado", IfMissing: domain.RunAutomation("ask_deposit"), Do: domain.RunAutomation("release_test")},
		},
		Settings: domain.DefaultProcedureSettings(),
	}
}

// TempDir returns an absolute temporary directory for file based stores.
// It fails the test immediately on error.
func TempDir(t *testing.T) string {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")
	return absPath
}
