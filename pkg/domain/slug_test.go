package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "Liberar acesso ao teste", "liberar_acesso_ao_teste"},
		{"accents", "Confirmação de Depósito", "confirmacao_de_deposito"},
		{"punctuation runs", "  Fluxo -- Quotex!!  (v2) ", "fluxo_quotex_v2"},
		{"digits", "Passo 1: conta", "passo_1_conta"},
		{"empty", "", ""},
		{"only symbols", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}
}

func TestSlugify_Truncates(t *testing.T) {
	title := strings.Repeat("abcde ", 20)
	slug := Slugify(title)

	assert.LessOrEqual(t, len(slug), MaxSlugLength)
	assert.False(t, strings.HasSuffix(slug, "_"))
	assert.True(t, strings.HasPrefix(slug, "abcde_abcde"))
}

func TestSlugify_Idempotent(t *testing.T) {
	for _, title := range []string{"Liberar acesso ao teste", "Ação Rápida #3", strings.Repeat("x y ", 40)} {
		once := Slugify(title)
		assert.Equal(t, once, Slugify(title))
		assert.Equal(t, once, Slugify(once))
	}
}

func TestIDField(t *testing.T) {
	t.Run("derives while untouched", func(t *testing.T) {
		f := NewIDField("Onboarding")
		assert.Equal(t, "onboarding", f.Value())

		f.SetTitle("Onboarding Quotex")
		assert.Equal(t, "onboarding_quotex", f.Value())
		assert.False(t, f.Edited())
	})

	t.Run("manual edit stops derivation for good", func(t *testing.T) {
		f := NewIDField("Onboarding")
		f.Edit("custom_id")
		f.SetTitle("Something Else")

		assert.Equal(t, "custom_id", f.Value())
		assert.True(t, f.Edited())

		f.Edit("")
		f.SetTitle("Again")
		assert.Equal(t, "", f.Value())
	})

	t.Run("existing ids never re-derive", func(t *testing.T) {
		f := ExistingIDField("liberar_teste")
		f.SetTitle("Liberar acesso ao teste")
		assert.Equal(t, "liberar_teste", f.Value())
	})
}
