package studio_test

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/manyblack/studio"
	"github.com/manyblack/studio/pkg/domain"
)

// ExampleOpenMemory shows a record being validated before it is stored.
func ExampleOpenMemory() {
	cats := studio.OpenMemory()
	ctx := context.Background()

	welcome := domain.Automation{
		ID:          "welcome",
		Topic:       "onboarding",
		Eligibility: "new lead",
		Priority:    0.95,
		Cooldown:    domain.Cooldown24h,
		Output:      domain.Output{Type: domain.OutputTypeMessage, Text: "Bem-vindo!"},
	}
	if _, err := cats.Automations.Add(ctx, welcome); err != nil {
		log.Fatal(err)
	}

	broken := welcome
	broken.ID = "broken"
	broken.Priority = 1.5
	_, err := cats.Automations.Add(ctx, broken)
	fmt.Println("rejected:", errors.Is(err, domain.ErrInvalid))

	stats, err := cats.Automations.Stats(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("total:", stats.Total, "high priority:", stats.HighPriority)

	// Output:
	// rejected: true
	// total: 1 high priority: 1
}
