package dsl_test

import (
	"context"
	"fmt"
	"log"

	"github.com/manyblack/studio/pkg/dsl"
)

// ExampleBuilder declares a small onboarding catalog and loads it into memory.
func ExampleBuilder() {
	b := dsl.New()
	b.Automation("ask_account").
		Topic("onboarding").
		Eligibility("lead has no broker account").
		Priority(0.9).
		Text("Já tem conta na corretora?").
		QuickReply("yes", "Sim")
	b.Procedure("open_account").
		Title("Abrir conta").
		Step("Conta", "lead tem conta").IfMissing("ask_account")

	ctx := context.Background()
	cats, err := b.Build(ctx)
	if err != nil {
		log.Fatal(err)
	}
	autos, _ := cats.Automations.List(ctx)
	procs, _ := cats.Procedures.List(ctx)
	fmt.Println(len(autos), "automation,", len(procs), "procedure")
	// Output: 1 automation, 1 procedure
}
