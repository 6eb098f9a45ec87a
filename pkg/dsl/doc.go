/*
Package dsl builds catalogs in Go instead of YAML.

It is meant for tests, previews and seeding: records are assembled with a fluent builder
and loaded into in-memory catalogs through the same validation as any other write.

Example usage:

	b := dsl.New()

	b.Automation("ask_account").
		Topic("onboarding").
		Eligibility("lead has no broker account").
		Priority(0.9).
		Text("Já tem conta na corretora?").
		URLButton("signup", "Abrir conta", "https://broker.example/signup").
		CallbackButton("done", "Já tenho", map[string]any{"accounts.quotex": "reported"})

	b.Procedure("release_test").
		Title("Liberar teste").
		Step("Conta", "lead tem conta").IfMissing("ask_account").
		Step("Liberar", "depósito confirmado").Then("send_access")

	cats, err := b.Build(ctx)
*/
package dsl
