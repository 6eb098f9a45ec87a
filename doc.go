/*
Package studio is the admin tool for a conversational decision backend.

The backend decides what to send a lead from two policy catalogs: automations (candidate
messages with a topic, priority, cooldown and buttons) and procedures (ordered gating steps
that fall back to automations or other procedures). Studio edits those catalogs under the
same validation rules the backend relies on, previews the backend's decision for a message
without side effects, and follows the backend's simulation log stream.

# Packages

  - pkg/domain: the records, the value types they use and the sentinel errors.
  - pkg/schema: record, snapshot and settings validation producing a Report.
  - pkg/catalog: the catalog service (list, get, add, update, delete, reset, backups,
    restore, import, export, stats) over any ports.Catalog store.
  - pkg/adapters: memory, redis and remote HTTP stores, the HTTP server and the MCP server.
  - pkg/client: the decision backend's HTTP API.
  - pkg/simulator and pkg/stream: the simulator screen and the log viewer.

# Usage

Open the catalogs on a directory holding the backend's policy files:

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/manyblack/studio"
	)

	func main() {
		cats := studio.Open("./backend")

		ctx := context.Background()
		ov, err := cats.Overview(ctx)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(ov.AutomationsCount, "automations,", ov.ProceduresCount, "procedures")

		// Every write is validated; a failed validation leaves the file untouched.
		report, err := cats.Automations.Add(ctx, myAutomation)
		if err != nil {
			log.Fatal(err)
		}
		for _, w := range report.Warnings() {
			log.Println("warning:", w)
		}
	}

The studio command wraps the same operations for the terminal and serves them over HTTP
(studio serve) and MCP (studio mcp).
*/
package studio
