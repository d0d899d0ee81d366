// Package cli implements the epilot command-line tool.
//
// # Overview
//
// Every command shares a Session: the persistent flags (--json, --env-file,
// --log-level) are parsed first, then configuration, logging and the
// provisioning runtime are built lazily by the first command that needs them.
// Commands that only read local files (contacts example) never load a token.
//
// # Output
//
// Results go to stdout, either as tabwriter tables or, with --json, as
// indented JSON. Confirmations, warnings and errors go to stderr, and so do
// the structured logs, so the output can be piped:
//
//	epilot entity list --schema contact --json | jq '.[]._id'
//
// # Commands
//
//   - check, apis, services: configuration and platform discovery
//   - entity: list, search, get, create, update, patch, delete, schemas
//   - contacts: export (CSV), import (CSV), example
//   - export: workflows, automations, journeys, blueprints, designs, all
//   - workflow: list, create, update, start
//   - automation: create, update, simplify-email
//   - journey: get, apply; design: create
//   - seed: demo data groups with ledger-backed re-runs
//
// Batch commands (contacts import, seed) print a summary and fail only when
// no item went through.
package cli
