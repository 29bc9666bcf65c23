// Package core provides the table engine behind ledgerprep: loading tabular
// data into sessions, rebuilding it through a transform pipeline, scanning it
// for anomalies and reconciling a GL detail against a trial balance.
//
// The package holds all domain logic independent of any transport layer. It
// is used by the HTTP handlers, the command-line tool and tests without
// modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Table: an ordered column list plus rows of [Value] cells.
//   - Session: one dataset with its immutable baseline, editable copy,
//     active [Pipeline] and undo/redo [History].
//   - Pipeline: ordered [Step] values that [ApplyPipeline] replays against a
//     fresh copy of the baseline on every run.
//   - Classifier: samples a table to guess column roles and suggest scan
//     and reconciliation settings.
//   - Scanner: [Scan] flags outliers, duplicates, type mismatches, bad dates
//     and mostly-empty columns without touching the table.
//   - Reconciliation: [Reconcile] groups both tables by (entity, account) and
//     reports variances above a tolerance.
//   - Service: hosts many sessions, bounds heavy work with a [JobLimiter]
//     and evicts idle sessions.
//
// # Profiles
//
// Known dataset shapes are registered at init time using [Register]. Each
// [Profile] carries the expected columns, a unique key, a preset cleaning
// pipeline and a reconciliation mapping:
//
//	core.Register(Profile{
//	    Key: "gl_detail", Group: "GL", Label: "GL Detail",
//	    Fields: []FieldSpec{
//	        {Name: "natural_account", Role: RoleCategorical, Required: true},
//	        {Name: "amount", Role: RoleNumeric, Required: true},
//	    },
//	    Preset: []Step{NewStep(OpTrim, "natural_account", nil)},
//	})
//
// # Recipes
//
// A [Recipe] is the portable form of a pipeline. Recipes encode to JSON or
// YAML and are persisted through a [RecipeStore], either in memory or in
// PostgreSQL.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - SES001-SES007: Session errors (not found, no data, bad row or column)
//   - STEP001-STEP006: Pipeline step errors (unknown op, missing params)
//   - RCN001-RCN002: Reconciliation errors
//   - RCP001-RCP002: Recipe errors
//   - FILE001-FILE006: File errors (size, encoding, format, sheet)
//   - DB001-DB002: Database errors
//   - RATE001-RATE002: Too many concurrent jobs or requests
package core
