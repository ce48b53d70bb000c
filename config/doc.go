// Package config loads the docingest TOML configuration file and turns it
// into store dialers, session options and doctype definitions.
//
// A minimal file:
//
//	index = "library"
//	delete_index_on_init = true
//	workers = 8
//
//	[store]
//	backend = "badger"
//	path = "./data"
//
//	[doctypes.article]
//	title = { type = "text" }
//	tag = { type = "keyword" }
//	notes = { type = "text", indexed = false }
//
// Unknown keys are rejected so that typos surface instead of being ignored.
package config
