// Package migrations holds the storefront schema. Each migration registers
// itself from init(); import this package for its side effect wherever
// migrations are run.
package migrations
