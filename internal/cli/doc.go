// Package cli implements the kesurge command-line client.
//
// It wraps the places backend API (listing, detail, categories, stats, scraper runs) and the
// status checker behind Cobra commands, printing aligned text tables or indented JSON.
package cli
