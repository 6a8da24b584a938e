// Package cli implements the acceptevents command-line interface.
package cli
