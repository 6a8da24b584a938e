// Package storage holds the resources served by the demo server.
package storage
