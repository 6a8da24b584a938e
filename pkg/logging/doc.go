// Package logging builds the structured loggers used across acceptevents.
//
// It wraps log/slog with a small Config so the CLI can select level and
// format from flags or the config file:
//
//	logger := logging.New(logging.Config{
//	    Level:     logging.ParseLevel("debug"),
//	    Format:    logging.FormatJSON,
//	    Component: "negotiator",
//	})
//
// Components accept a *slog.Logger in their constructor or via an option and
// fall back to Nop when none is given. Negotiation traces are emitted at
// debug level, so they only appear when the level is lowered.
package logging
