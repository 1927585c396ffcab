// Package logging provides the shared structured logger for sotamoon-network.
package logging

import (
	log "github.com/sirupsen/logrus"
)

var root = log.New()

// Logger returns the shared root logger. Components should call this once
// and keep the *log.Logger rather than referencing the package var.
func Logger() *log.Logger { return root }

// SetLevel adjusts the root logger's verbosity, e.g. from config.
func SetLevel(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		root.Warnf("logging: unknown level %q, keeping %s", level, root.GetLevel())
		return
	}
	root.SetLevel(lvl)
}

// With returns an entry tagged with a component field, the convention used
// across every subsystem logger call site.
func With(component string) *log.Entry {
	return root.WithField("component", component)
}
