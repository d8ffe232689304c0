// Package log wraps gopkg.in/op/go-logging.v1 into the small Backend type
// used throughout the server, following the teacher's core/log.Backend
// convention: one Backend per process, one named *logging.Logger per
// subsystem off of it.
package log

import (
	"io"
	"os"

	logging "gopkg.in/op/go-logging.v1"
)

var logFormat = logging.MustStringFormatter(
	`%{time:2006-01-02 15:04:05.000} %{level:.4s} %{module}: %{message}`,
)

// Backend owns the destination writer and level for every logger the
// process creates.
type Backend struct {
	backend logging.LeveledBackend
}

// New builds a Backend writing to w (os.Stdout if w is nil) at the given
// level ("DEBUG", "INFO", "NOTICE", "WARNING", "ERROR", "CRITICAL").
func New(w io.Writer, level string) (*Backend, error) {
	if w == nil {
		w = os.Stdout
	}
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return nil, err
	}
	raw := logging.NewLogBackend(w, "", 0)
	formatted := logging.NewBackendFormatter(raw, logFormat)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(lvl, "")
	return &Backend{backend: leveled}, nil
}

// GetLogger returns a logger scoped to the named subsystem, e.g.
// "engine", "server", "conn:127.0.0.1:51422".
func (b *Backend) GetLogger(name string) *logging.Logger {
	l := logging.MustGetLogger(name)
	l.SetBackend(b.backend)
	return l
}
