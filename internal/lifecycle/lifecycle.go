// Package lifecycle runs per-module connect/shutdown hooks in
// declaration order (reversed on shutdown), pinned to the
// start()/shutdown() closures of StreamletWorker.on_consumer_ready in
// original_source/src/core/flow.py.
package lifecycle

import (
	"fmt"

	"github.com/streamlet-go/streamlet/internal/errkind"
	"github.com/streamlet-go/streamlet/internal/logging"
)

// Hooked is implemented by every constructed module instance
// (internal/registry.Instance satisfies this).
type Hooked interface {
	Name() string
	OnConnect() error
	OnPreShutdown() error
	OnShutdown() error
}

// Connect runs OnConnect for every module in registration order,
// aborting on the first failure — startup hook failures are fatal.
func Connect(modules []Hooked, log logging.Logger) error {
	for _, m := range modules {
		log.Info("connecting module", "module", m.Name())
		if err := m.OnConnect(); err != nil {
			return errkind.New(errkind.StartupHookFailed, err).WithModule(m.Name())
		}
	}
	return nil
}

// Shutdown runs OnPreShutdown forward, then OnShutdown in reverse
// order, over every module. Shutdown failures are logged only and do
// not stop the remaining modules from shutting down.
func Shutdown(modules []Hooked, log logging.Logger) {
	for _, m := range modules {
		if err := m.OnPreShutdown(); err != nil {
			log.Error("pre-shutdown hook failed", "module", m.Name(), "error", errString(err))
		}
	}

	for i := len(modules) - 1; i >= 0; i-- {
		m := modules[i]
		if err := m.OnShutdown(); err != nil {
			log.Error("shutdown hook failed", "module", m.Name(), "error", errString(err))
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprint(err)
}
