package quest

import "sync"

var (
	defaultMu          sync.Mutex
	defaultCoordinator *Coordinator
)

// Default returns the process-wide coordinator, creating it on first use.
func Default() *Coordinator {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultCoordinator == nil {
		defaultCoordinator = NewCoordinator()
	}
	return defaultCoordinator
}

// SetDefault installs c as the process-wide coordinator and returns a func
// that restores the previous one. Intended for tests:
//
//	restore := quest.SetDefault(quest.NewCoordinator())
//	defer restore()
func SetDefault(c *Coordinator) (restore func()) {
	defaultMu.Lock()
	prev := defaultCoordinator
	defaultCoordinator = c
	defaultMu.Unlock()

	return func() {
		defaultMu.Lock()
		defaultCoordinator = prev
		defaultMu.Unlock()
	}
}

// ResetDefault shuts down and discards the process-wide coordinator. The next
// Default call creates a fresh one.
func ResetDefault() {
	defaultMu.Lock()
	c := defaultCoordinator
	defaultCoordinator = nil
	defaultMu.Unlock()

	if c != nil {
		c.Shutdown()
	}
}
