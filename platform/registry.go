package platform

import (
	"fmt"
	"sync"
)

// Factory builds a Scheduler from the daemon's data directory.
type Factory func(dataDir string) (Scheduler, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register makes an adapter available under the given name. Adapters call
// Register from an init function; registering the same name twice panics.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("platform adapter %q already registered", name))
	}
	factories[name] = f
}

// Open builds the adapter registered under name.
func Open(name, dataDir string) (Scheduler, error) {
	registryMu.RLock()
	f, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("platform adapter %q not registered (have %v)", name, Names())
	}
	return f(dataDir)
}

// Names returns the registered adapter names.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	return names
}
