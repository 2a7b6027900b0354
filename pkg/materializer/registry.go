package materializer

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
)

// Factory is a function that creates a new handler instance.
type Factory func(log *logger.Logger) (Handler, error)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register registers a handler factory with the given name.
// This is typically called in init() functions of handler packages.
// The name is case-insensitive and will be stored in lowercase.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	name = strings.ToLower(name)
	if _, exists := registry[name]; exists {
		logger.GetDefaultLogger().Infof("handler with name %s already in handler registry. "+
			"It will be overwritten.", name)
	}

	registry[name] = factory
}

// GetFactory returns the factory registered under name, or nil.
// The lookup is case-insensitive.
func GetFactory(name string) Factory {
	mu.RLock()
	defer mu.RUnlock()

	return registry[strings.ToLower(name)]
}

// ListRegistered returns the names of all registered handlers, sorted.
func ListRegistered() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)

	return names
}

// Create creates a handler using the registered factory.
// Returns an error if the name is not registered or if creation fails.
func Create(name string, log *logger.Logger) (Handler, error) {
	factory := GetFactory(name)
	if factory == nil {
		return nil, fmt.Errorf("unknown handler: %s (registered handlers: %v)", name, ListRegistered())
	}

	return factory(log)
}

// CreateAll creates one instance of every registered handler.
func CreateAll(log *logger.Logger) ([]Handler, error) {
	names := ListRegistered()
	handlers := make([]Handler, 0, len(names))

	for _, name := range names {
		h, err := Create(name, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create handler %s: %w", name, err)
		}
		handlers = append(handlers, h)
	}

	return handlers, nil
}
