package storage

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ha1tch/ecotour/pkg/ontology"
)

// ExecutorFactory creates an Executor over the given graph source
type ExecutorFactory func(source GraphSource, config map[string]interface{}) (Executor, error)

var (
	executorMu       sync.RWMutex
	executorRegistry = make(map[string]ExecutorFactory)
)

// RegisterExecutor registers a new executor implementation
func RegisterExecutor(name string, factory ExecutorFactory) {
	executorMu.Lock()
	defer executorMu.Unlock()
	executorRegistry[name] = factory
}

// NewExecutor creates a new executor instance by name
func NewExecutor(name string, source GraphSource, config map[string]interface{}) (Executor, error) {
	executorMu.RLock()
	factory, exists := executorRegistry[name]
	executorMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s (registered: %s)", ErrUnknownExecutor, name, strings.Join(ListExecutors(), ", "))
	}

	return factory(source, config)
}

// ListExecutors returns all registered executor types
func ListExecutors() []string {
	executorMu.RLock()
	defer executorMu.RUnlock()

	names := make([]string, 0, len(executorRegistry))
	for name := range executorRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// init registers built-in executors
func init() {
	RegisterExecutor("local", func(source GraphSource, config map[string]interface{}) (Executor, error) {
		return NewLocalExecutor(source, ontology.Prefixes), nil
	})

	RegisterExecutor("remote", func(source GraphSource, config map[string]interface{}) (Executor, error) {
		endpoint, ok := config["endpoint"].(string)
		if !ok || endpoint == "" {
			return nil, fmt.Errorf("remote executor requires an endpoint")
		}

		timeout := 30 * time.Second
		if t, ok := config["timeout"].(time.Duration); ok && t > 0 {
			timeout = t
		}
		logger := zerolog.Nop()
		if l, ok := config["logger"].(zerolog.Logger); ok {
			logger = l
		}

		remote := NewRemoteExecutor(endpoint, &http.Client{Timeout: timeout}, logger)
		remote.Fallback = NewLocalExecutor(source, ontology.Prefixes)
		return remote, nil
	})
}
