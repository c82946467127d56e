package pipeline

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the known step commands.
type Registry struct {
	mu       sync.RWMutex
	commands map[StepName]Command
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[StepName]Command)}
}

// Register adds a command; registering the same name twice is an error.
func (r *Registry) Register(cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[cmd.Name()]; exists {
		return fmt.Errorf("step %s already registered", cmd.Name())
	}
	r.commands[cmd.Name()] = cmd
	return nil
}

// MustRegister registers a command and panics on conflict. Intended for
// static pipeline assembly at startup.
func (r *Registry) MustRegister(cmd Command) {
	if err := r.Register(cmd); err != nil {
		panic(err)
	}
}

// Get returns the command registered under name.
func (r *Registry) Get(name StepName) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// List returns all registered step names, sorted.
func (r *Registry) List() []StepName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]StepName, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
