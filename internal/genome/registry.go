package genome

import (
	"fmt"
	"sort"
	"sync"
)

// UnknownVirusError is returned for a virus without a layout.
type UnknownVirusError struct {
	Virus string
}

func (e *UnknownVirusError) Error() string {
	return fmt.Sprintf("unknown virus %q", e.Virus)
}

// NotLoadedError is returned for a supported virus whose sequence has not
// been loaded.
type NotLoadedError struct {
	Virus string
}

func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("genome sequence for %s is not loaded (run `vibe-mv download`)", e.Virus)
}

// Registry maps virus identifiers to layouts and loaded descriptors.
// It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	layouts     map[string]Layout
	locators    map[string]*Locator
	descriptors map[string]*Descriptor
}

// NewRegistry returns a registry knowing the built-in layouts and no sequences.
func NewRegistry() *Registry {
	r := &Registry{
		layouts:     make(map[string]Layout),
		locators:    make(map[string]*Locator),
		descriptors: make(map[string]*Descriptor),
	}
	for _, l := range BuiltinLayouts() {
		r.layouts[l.Virus] = l
		r.locators[l.Virus] = NewLocator(l)
	}
	return r
}

// AddLayout registers an additional virus layout.
func (r *Registry) AddLayout(l Layout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layouts[l.Virus] = l
	r.locators[l.Virus] = NewLocator(l)
}

// Layout returns the layout for virus.
func (r *Registry) Layout(virus string) (Layout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.layouts[virus]
	if !ok {
		return Layout{}, &UnknownVirusError{Virus: virus}
	}
	return l, nil
}

// Locator returns the gene locator for virus. It works whether or not the
// sequence is loaded.
func (r *Registry) Locator(virus string) (*Locator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.locators[virus]
	if !ok {
		return nil, &UnknownVirusError{Virus: virus}
	}
	return l, nil
}

// Register stores a loaded descriptor, replacing any earlier one.
func (r *Registry) Register(d *Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.layouts[d.Virus()]; !ok {
		return &UnknownVirusError{Virus: d.Virus()}
	}
	r.descriptors[d.Virus()] = d
	return nil
}

// Lookup returns the descriptor for virus.
func (r *Registry) Lookup(virus string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.layouts[virus]; !ok {
		return nil, &UnknownVirusError{Virus: virus}
	}
	d, ok := r.descriptors[virus]
	if !ok {
		return nil, &NotLoadedError{Virus: virus}
	}
	return d, nil
}

// Viruses returns the known virus identifiers, sorted.
func (r *Registry) Viruses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.layouts))
	for v := range r.layouts {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
