package serialization

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/glimte/ocpp-envelope/schema"
)

// Descriptor describes how one action is put on the wire in one protocol version
type Descriptor struct {
	Action          string
	Version         *semver.Version
	RequestContext  contracts.JSONLDContext
	ResponseContext contracts.JSONLDContext
	RequestSchema   *schema.Schema
	ResponseSchema  *schema.Schema
}

// Key identifies the descriptor as action@version
func (d Descriptor) Key() string {
	return fmt.Sprintf("%s@%s", d.Action, d.Version)
}

// ResponseKey names the validator entry of an action's response schema
func ResponseKey(action string) string {
	return action + "Response"
}

// Registry holds action descriptors, several versions per action
type Registry struct {
	descriptors map[string][]Descriptor
	mu          sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[string][]Descriptor),
	}
}

// Register adds a descriptor. An action@version pair can only be registered once.
func (r *Registry) Register(d Descriptor) error {
	if d.Action == "" {
		return fmt.Errorf("action cannot be empty")
	}
	if d.Version == nil {
		return fmt.Errorf("version cannot be nil for action %s", d.Action)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	versions := r.descriptors[d.Action]
	for _, existing := range versions {
		if existing.Version.Equal(d.Version) {
			return fmt.Errorf("action %s already registered", d.Key())
		}
	}

	versions = append(versions, d)
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version.LessThan(versions[j].Version)
	})
	r.descriptors[d.Action] = versions
	return nil
}

// Lookup returns the newest registered version of action
func (r *Registry) Lookup(action string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, exists := r.descriptors[action]
	if !exists || len(versions) == 0 {
		return Descriptor{}, fmt.Errorf("action %s not registered", action)
	}
	return versions[len(versions)-1], nil
}

// LookupVersion returns the newest version of action matching requested.
// requested is an exact version, a wildcard like "2.x" or a semver constraint like "^2.0".
func (r *Registry) LookupVersion(action, requested string) (Descriptor, error) {
	if requested == "" {
		return r.Lookup(action)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, exists := r.descriptors[action]
	if !exists {
		return Descriptor{}, fmt.Errorf("action %s not registered", action)
	}

	for i := len(versions) - 1; i >= 0; i-- {
		if matchesVersion(versions[i].Version, requested) {
			return versions[i], nil
		}
	}
	return Descriptor{}, fmt.Errorf("no version of action %s matches %s", action, requested)
}

// IsRegistered checks if any version of action is registered
func (r *Registry) IsRegistered(action string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.descriptors[action]
	return exists
}

// Actions returns the registered action names, sorted
func (r *Registry) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]string, 0, len(r.descriptors))
	for action := range r.descriptors {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	return actions
}

// List returns every descriptor ordered by action, then version
func (r *Registry) List() []Descriptor {
	var all []Descriptor
	for _, action := range r.Actions() {
		r.mu.RLock()
		all = append(all, r.descriptors[action]...)
		r.mu.RUnlock()
	}
	return all
}

// RegisterSchemas registers the newest request and response schema of every
// action with v. Response schemas are keyed by ResponseKey.
func (r *Registry) RegisterSchemas(v *schema.MessageValidator) error {
	return r.RegisterSchemasVersion(v, "")
}

// RegisterSchemasVersion is RegisterSchemas restricted to the newest version
// of each action matching requested. Every action must have a match.
func (r *Registry) RegisterSchemasVersion(v *schema.MessageValidator, requested string) error {
	for _, action := range r.Actions() {
		d, err := r.LookupVersion(action, requested)
		if err != nil {
			return err
		}
		if d.RequestSchema != nil {
			if err := v.RegisterSchema(action, d.RequestSchema); err != nil {
				return fmt.Errorf("failed to register request schema of %s: %w", d.Key(), err)
			}
		}
		if d.ResponseSchema != nil {
			if err := v.RegisterSchema(ResponseKey(action), d.ResponseSchema); err != nil {
				return fmt.Errorf("failed to register response schema of %s: %w", d.Key(), err)
			}
		}
	}
	return nil
}

func matchesVersion(version *semver.Version, requested string) bool {
	if version.Original() == requested || version.String() == requested {
		return true
	}

	// simple wildcards like "2.x" or "2.1.x"
	if strings.Contains(requested, "x") {
		pattern := strings.ReplaceAll(requested, ".", "\\.")
		pattern = "^" + strings.ReplaceAll(pattern, "x", "[0-9]+") + "$"
		if matched, err := regexp.MatchString(pattern, version.Original()); err == nil && matched {
			return true
		}
	}

	constraint, err := semver.NewConstraint(requested)
	if err != nil {
		return false
	}
	return constraint.Check(version)
}
