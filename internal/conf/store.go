package conf

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store is the static configuration: groups of keyed values read from a
// YAML document of the form
//
//	BrightnessDisplay:
//	  LimitsProfile0: [10, 100, 1000]
//	  LevelsProfile0: "20, 60, 100"
type Store struct {
	groups map[string]map[string]yaml.Node
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{groups: make(map[string]map[string]yaml.Node)}
}

// Load reads a store from a YAML file
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	store, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return store, nil
}

// Parse decodes a store from YAML
func Parse(data []byte) (*Store, error) {
	store := NewStore()
	if err := yaml.Unmarshal(data, &store.groups); err != nil {
		return nil, err
	}
	if store.groups == nil {
		store.groups = make(map[string]map[string]yaml.Node)
	}
	return store, nil
}

// HasGroup reports whether the group exists
func (s *Store) HasGroup(group string) bool {
	_, ok := s.groups[group]
	return ok
}

// Groups returns the group names in sorted order
func (s *Store) Groups() []string {
	names := make([]string, 0, len(s.groups))
	for name := range s.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetIntList returns an integer list. Both YAML sequences and comma or
// semicolon separated scalars are accepted. Any non-integer element makes
// the whole key absent.
func (s *Store) GetIntList(group, key string) ([]int, bool) {
	node, ok := s.lookup(group, key)
	if !ok {
		return nil, false
	}

	var fields []string
	switch node.Kind {
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, false
			}
			fields = append(fields, item.Value)
		}
	case yaml.ScalarNode:
		fields = strings.FieldsFunc(node.Value, func(r rune) bool {
			return r == ',' || r == ';'
		})
	default:
		return nil, false
	}

	values := make([]int, 0, len(fields))
	for _, field := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}

// GetString returns a scalar value as a string
func (s *Store) GetString(group, key string) (string, bool) {
	node, ok := s.lookup(group, key)
	if !ok || node.Kind != yaml.ScalarNode {
		return "", false
	}
	return node.Value, true
}

// GetInt returns a scalar integer value
func (s *Store) GetInt(group, key string) (int, bool) {
	value, ok := s.GetString(group, key)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	return v, true
}

func (s *Store) lookup(group, key string) (*yaml.Node, bool) {
	keys, ok := s.groups[group]
	if !ok {
		return nil, false
	}
	node, ok := keys[key]
	if !ok {
		return nil, false
	}
	return &node, true
}
