package schema

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/manyblack/studio/pkg/domain"
)

// Type defines the contract for fact value validation.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "bool").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

// FloatType validates numeric values, including json.Number.
type FloatType struct{}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) Validate(value any) error {
	switch v := value.(type) {
	case float32, float64, int, int8, int16, int32, int64:
		return nil
	case json.Number:
		if _, err := v.Float64(); err != nil {
			return fmt.Errorf("expected number: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("expected float, got %T", value)
	}
}

// EnumType validates strings against a fixed set.
type EnumType struct {
	values []string
}

func (t *EnumType) Name() string { return "enum(" + strings.Join(t.values, "|") + ")" }

func (t *EnumType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if !slices.Contains(t.values, s) {
		return fmt.Errorf("expected one of %s, got %q", strings.Join(t.values, ", "), s)
	}
	return nil
}

// --- Factory Functions ---

// String creates a string type validator.
func String() Type { return &StringType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Float creates a numeric type validator.
func Float() Type { return &FloatType{} }

// Enum creates a validator accepting only the given strings.
func Enum(values ...string) Type { return &EnumType{values: values} }

// FactSchema maps dotted fact paths to their expected types.
// A key ending in ".*" matches any single segment below the prefix.
type FactSchema map[string]Type

// SnapshotFacts describes the fact paths a callback button may set on a lead snapshot.
func SnapshotFacts() FactSchema {
	return FactSchema{
		"accounts.*": Enum(
			string(domain.AccountUnknown), string(domain.AccountReported), string(domain.AccountOpen),
		),
		"deposit.status": Enum(
			string(domain.DepositNone), string(domain.DepositPending), string(domain.DepositConfirmed),
		),
		"agreements.*":    Bool(),
		"flags.*":         Bool(),
		"history_summary": String(),
	}
}

// Lookup finds the type for a path, preferring exact matches over wildcards.
func (s FactSchema) Lookup(path string) (Type, bool) {
	if t, ok := s[path]; ok {
		return t, true
	}
	idx := strings.LastIndex(path, ".")
	if idx <= 0 || idx == len(path)-1 {
		return nil, false
	}
	if strings.Contains(path[:idx], ".") {
		// wildcards only cover one segment
		return nil, false
	}
	t, ok := s[path[:idx]+".*"]
	return t, ok
}

// validateFacts checks each fact path against the schema. Nothing here blocks a save:
// the backend may understand facts this tool does not, and it renders string values
// containing "{{" as templates before applying them, so those skip the type check.
func (s FactSchema) validateFacts(r *Report, key string, facts map[string]any) {
	paths := make([]string, 0, len(facts))
	for p := range facts {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	for _, p := range paths {
		t, ok := s.Lookup(p)
		if !ok {
			r.warnf(key, "unknown fact path %q", p)
			continue
		}
		if isTemplate(facts[p]) {
			continue
		}
		if err := t.Validate(facts[p]); err != nil {
			r.warnf(key, "fact %q: %v", p, err)
		}
	}
}

func isTemplate(v any) bool {
	s, ok := v.(string)
	return ok && strings.Contains(s, "{{")
}
