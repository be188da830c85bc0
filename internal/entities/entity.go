// Package entities declares the contracts of every entity in the
// diagnostic dataset and the operation variants derived from them.
package entities

import (
	"fmt"
	"time"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
)

// Entity enumerates the contracted entity types. The string form is the
// warehouse table name.
type Entity string

const (
	EquipmentRegistry      Entity = "equipment_registry"
	Users                  Entity = "users"
	DiagnosticSessions     Entity = "diagnostic_sessions"
	PartsInventory         Entity = "parts_inventory"
	MaintenancePredictions Entity = "maintenance_predictions"
	Models                 Entity = "models"
	FeatureStore           Entity = "feature_store"
	RedditDiagnosticPosts  Entity = "reddit_diagnostic_posts"
)

var all = []Entity{
	EquipmentRegistry,
	Users,
	DiagnosticSessions,
	PartsInventory,
	MaintenancePredictions,
	Models,
	FeatureStore,
	RedditDiagnosticPosts,
}

// Entities lists every entity in declaration order.
func Entities() []Entity {
	return append([]Entity(nil), all...)
}

// ParseEntity maps a table or entity name to its Entity.
func ParseEntity(name string) (Entity, error) {
	for _, e := range all {
		if string(e) == name {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: entity %s", schema.ErrNotFound, name)
}

// Operations lists the variants available for e.
func Operations(e Entity) []schema.Operation {
	return append([]schema.Operation(nil), schema.Operations...)
}

// variants holds the constructors of one entity's operation variants.
type variants struct {
	base   func() *schema.Contract
	create func(base *schema.Contract) *schema.Contract
	update func(base *schema.Contract) *schema.Contract

	// response is optional; nil serves the base contract.
	response func(base *schema.Contract) *schema.Contract
}

func definitionOf(e Entity) (variants, error) {
	switch e {
	case EquipmentRegistry:
		return equipmentVariants, nil
	case Users:
		return userVariants, nil
	case DiagnosticSessions:
		return sessionVariants, nil
	case PartsInventory:
		return partVariants, nil
	case MaintenancePredictions:
		return predictionVariants, nil
	case Models:
		return modelVariants, nil
	case FeatureStore:
		return featureVariants, nil
	case RedditDiagnosticPosts:
		return redditVariants, nil
	default:
		return variants{}, fmt.Errorf("%w: entity %s", schema.ErrNotFound, e)
	}
}

// Build constructs the contract of e for op. Every call returns a fresh
// contract; callers cache through schema.Registry.
func Build(e Entity, op schema.Operation) (*schema.Contract, error) {
	v, err := definitionOf(e)
	if err != nil {
		return nil, err
	}

	base := v.base()
	switch op {
	case schema.OpBase:
		return base, nil
	case schema.OpResponse:
		if v.response == nil {
			return base, nil
		}
		return v.response(base), nil
	case schema.OpCreate:
		return v.create(base), nil
	case schema.OpUpdate:
		return v.update(base), nil
	default:
		return nil, fmt.Errorf("%w: %s for %s", schema.ErrUnsupportedOperation, op, e)
	}
}

// Builder adapts Build to schema.Builder for use with schema.NewRegistry.
func Builder(entity string, op schema.Operation) (*schema.Contract, error) {
	e, err := ParseEntity(entity)
	if err != nil {
		return nil, err
	}
	return Build(e, op)
}

// NewRegistry creates a registry over every entity contract.
func NewRegistry(opts ...schema.RegistryOption) *schema.Registry {
	return schema.NewRegistry(Builder, opts...)
}

// Computer is implemented by typed entities exposing read-only attributes
// derived at response time.
type Computer interface {
	Computed(now time.Time) map[string]interface{}
}

// Computed returns the response attributes of value, or nil when value
// exposes none.
func Computed(value interface{}, now time.Time) map[string]interface{} {
	c, ok := value.(Computer)
	if !ok {
		return nil
	}
	return c.Computed(now)
}
