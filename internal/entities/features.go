package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
)

const (
	featureSetNamePattern = `^[a-z][a-z0-9_]*$`
	featureVersionPattern = `^v?\d+\.\d+\.\d+$`

	maxFeatures         = 1000
	maxFeatureNameLen   = 200
	maxFeatureValueSize = 10000 // bytes of JSON
	defaultFreshness    = 24    // hours
)

var featureSetNameRule = slugRule{
	label:       "Feature set name",
	min:         3,
	separators:  "_",
	edgeMessage: "Feature set name cannot start or end with underscores",
	runMessage:  "Feature set name cannot contain consecutive underscores",
}

// FeatureSet is one entity's computed feature values for a day.
type FeatureSet struct {
	FeatureDate          time.Time                  `json:"feature_date"`
	EntityID             string                     `json:"entity_id"`
	EntityType           string                     `json:"entity_type"`
	FeatureSetName       string                     `json:"feature_set_name"`
	FeatureSetVersion    string                     `json:"feature_set_version"`
	FeatureValues        map[string]interface{}     `json:"feature_values"`
	FeatureMetadata      map[string]FeatureMetadata `json:"feature_metadata,omitempty"`
	DataQuality          *FeatureDataQuality        `json:"data_quality,omitempty"`
	StatisticalProfile   map[string]FeatureProfile  `json:"statistical_profile,omitempty"`
	UpstreamDependencies []string                   `json:"upstream_dependencies,omitempty"`
	DownstreamConsumers  []string                   `json:"downstream_consumers,omitempty"`
	FeatureSetStatus     string                     `json:"feature_set_status"`
	SchemaHash           *string                    `json:"schema_hash,omitempty"`
	ComputationTimestamp *time.Time                 `json:"computation_timestamp,omitempty"`
	IngestionTimestamp   *time.Time                 `json:"ingestion_timestamp,omitempty"`
}

type FeatureMetadata struct {
	FeatureName            string  `json:"feature_name"`
	Description            *string `json:"description,omitempty"`
	DataType               string  `json:"data_type"`
	UnitOfMeasure          *string `json:"unit_of_measure,omitempty"`
	AggregationMethod      *string `json:"aggregation_method,omitempty"`
	AggregationWindowHours *int64  `json:"aggregation_window_hours,omitempty"`
	SourceSystem           *string `json:"source_system,omitempty"`
	TransformationLogic    *string `json:"transformation_logic,omitempty"`
	BusinessDefinition     *string `json:"business_definition,omitempty"`
}

type FeatureDataQuality struct {
	CompletenessScore *float64 `json:"completeness_score,omitempty"`
	ValidityScore     *float64 `json:"validity_score,omitempty"`
	ConsistencyScore  *float64 `json:"consistency_score,omitempty"`
	FreshnessHours    *int64   `json:"freshness_hours,omitempty"`
	AccuracyScore     *float64 `json:"accuracy_score,omitempty"`
	NullPercentage    *float64 `json:"null_percentage,omitempty"`
	OutlierPercentage *float64 `json:"outlier_percentage,omitempty"`
}

type FeatureProfile struct {
	MinValue          interface{} `json:"min_value,omitempty"`
	MaxValue          interface{} `json:"max_value,omitempty"`
	MeanValue         *float64    `json:"mean_value,omitempty"`
	MedianValue       *float64    `json:"median_value,omitempty"`
	StdDeviation      *float64    `json:"std_deviation,omitempty"`
	Percentile25      *float64    `json:"percentile_25,omitempty"`
	Percentile75      *float64    `json:"percentile_75,omitempty"`
	Percentile95      *float64    `json:"percentile_95,omitempty"`
	UniqueCount       *int64      `json:"unique_count,omitempty"`
	MostFrequentValue interface{} `json:"most_frequent_value,omitempty"`
	Cardinality       *int64      `json:"cardinality,omitempty"`
}

var featureVariants = variants{
	base: featureContract,
	create: func(base *schema.Contract) *schema.Contract {
		return createVariant(base, "", []string{
			"feature_date", "entity_id", "entity_type", "feature_set_name", "feature_set_version",
			"feature_values", "feature_metadata", "data_quality", "upstream_dependencies",
		},
			schema.Date("feature_date").DefaultToday(),
		)
	},
	update: func(base *schema.Contract) *schema.Contract {
		c := updateVariant(base, []string{
			"feature_values", "feature_metadata", "data_quality", "statistical_profile",
			"upstream_dependencies", "downstream_consumers", "feature_set_status",
			"computation_timestamp", "ingestion_timestamp",
		})
		return c.Extend(c.Name, schema.DateTime("ingestion_timestamp").DefaultNow())
	},
}

// checkFeatureValues bounds the feature map: at least one and at most
// maxFeatures entries, named, with composite values no larger than
// maxFeatureValueSize bytes once serialised.
func checkFeatureValues(v interface{}) error {
	values := v.(map[string]interface{})
	if len(values) == 0 {
		return errors.New("At least one feature value is required")
	}
	if len(values) > maxFeatures {
		return errors.New("Maximum 1000 features allowed per feature set")
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return errors.New("Feature names must be non-empty strings")
		}
		if len(name) > maxFeatureNameLen {
			return fmt.Errorf("Feature name too long: %s", name)
		}
		switch values[name].(type) {
		case []interface{}, map[string]interface{}:
			raw, err := json.Marshal(values[name])
			if err != nil {
				return fmt.Errorf("Feature value not serializable: %s", name)
			}
			if len(raw) > maxFeatureValueSize {
				return fmt.Errorf("Feature value too large: %s", name)
			}
		}
	}
	return nil
}

func dependencyItem(v interface{}) error {
	s := v.(string)
	if s == "" {
		return errors.New("Dependencies must be non-empty strings")
	}
	if len(s) > 200 {
		return errors.New("Individual dependency names cannot exceed 200 characters")
	}
	return nil
}

func dependencies(name string) *schema.Field {
	return schema.List(name, schema.String("").Check(dependencyItem)).
		Check(maxEntries(100, "Maximum 100 dependencies allowed"))
}

func nonNegativeDeviation(v interface{}) error {
	if v.(float64) < 0 {
		return errors.New("Standard deviation must be non-negative")
	}
	return nil
}

// percentileOrder rejects a profile whose lower percentile exceeds the upper.
func percentileOrder(lower, upper, message string) schema.Invariant {
	return schema.Predicate(lower+"_within_"+upper, []string{lower, upper}, func(_ schema.Env, r schema.Record) error {
		lo, _ := r.Float(lower)
		hi, _ := r.Float(upper)
		if lo > hi {
			return errors.New(message)
		}
		return nil
	})
}

// isNumeric reports whether a raw feature value is a number. Booleans are
// not numbers.
func isNumeric(v interface{}) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64, json.Number:
		return true
	default:
		return false
	}
}

func featureContract() *schema.Contract {
	metadata := schema.NewContract("feature_metadata",
		schema.String("feature_name").Require().MaxLen(200),
		schema.String("description").MaxLen(1000),
		schema.Enum("data_type",
			"boolean", "integer", "float", "string", "categorical",
			"datetime", "array_float", "array_int", "json").Require(),
		schema.String("unit_of_measure").MaxLen(50),
		schema.Enum("aggregation_method",
			"sum", "mean", "median", "min", "max", "count", "std", "var",
			"first", "last", "mode", "percentile_25", "percentile_75", "percentile_95"),
		schema.Integer("aggregation_window_hours").Between(1, 8760),
		schema.String("source_system").MaxLen(100),
		schema.String("transformation_logic").MaxLen(2000),
		schema.String("business_definition").MaxLen(2000),
	).Rules(
		schema.Predicate("aggregation_pair", nil, func(_ schema.Env, r schema.Record) error {
			method, window := r.Has("aggregation_method"), r.Has("aggregation_window_hours")
			switch {
			case method && !window:
				return errors.New("aggregation_window_hours required when aggregation_method is specified")
			case window && !method:
				return errors.New("aggregation_method required when aggregation_window_hours is specified")
			}
			return nil
		}),
	)

	quality := schema.NewContract("data_quality",
		schema.Number("completeness_score").Between(0, 1),
		schema.Number("validity_score").Between(0, 1),
		schema.Number("consistency_score").Between(0, 1),
		schema.Integer("freshness_hours").Between(0, 8760),
		schema.Number("accuracy_score").Between(0, 1),
		schema.Number("null_percentage").Between(0, 100),
		schema.Number("outlier_percentage").Between(0, 100),
	).Rules(
		schema.Predicate("completeness_matches_nulls", []string{"completeness_score", "null_percentage"}, func(_ schema.Env, r schema.Record) error {
			completeness, _ := r.Float("completeness_score")
			nulls, _ := r.Float("null_percentage")
			if math.Abs(completeness-(100-nulls)/100) > 0.05 {
				return errors.New("Completeness score inconsistent with null percentage")
			}
			return nil
		}),
	)

	profile := schema.NewContract("statistical_profile",
		schema.Any("min_value"),
		schema.Any("max_value"),
		schema.Number("mean_value"),
		schema.Number("median_value"),
		schema.Number("std_deviation").Check(nonNegativeDeviation),
		schema.Number("percentile_25"),
		schema.Number("percentile_75"),
		schema.Number("percentile_95"),
		schema.Integer("unique_count").AtLeast(0),
		schema.Any("most_frequent_value"),
		schema.Integer("cardinality").AtLeast(0),
	).Rules(
		percentileOrder("percentile_25", "percentile_75", "25th percentile cannot exceed 75th percentile"),
		percentileOrder("percentile_75", "percentile_95", "75th percentile cannot exceed 95th percentile"),
	)

	return schema.NewContract(string(FeatureStore),
		schema.Date("feature_date").Require(),
		schema.UUID("entity_id").Require(),
		schema.Enum("entity_type", "equipment", "user", "session", "part").Require(),
		schema.String("feature_set_name").Require().Lower().Match(featureSetNamePattern).Check(featureSetNameRule.check),
		schema.String("feature_set_version").Require().Match(featureVersionPattern),
		schema.Map("feature_values", nil).Require().Check(checkFeatureValues),
		schema.Map("feature_metadata", schema.Object("", metadata)),
		schema.Object("data_quality", quality),
		schema.Map("statistical_profile", schema.Object("", profile)),
		dependencies("upstream_dependencies"),
		dependencies("downstream_consumers"),
		schema.Enum("feature_set_status", "active", "deprecated", "archived", "experimental").Default("active"),
		schema.String("schema_hash").MaxLen(64),
		schema.DateTime("computation_timestamp").DefaultNow(),
		schema.DateTime("ingestion_timestamp").DefaultNow(),
	).Rules(
		schema.Predicate("metadata_coverage", []string{"feature_values"}, func(_ schema.Env, r schema.Record) error {
			if missing := missingMetadata(r.Map("feature_values"), r.Map("feature_metadata")); len(missing) > 0 {
				return schema.Warn("Feature metadata missing for: %s", strings.Join(missing, ", "))
			}
			return nil
		}),
		schema.Derivation("drop_orphaned_metadata", []string{"feature_values", "feature_metadata"}, func(_ schema.Env, r schema.Record) schema.Record {
			values, meta := r.Map("feature_values"), r.Map("feature_metadata")
			kept := make(map[string]interface{}, len(meta))
			for name, m := range meta {
				if _, ok := values[name]; ok {
					kept[name] = m
				}
			}
			if len(kept) == len(meta) {
				return nil
			}
			return r.With("feature_metadata", kept)
		}),
		notBefore("ingested_after_computed", "ingestion_timestamp", "computation_timestamp",
			"Ingestion timestamp must be after computation timestamp"),
		schema.Predicate("numeric_profiles", []string{"feature_values", "statistical_profile"}, func(_ schema.Env, r schema.Record) error {
			values := r.Map("feature_values")
			names := make([]string, 0)
			for name := range r.Map("statistical_profile") {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				v, ok := values[name]
				if ok && !isNumeric(v) {
					return fmt.Errorf("Statistical profile invalid for non-numeric feature: %s", name)
				}
			}
			return nil
		}),
	).Into(func() interface{} { return &FeatureSet{} })
}

func missingMetadata(values, meta map[string]interface{}) []string {
	var missing []string
	for name := range values {
		if _, ok := meta[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// AgeHours is the whole hours since computation, or 0 when unknown.
func (f *FeatureSet) AgeHours(now time.Time) int {
	if f.ComputationTimestamp == nil {
		return 0
	}
	return int(now.Sub(*f.ComputationTimestamp) / time.Hour)
}

// IsFresh compares the age with the declared freshness window, 24 hours
// when none is declared.
func (f *FeatureSet) IsFresh(now time.Time) bool {
	window := int64(defaultFreshness)
	if f.DataQuality != nil && f.DataQuality.FreshnessHours != nil && *f.DataQuality.FreshnessHours > 0 {
		window = *f.DataQuality.FreshnessHours
	}
	return int64(f.AgeHours(now)) <= window
}

// OverallQuality averages the quality scores present.
func (f *FeatureSet) OverallQuality() *float64 {
	q := f.DataQuality
	if q == nil {
		return nil
	}
	var sum float64
	n := 0
	for _, s := range []*float64{q.CompletenessScore, q.ValidityScore, q.ConsistencyScore, q.AccuracyScore} {
		if s != nil {
			sum += *s
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := round3(sum / float64(n))
	return &avg
}

// Computed implements Computer.
func (f *FeatureSet) Computed(now time.Time) map[string]interface{} {
	numeric, categorical := 0, 0
	for _, v := range f.FeatureValues {
		switch v.(type) {
		case string, bool:
			categorical++
		default:
			if isNumeric(v) {
				numeric++
			}
		}
	}
	meta := make(map[string]interface{}, len(f.FeatureMetadata))
	for name := range f.FeatureMetadata {
		meta[name] = true
	}

	out := map[string]interface{}{
		"feature_count":             len(f.FeatureValues),
		"age_hours":                 f.AgeHours(now),
		"is_fresh":                  f.IsFresh(now),
		"overall_quality_score":     nil,
		"numeric_feature_count":     numeric,
		"categorical_feature_count": categorical,
		"missing_metadata_features": missingMetadata(f.FeatureValues, meta),
	}
	if q := f.OverallQuality(); q != nil {
		out["overall_quality_score"] = *q
	}
	return out
}
