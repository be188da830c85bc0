package entities

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
)

const (
	modelNamePattern = `^[a-z][a-z0-9_-]*$`
	gitHashPattern   = `^[a-f0-9]{40}$`

	// samples per second that scores a training efficiency of 1.0
	efficiencyBaseline = 100.0
)

var modelNameRule = slugRule{
	label:       "Model name",
	min:         3,
	separators:  "-_",
	edgeMessage: "Model name cannot start or end with dashes or underscores",
	runMessage:  "Model name cannot contain consecutive dashes or underscores",
}

var (
	unitIntervalMetrics = []string{"accuracy", "precision", "recall", "f1_score", "auc_roc", "auc_pr"}
	errorMetrics        = []string{"mse", "rmse", "mae"}
	scoredMetrics       = []string{"accuracy", "f1_score", "auc_roc", "r2_score"}
)

var modelTypes = []string{
	"classification", "regression", "clustering", "anomaly_detection",
	"recommendation", "forecasting", "nlp", "computer_vision",
	"reinforcement_learning", "generative", "embedding",
}

var algorithms = []string{
	"linear_regression", "logistic_regression", "random_forest", "gradient_boosting",
	"neural_network", "svm", "kmeans", "xgboost", "lightgbm", "catboost",
	"decision_tree", "naive_bayes", "knn", "ensemble", "deep_learning",
	"transformer", "lstm", "cnn", "autoencoder", "gan",
}

var frameworks = []string{
	"scikit-learn", "tensorflow", "pytorch", "xgboost", "lightgbm", "catboost",
	"spark_ml", "h2o", "keras", "fastai", "huggingface", "onnx", "mlflow",
	"ray", "dask", "prophet", "statsmodels",
}

// Model is an entry of the ML model registry.
type Model struct {
	ModelID              string            `json:"model_id"`
	ModelName            string            `json:"model_name"`
	ModelType            *string           `json:"model_type,omitempty"`
	Algorithm            *string           `json:"algorithm,omitempty"`
	Framework            *string           `json:"framework,omitempty"`
	Description          *string           `json:"description,omitempty"`
	VersionInfo          *ModelVersion     `json:"version_info,omitempty"`
	Training             *ModelTraining    `json:"training,omitempty"`
	Performance          *ModelPerformance `json:"performance,omitempty"`
	Deployment           *ModelDeployment  `json:"deployment,omitempty"`
	Status               string            `json:"status"`
	IsActive             bool              `json:"is_active"`
	Tags                 []string          `json:"tags,omitempty"`
	ModelArtifactPath    *string           `json:"model_artifact_path,omitempty"`
	ConfigFilePath       *string           `json:"config_file_path,omitempty"`
	RequirementsFilePath *string           `json:"requirements_file_path,omitempty"`
	UseCase              *string           `json:"use_case,omitempty"`
	BusinessOwner        *string           `json:"business_owner,omitempty"`
	TechnicalOwner       *string           `json:"technical_owner,omitempty"`
	Notes                *string           `json:"notes,omitempty"`
	DocumentationURL     *string           `json:"documentation_url,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	RetiredAt            *time.Time        `json:"retired_at,omitempty"`
}

type ModelVersion struct {
	VersionNumber *string `json:"version_number,omitempty"`
	GitCommitHash *string `json:"git_commit_hash,omitempty"`
	BuildNumber   *int64  `json:"build_number,omitempty"`
	IsProduction  bool    `json:"is_production"`
	IsChampion    bool    `json:"is_champion"`
	ParentModelID *string `json:"parent_model_id,omitempty"`
	Changelog     *string `json:"changelog,omitempty"`
}

type ModelTraining struct {
	TrainingRows            *int64                 `json:"training_rows,omitempty"`
	ValidationRows          *int64                 `json:"validation_rows,omitempty"`
	TestRows                *int64                 `json:"test_rows,omitempty"`
	TrainingDurationSeconds *int64                 `json:"training_duration_seconds,omitempty"`
	TrainingStart           *time.Time             `json:"training_start,omitempty"`
	TrainingEnd             *time.Time             `json:"training_end,omitempty"`
	Hyperparameters         map[string]interface{} `json:"hyperparameters,omitempty"`
	FeatureCount            *int64                 `json:"feature_count,omitempty"`
	CrossValidationFolds    *int64                 `json:"cross_validation_folds,omitempty"`
}

type ModelPerformance struct {
	Metrics              map[string]float64   `json:"metrics,omitempty"`
	ValidationScore      *float64             `json:"validation_score,omitempty"`
	TestScore            *float64             `json:"test_score,omitempty"`
	CrossValidationScore *float64             `json:"cross_validation_score,omitempty"`
	FeatureImportance    map[string]float64   `json:"feature_importance,omitempty"`
	ConfusionMatrix      [][]int64            `json:"confusion_matrix,omitempty"`
	LearningCurveData    map[string][]float64 `json:"learning_curve_data,omitempty"`
}

type ModelDeployment struct {
	DeploymentEnvironment *string  `json:"deployment_environment,omitempty"`
	EndpointURL           *string  `json:"endpoint_url,omitempty"`
	ContainerImage        *string  `json:"container_image,omitempty"`
	MaxInstances          *int64   `json:"max_instances,omitempty"`
	MinInstances          *int64   `json:"min_instances,omitempty"`
	CPURequest            *float64 `json:"cpu_request,omitempty"`
	MemoryRequestGB       *float64 `json:"memory_request_gb,omitempty"`
	GPURequired           bool     `json:"gpu_required"`
	ScalingPolicy         string   `json:"scaling_policy"`
	HealthCheckURL        *string  `json:"health_check_url,omitempty"`
}

var modelVariants = variants{
	base: modelContract,
	create: func(base *schema.Contract) *schema.Contract {
		return createVariant(base, "model_id", []string{
			"model_name", "model_type", "algorithm", "framework", "description",
			"version_info", "training", "use_case", "business_owner", "technical_owner", "tags",
		})
	},
	update: func(base *schema.Contract) *schema.Contract {
		return updateVariant(base, []string{
			"model_type", "algorithm", "framework", "description", "version_info", "training",
			"performance", "deployment", "status", "is_active", "tags", "model_artifact_path",
			"use_case", "business_owner", "technical_owner", "notes", "documentation_url",
		})
	},
}

// checkMetrics bounds the well-known metrics: ratios to [0, 1] and error
// measures to non-negative values. Other metrics pass unchecked.
func checkMetrics(v interface{}) error {
	metrics := v.(map[string]interface{})
	for _, name := range unitIntervalMetrics {
		if val, ok := metrics[name].(float64); ok && (val < 0 || val > 1) {
			return fmt.Errorf("%s must be between 0.0 and 1.0", name)
		}
	}
	for _, name := range errorMetrics {
		if val, ok := metrics[name].(float64); ok && val < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}
	return nil
}

func nonNegativeImportance(v interface{}) error {
	if v.(float64) < 0 {
		return errors.New("Feature importance values must be non-negative")
	}
	return nil
}

func modelContract() *schema.Contract {
	version := schema.NewContract("version_info",
		schema.String("version_number").Match(semverPattern),
		schema.String("git_commit_hash").Match(gitHashPattern),
		schema.Integer("build_number").AtLeast(1),
		schema.Boolean("is_production").Default(false),
		schema.Boolean("is_champion").Default(false),
		schema.UUID("parent_model_id"),
		schema.String("changelog").MaxLen(2000),
	)

	training := schema.NewContract("training",
		schema.Integer("training_rows").AtLeast(1),
		schema.Integer("validation_rows").AtLeast(1),
		schema.Integer("test_rows").AtLeast(1),
		schema.Integer("training_duration_seconds").AtLeast(1),
		schema.DateTime("training_start"),
		schema.DateTime("training_end"),
		schema.Map("hyperparameters", nil),
		schema.Integer("feature_count").AtLeast(1),
		schema.Integer("cross_validation_folds").Between(2, 20),
	).Rules(
		schema.Predicate("training_window", []string{"training_start", "training_end"}, func(_ schema.Env, r schema.Record) error {
			start, _ := r.Time("training_start")
			end, _ := r.Time("training_end")
			if !end.After(start) {
				return errors.New("Training end must be after training start")
			}
			return nil
		}),
		schema.Derivation("training_duration_backfill", []string{"training_start", "training_end"}, func(_ schema.Env, r schema.Record) schema.Record {
			if r.Has("training_duration_seconds") {
				return nil
			}
			start, _ := r.Time("training_start")
			end, _ := r.Time("training_end")
			return r.With("training_duration_seconds", int64(end.Sub(start)/time.Second))
		}),
	)

	performance := schema.NewContract("performance",
		schema.Map("metrics", schema.Number("")).Check(checkMetrics),
		schema.Number("validation_score").Between(0, 1),
		schema.Number("test_score").Between(0, 1),
		schema.Number("cross_validation_score").Between(0, 1),
		schema.Map("feature_importance", schema.Number("").Check(nonNegativeImportance)),
		schema.List("confusion_matrix", schema.List("", schema.Integer(""))),
		schema.Map("learning_curve_data", schema.List("", schema.Number(""))),
	)

	deployment := schema.NewContract("deployment",
		schema.Enum("deployment_environment", "development", "staging", "production"),
		schema.String("endpoint_url").MaxLen(500),
		schema.String("container_image").MaxLen(200),
		schema.Integer("max_instances").Between(1, 1000),
		schema.Integer("min_instances").Between(0, 100),
		schema.Number("cpu_request").Between(0.1, 32),
		schema.Number("memory_request_gb").Between(0.1, 256),
		schema.Boolean("gpu_required").Default(false),
		schema.Enum("scaling_policy", "manual", "auto", "scheduled").Default("manual"),
		schema.String("health_check_url").MaxLen(500),
	).Rules(
		schema.Predicate("instance_limits", []string{"min_instances", "max_instances"}, func(_ schema.Env, r schema.Record) error {
			lo, _ := r.Int("min_instances")
			hi, _ := r.Int("max_instances")
			if lo > hi {
				return errors.New("min_instances cannot exceed max_instances")
			}
			return nil
		}),
	)

	return schema.NewContract(string(Models),
		schema.UUID("model_id").Require(),
		schema.String("model_name").Require().MaxLen(100).Lower().Match(modelNamePattern).Check(modelNameRule.check),
		schema.Enum("model_type", modelTypes...),
		schema.Enum("algorithm", algorithms...),
		schema.Enum("framework", frameworks...),
		schema.String("description").MaxLen(1000),
		schema.Object("version_info", version),
		schema.Object("training", training),
		schema.Object("performance", performance),
		schema.Object("deployment", deployment),
		schema.Enum("status", "development", "testing", "staging", "production", "retired", "deprecated").Default("development"),
		schema.Boolean("is_active").Default(true),
		tags(),
		schema.String("model_artifact_path").MaxLen(500),
		schema.String("config_file_path").MaxLen(500),
		schema.String("requirements_file_path").MaxLen(500),
		schema.String("use_case").MaxLen(500),
		schema.String("business_owner").MaxLen(100),
		schema.String("technical_owner").MaxLen(100),
		schema.String("notes").MaxLen(2000),
		schema.String("documentation_url").MaxLen(500),
		schema.DateTime("created_at").DefaultNow(),
		schema.DateTime("updated_at").DefaultNow(),
		schema.DateTime("retired_at"),
	).Rules(
		schema.Predicate("champion_in_production", []string{"version_info"}, func(_ schema.Env, r schema.Record) error {
			if r.Bool("version_info.is_champion") && !r.Bool("version_info.is_production") {
				return errors.New("Champion models must be in production")
			}
			return nil
		}),
		requiredWhen("status", "retired", "retired_at", "retired_at must be set when status is retired"),
		schema.Predicate("retired_inactive", []string{"status", "is_active"}, func(_ schema.Env, r schema.Record) error {
			if r.String("status") == "retired" && r.Bool("is_active") {
				return errors.New("Retired models cannot be active")
			}
			return nil
		}),
		schema.Predicate("production_flag", []string{"status", "version_info"}, func(_ schema.Env, r schema.Record) error {
			if r.String("status") == "production" && !r.Bool("version_info.is_production") {
				return errors.New("Models in production status must have is_production=true")
			}
			return nil
		}),
		updatedAfterCreated,
		notBefore("retired_after_created", "retired_at", "created_at", "retired_at cannot be before created_at"),
	).Into(func() interface{} { return &Model{} })
}

// PromotionContract validates a request to promote a model to staging or
// production.
func PromotionContract() *schema.Contract {
	deployment := modelContract().Field("deployment").Contract()
	return schema.NewContract("models.promote",
		schema.Enum("target_environment", "staging", "production").Require(),
		schema.Object("deployment_config", deployment),
		schema.String("rollback_plan").MaxLen(1000),
		schema.Boolean("approval_required").Default(true),
		schema.String("approved_by").MaxLen(100),
		schema.String("notes").MaxLen(2000),
	).Rules(
		schema.Predicate("production_approval", []string{"target_environment"}, func(_ schema.Env, r schema.Record) error {
			if r.String("target_environment") == "production" && r.Bool("approval_required") && !r.Has("approved_by") {
				return errors.New("Production promotions require approval when approval_required=True")
			}
			return nil
		}),
	)
}

// TrainingEfficiency scores training throughput in [0, 1], rounded to three
// decimals. It is nil without row count and duration.
func (m *Model) TrainingEfficiency() *float64 {
	t := m.Training
	if t == nil || t.TrainingRows == nil || t.TrainingDurationSeconds == nil || *t.TrainingDurationSeconds == 0 {
		return nil
	}
	perSecond := float64(*t.TrainingRows) / float64(*t.TrainingDurationSeconds)
	score := round3(math.Min(perSecond/efficiencyBaseline, 1))
	return &score
}

// PerformanceScore averages the headline quality metrics that are present.
func (m *Model) PerformanceScore() *float64 {
	if m.Performance == nil || len(m.Performance.Metrics) == 0 {
		return nil
	}
	var sum float64
	n := 0
	for _, name := range scoredMetrics {
		if v, ok := m.Performance.Metrics[name]; ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	score := round3(sum / float64(n))
	return &score
}

// DeploymentReadiness grades a model as ready, partially_ready or not_ready.
func (m *Model) DeploymentReadiness() string {
	points := 0
	if m.Performance != nil && m.Performance.TestScore != nil && *m.Performance.TestScore > 0 {
		switch score := *m.Performance.TestScore; {
		case score > 0.8:
			points += 3
		case score > 0.6:
			points += 2
		default:
			points++
		}
	}
	if m.Deployment != nil {
		points += 2
	}
	if m.DocumentationURL != nil {
		points++
	}
	if m.VersionInfo != nil && m.VersionInfo.VersionNumber != nil {
		points++
	}

	switch {
	case points >= 6:
		return "ready"
	case points >= 4:
		return "partially_ready"
	default:
		return "not_ready"
	}
}

// ResourceRequirements summarises the declared deployment resources.
func (m *Model) ResourceRequirements() map[string]interface{} {
	out := map[string]interface{}{}
	d := m.Deployment
	if d == nil {
		return out
	}
	if d.CPURequest != nil {
		out["cpu_cores"] = *d.CPURequest
	}
	if d.MemoryRequestGB != nil {
		out["memory_gb"] = *d.MemoryRequestGB
	}
	if d.GPURequired {
		out["gpu"] = true
	}
	if d.MaxInstances != nil {
		out["max_instances"] = *d.MaxInstances
	}
	return out
}

// Computed implements Computer.
func (m *Model) Computed(now time.Time) map[string]interface{} {
	age := ageDays(m.CreatedAt, now)
	out := map[string]interface{}{
		"age_days":                  age,
		"is_recent":                 age <= 30,
		"training_efficiency_score": nil,
		"performance_score":         nil,
		"deployment_readiness":      m.DeploymentReadiness(),
		"resource_requirements":     m.ResourceRequirements(),
	}
	if s := m.TrainingEfficiency(); s != nil {
		out["training_efficiency_score"] = *s
	}
	if s := m.PerformanceScore(); s != nil {
		out["performance_score"] = *s
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
