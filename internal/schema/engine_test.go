package schema_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 9, 17, 12, 0, 0, 0, time.UTC)

func newEngine() *schema.Engine {
	return schema.NewEngine(schema.WithClock(func() time.Time { return fixedNow }))
}

type stock struct {
	OnHand    int64 `json:"on_hand"`
	Allocated int64 `json:"allocated"`
	Available int64 `json:"available"`
}

type widget struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	Price     decimal.Decimal `json:"price"`
	Stock     *stock          `json:"stock,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Expires   *time.Time      `json:"expires,omitempty"`
}

func stockContract() *schema.Contract {
	return schema.NewContract("stock",
		schema.Integer("on_hand").AtLeast(0).Default(int64(0)),
		schema.Integer("allocated").AtLeast(0).Default(int64(0)),
		schema.Integer("available").AtLeast(0).Default(int64(0)),
	).Rules(
		schema.Predicate("allocation", []string{"on_hand", "allocated"}, func(_ schema.Env, r schema.Record) error {
			onHand, _ := r.Int("on_hand")
			allocated, _ := r.Int("allocated")
			if allocated > onHand {
				return errors.New("Allocated quantity cannot exceed quantity on hand")
			}
			return nil
		}),
		schema.Derivation("available", []string{"on_hand", "allocated"}, func(_ schema.Env, r schema.Record) schema.Record {
			onHand, _ := r.Int("on_hand")
			allocated, _ := r.Int("allocated")
			if avail, _ := r.Int("available"); avail != onHand-allocated {
				return r.With("available", onHand-allocated)
			}
			return nil
		}),
	)
}

func widgetContract() *schema.Contract {
	return schema.NewContract("widget",
		schema.UUID("id").Require(),
		schema.String("name").Require().Len(3, 10).Upper(),
		schema.Enum("kind", "gear", "bolt").Default("gear"),
		schema.Decimal("price").AtLeast(0),
		schema.Object("stock", stockContract()),
		schema.List("tags", schema.String("").MaxLen(5).Lower()).MaxItems(3),
		schema.DateTime("created_at").DefaultNow(),
		schema.DateTime("expires"),
	).Into(func() interface{} { return &widget{} })
}

func TestEngine_ValidRecordDecodesIntoTypedValue(t *testing.T) {
	out, err := newEngine().Validate(widgetContract(), map[string]interface{}{
		"id":    "550e8400-e29b-41d4-a716-446655440000",
		"name":  "  sprocket ",
		"price": "19.99",
		"stock": map[string]interface{}{"on_hand": float64(25), "allocated": float64(3)},
		"tags":  []interface{}{"Red", "big"},
	})
	require.NoError(t, err)

	w, ok := out.Value.(*widget)
	require.True(t, ok)
	require.Equal(t, "SPROCKET", w.Name)
	require.Equal(t, "gear", w.Kind)
	require.True(t, decimal.RequireFromString("19.99").Equal(w.Price))
	require.Equal(t, []string{"red", "big"}, w.Tags)
	require.Equal(t, fixedNow, w.CreatedAt)
	require.Nil(t, w.Expires)
	require.NotNil(t, w.Stock)
	require.Equal(t, int64(22), w.Stock.Available, "available is derived from on_hand - allocated")
}

func TestEngine_AccumulatesFieldViolations(t *testing.T) {
	_, err := newEngine().Validate(widgetContract(), map[string]interface{}{
		"id":    "not-a-uuid",
		"name":  "ab",
		"kind":  "spring",
		"price": -1,
		"extra": true,
	})
	require.Error(t, err)

	var multi *schema.MultiValidationError
	require.ErrorAs(t, err, &multi)
	require.Len(t, multi.Errors, 5)

	fields := multi.Details()["fields"].([]string)
	require.ElementsMatch(t, []string{"id", "name", "kind", "price"}, fields)
	require.Equal(t, []string{"extra"}, multi.Errors[0].UnknownFields)
}

func TestEngine_RequiredAndNull(t *testing.T) {
	_, err := newEngine().Validate(widgetContract(), map[string]interface{}{
		"id":   nil,
		"name": "valid",
	})
	var multi *schema.MultiValidationError
	require.ErrorAs(t, err, &multi)
	require.Len(t, multi.Errors, 1)
	require.Equal(t, "id", multi.Errors[0].Field)
	require.Equal(t, "value must not be null", multi.Errors[0].Message)

	_, err = newEngine().Validate(widgetContract(), map[string]interface{}{"name": "valid"})
	require.ErrorAs(t, err, &multi)
	require.Equal(t, "field required", multi.Errors[0].Message)
}

func TestEngine_NestedViolationPaths(t *testing.T) {
	_, err := newEngine().Validate(widgetContract(), map[string]interface{}{
		"id":    "550e8400-e29b-41d4-a716-446655440000",
		"name":  "valid",
		"stock": map[string]interface{}{"on_hand": -1},
		"tags":  []interface{}{"ok", "toolong"},
	})
	var multi *schema.MultiValidationError
	require.ErrorAs(t, err, &multi)

	var fields []string
	for _, e := range multi.Errors {
		fields = append(fields, e.Field)
	}
	require.Equal(t, []string{"stock.on_hand", "tags.1"}, fields)
}

func TestEngine_InvariantRejectsAfterFieldsPass(t *testing.T) {
	_, err := newEngine().Validate(widgetContract(), map[string]interface{}{
		"id":    "550e8400-e29b-41d4-a716-446655440000",
		"name":  "valid",
		"stock": map[string]interface{}{"on_hand": 10, "allocated": 15},
	})
	var multi *schema.MultiValidationError
	require.ErrorAs(t, err, &multi)
	require.Len(t, multi.Errors, 1)
	require.Equal(t, "stock", multi.Errors[0].Field)
	require.Equal(t, "allocation", multi.Errors[0].Invariant)
	require.Equal(t, "Allocated quantity cannot exceed quantity on hand", multi.Errors[0].Message)
}

func TestEngine_InvariantsSkippedWhenInputsAbsent(t *testing.T) {
	calls := 0
	c := schema.NewContract("pair",
		schema.Integer("a"),
		schema.Integer("b"),
	).Rules(schema.Predicate("a_below_b", []string{"a", "b"}, func(_ schema.Env, r schema.Record) error {
		calls++
		return nil
	}))

	_, err := newEngine().Validate(c, map[string]interface{}{"a": 1})
	require.NoError(t, err)
	require.Zero(t, calls)

	_, err = newEngine().Validate(c, map[string]interface{}{"a": 1, "b": 2})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestEngine_InvariantsNotRunWhenFieldsFail(t *testing.T) {
	ran := false
	c := schema.NewContract("guarded",
		schema.Integer("n").Between(0, 10),
	).Rules(schema.Predicate("never", nil, func(schema.Env, schema.Record) error {
		ran = true
		return errors.New("should not run")
	}))

	_, err := newEngine().Validate(c, map[string]interface{}{"n": 11})
	require.Error(t, err)
	require.False(t, ran)
}

func TestEngine_InvariantViolationsAccumulateInOrder(t *testing.T) {
	c := schema.NewContract("ordered", schema.Integer("n")).Rules(
		schema.Predicate("first", nil, func(schema.Env, schema.Record) error { return errors.New("first") }),
		schema.Predicate("second", nil, func(schema.Env, schema.Record) error { return errors.New("second") }),
	)
	_, err := newEngine().Validate(c, map[string]interface{}{})

	var multi *schema.MultiValidationError
	require.ErrorAs(t, err, &multi)
	require.Equal(t, []string{"first", "second"}, multi.Messages())
}

func TestEngine_WarningsDoNotReject(t *testing.T) {
	c := schema.NewContract("advisory", schema.Integer("n")).Rules(
		schema.Predicate("heads_up", []string{"n"}, func(_ schema.Env, r schema.Record) error {
			n, _ := r.Int("n")
			return schema.Warn("n is %d", n)
		}),
	)
	out, err := newEngine().Validate(c, map[string]interface{}{"n": 4})
	require.NoError(t, err)
	require.Equal(t, []string{"n is 4"}, out.Warnings)
	require.Equal(t, schema.Record{"n": int64(4)}, out.Value)
}

func TestEngine_DerivationDoesNotMutateCandidate(t *testing.T) {
	stockIn := map[string]interface{}{"on_hand": 5, "allocated": 1, "available": 0}
	_, err := newEngine().Validate(stockContract(), stockIn)
	require.NoError(t, err)
	require.Equal(t, 0, stockIn["available"])
}

func TestEngine_Coercion(t *testing.T) {
	tests := []struct {
		name    string
		field   *schema.Field
		input   interface{}
		want    interface{}
		wantErr string
	}{
		{name: "integral float to integer", field: schema.Integer("v"), input: float64(3), want: int64(3)},
		{name: "numeric string to integer", field: schema.Integer("v"), input: "42", want: int64(42)},
		{name: "fractional float rejected", field: schema.Integer("v"), input: 3.5, wantErr: "value is not a valid integer"},
		{name: "bool not a number", field: schema.Number("v"), input: true, wantErr: "value is not a valid number"},
		{name: "string bool", field: schema.Boolean("v"), input: "true", want: true},
		{name: "date truncates", field: schema.Date("v"), input: "2024-03-05", want: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{name: "datetime zone normalised", field: schema.DateTime("v"), input: "2024-03-05T10:00:00+02:00", want: time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)},
		{name: "upper-case uuid rejected", field: schema.UUID("v"), input: "550E8400-E29B-41D4-A716-446655440000", wantErr: "value is not a valid uuid"},
		{name: "number is not a string", field: schema.String("v"), input: 12, wantErr: "value is not a valid string"},
		{name: "list rejects string", field: schema.List("v", nil), input: "a,b", wantErr: "value is not a valid list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := schema.NewContract("coerce", tt.field)
			out, err := newEngine().Validate(c, map[string]interface{}{"v": tt.input})
			if tt.wantErr != "" {
				var multi *schema.MultiValidationError
				require.ErrorAs(t, err, &multi)
				require.Equal(t, tt.wantErr, multi.Errors[0].Message)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, out.Record["v"])
		})
	}
}

func TestEngine_Bounds(t *testing.T) {
	c := schema.NewContract("bounds",
		schema.Number("score").Between(0, 1),
		schema.Decimal("cost").AtMost(100),
	)
	_, err := newEngine().Validate(c, map[string]interface{}{"score": 1.5, "cost": "100.01"})
	var multi *schema.MultiValidationError
	require.ErrorAs(t, err, &multi)
	require.Equal(t, []string{"score: value must be <= 1", "cost: value must be <= 100"}, multi.Messages())

	_, err = newEngine().Validate(c, map[string]interface{}{"score": 1, "cost": 100})
	require.NoError(t, err)
}

func TestEngine_CustomCheckMessage(t *testing.T) {
	c := schema.NewContract("checked",
		schema.String("code").Check(func(v interface{}) error {
			if len(v.(string)) != 5 {
				return fmt.Errorf("code must be exactly 5 characters")
			}
			return nil
		}),
	)
	_, err := newEngine().Validate(c, map[string]interface{}{"code": "P030"})
	var multi *schema.MultiValidationError
	require.ErrorAs(t, err, &multi)
	require.Equal(t, "code must be exactly 5 characters", multi.Errors[0].Message)
}

func TestContract_PartialAndPick(t *testing.T) {
	base := widgetContract()

	update := base.Partial("widget_update")
	out, err := newEngine().Validate(update, map[string]interface{}{"name": "renamed"})
	require.NoError(t, err)
	require.Equal(t, schema.Record{"name": "RENAMED"}, out.Value, "partial contracts apply no defaults")

	create := base.Pick("widget_create", "name", "kind")
	_, err = newEngine().Validate(create, map[string]interface{}{"id": "550e8400-e29b-41d4-a716-446655440000", "name": "valid"})
	var multi *schema.MultiValidationError
	require.ErrorAs(t, err, &multi)
	require.Equal(t, []string{"id"}, multi.Errors[0].UnknownFields)

	require.True(t, base.Field("id").IsRequired(), "deriving variants leaves the base contract untouched")
}

func TestRegistry_ContractForCachesBuilds(t *testing.T) {
	builds := 0
	reg := schema.NewRegistry(func(entity string, op schema.Operation) (*schema.Contract, error) {
		if entity != "widget" {
			return nil, schema.ErrNotFound
		}
		builds++
		return widgetContract(), nil
	})

	c1, err := reg.ContractFor("widget", schema.OpBase)
	require.NoError(t, err)
	c2, err := reg.ContractFor("widget", schema.OpBase)
	require.NoError(t, err)
	require.Same(t, c1, c2)
	require.Equal(t, 1, builds)

	_, err = reg.ContractFor("gadget", schema.OpBase)
	require.ErrorIs(t, err, schema.ErrNotFound)
}

func TestRegistry_TableContracts(t *testing.T) {
	doc := map[string]*schema.TableContract{
		"users": {Table: "users", RequiredFields: []string{"id"}, Fields: map[string]string{"id": "string"}, Source: "document"},
	}
	build := func(entity string, op schema.Operation) (*schema.Contract, error) {
		if entity == "widget" {
			return widgetContract(), nil
		}
		return nil, schema.ErrNotFound
	}

	reg := schema.NewRegistry(build, schema.WithTableContracts(doc))
	tc, err := reg.TableContract("users")
	require.NoError(t, err)
	require.Equal(t, "STRING", tc.ExpectedType("id"))

	_, err = reg.TableContract("widget")
	require.ErrorIs(t, err, schema.ErrNotFound, "entity fallback is opt-in")

	reg = schema.NewRegistry(build, schema.WithTableContracts(doc), schema.WithDerivedTableContracts(true))
	tc, err = reg.TableContract("widget")
	require.NoError(t, err)
	require.Equal(t, "entity", tc.Source)
	require.Equal(t, []string{"id", "name"}, tc.RequiredFields)
	require.Equal(t, schema.TypeNumeric, tc.Fields["price"])
	require.Equal(t, schema.TypeJSON, tc.Fields["stock"])
}

func TestRecord_WithCopiesNestedPath(t *testing.T) {
	orig := schema.Record{"inventory": schema.Record{"on_hand": int64(2)}}
	next := orig.With("inventory.available", int64(2))

	_, had := orig.Get("inventory.available")
	require.False(t, had)
	v, ok := next.Get("inventory.available")
	require.True(t, ok)
	require.Equal(t, int64(2), v)
}
