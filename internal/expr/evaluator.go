package expr

import (
	"fmt"

	"github.com/jmespath/go-jmespath"
	"go.uber.org/zap"
)

// Evaluator runs validated group definitions against user attributes.
// Evaluation is total: any internal failure reads as "not a member".
type Evaluator struct {
	log *zap.Logger
}

func NewEvaluator(log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{log: log.Named("expr")}
}

// Includes reports whether the attribute document satisfies the definition.
// It never returns an error; malformed definitions or type mismatches at
// evaluation time are logged and read as false.
func (e *Evaluator) Includes(definition string, attributes map[string]any) (included bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("group definition evaluation panicked",
				zap.String("definition", definition),
				zap.Any("panic", r),
			)
			included = false
		}
	}()

	doc := NormalizeAttributes(attributes)
	result, err := jmespath.Search(definition, doc)
	if err != nil {
		e.log.Warn("group definition evaluation failed",
			zap.String("definition", definition),
			zap.Error(err),
		)
		return false
	}

	return Truthy(result)
}

// NormalizeAttributes coerces attribute values to the scalar set the language
// understands: string, float64, bool or nil. Anything else is stringified.
func NormalizeAttributes(attributes map[string]any) map[string]any {
	doc := make(map[string]any, len(attributes))
	for key, value := range attributes {
		doc[key] = normalizeValue(value)
	}
	return doc
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case bool:
		return v
	case string:
		return v
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	default:
		return fmt.Sprint(v)
	}
}

// Truthy coerces a query result to the membership boolean: booleans pass
// through, absent values and empty strings/sequences/objects are false, zero
// is false, everything else is true.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
