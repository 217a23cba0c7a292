package compiler

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/rowbridge/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrUnsupportedType  = "E100" // unsupported value passed to Validate
	ErrFieldInvalid     = "E101" // struct tag rule failed
	ErrDuplicateColumn  = "E102" // two columns share a name
	ErrReservedColumn   = "E103" // column shadows _id or _write_date
	ErrDuplicateModel   = "E104" // two models share a name
	ErrDuplicateTable   = "E105" // two models or link tables share a table name
	ErrRelationMismatch = "E106" // relation kind disagrees with column type
)

// ValidationError represents a model validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// newValidator wraps the go-playground validator with JSON field names and
// the identifier rule used for table and column names.
func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierPattern.MatchString(fl.Field().String())
	})

	return v
}

var structValidator = newValidator()

// Validate validates compiled model definitions.
// Returns all errors found (does not fail-fast).
// Accepts a single definition or a slice of them; slices are also checked
// for duplicate model and table names.
func Validate(v any) []ValidationError {
	switch defs := v.(type) {
	case *ir.ModelDefinition:
		return validateModel(defs)
	case ir.ModelDefinition:
		return validateModel(&defs)
	case []ir.ModelDefinition:
		return validateModels(defs)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

// validateModels validates each model plus cross-model uniqueness.
func validateModels(defs []ir.ModelDefinition) []ValidationError {
	var errs []ValidationError
	names := make(map[string]bool)
	tables := make(map[string]string)

	claimTable := func(table, owner string) {
		if prev, ok := tables[table]; ok {
			errs = append(errs, ValidationError{
				Field:   owner,
				Message: fmt.Sprintf("table %q already used by %s", table, prev),
				Code:    ErrDuplicateTable,
			})
			return
		}
		tables[table] = owner
	}

	for i := range defs {
		def := &defs[i]
		errs = append(errs, validateModel(def)...)

		if names[def.Name] {
			errs = append(errs, ValidationError{
				Field:   def.Name,
				Message: "model defined more than once",
				Code:    ErrDuplicateModel,
			})
			continue
		}
		names[def.Name] = true

		claimTable(def.Table, def.Name)
		for _, col := range def.LinkColumns() {
			claimTable(col.LinkTable, def.Name+"."+col.Name)
		}
	}

	return errs
}

// validateModel validates a single model definition.
func validateModel(def *ir.ModelDefinition) []ValidationError {
	var errs []ValidationError

	if err := structValidator.Struct(def); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, ValidationError{
					Field:   fieldPath(def.Name, fe.Namespace()),
					Message: msgForTag(fe),
					Code:    ErrFieldInvalid,
				})
			}
		} else {
			errs = append(errs, ValidationError{Field: def.Name, Message: err.Error(), Code: ErrFieldInvalid})
		}
	}

	seen := make(map[string]bool)
	for _, col := range def.Columns {
		path := def.Name + ".columns." + col.Name

		if col.Name == ir.RowIDColumn || col.Name == ir.WriteDateColumn {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: "column name is reserved",
				Code:    ErrReservedColumn,
			})
		}
		if seen[col.Name] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: "duplicate column name",
				Code:    ErrDuplicateColumn,
			})
		}
		seen[col.Name] = true

		if col.Relation != col.Type.Relation() {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("relation %s does not match type %s", col.Relation, col.Type),
				Code:    ErrRelationMismatch,
			})
		}
	}

	return errs
}

// fieldPath turns "ModelDefinition.columns[1].name" into "res.partner.columns[1].name".
func fieldPath(model, namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return model + "." + rest
	}
	return model
}

// msgForTag renders a readable message for a failed rule.
func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return fmt.Sprintf("is required when %s", fe.Param())
	case "identifier":
		return fmt.Sprintf("%q is not a valid SQL identifier", fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
