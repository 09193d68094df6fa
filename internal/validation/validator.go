// =============================================================================
// Sales Analytics - Validation Engine
// =============================================================================
//
// This module validates parsed transactions and applies the optional
// region / amount filters chosen by the user.
//
// VALIDATION STRATEGY:
//   1. Field-level: struct tags on types.Transaction (required fields, id
//      prefixes, ISO date, known region, non-negative quantity)
//   2. Value-level: non-negative unit price (decimal, checked in code)
//   3. Filtering: applied only to records that passed validation
//
// ERROR HANDLING:
//   - Errors are collected, not thrown
//   - Each error includes the record line number, field and value
//   - A rejected record never stops the batch
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/sales-analytics/internal/types"
	"github.com/go-playground/validator/v10"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation failure.
type ValidationError struct {
	// TransactionID is the id of the rejected record (may be empty).
	TransactionID string

	// LineNumber is the source line of the record.
	LineNumber int

	// Field is the name of the field that failed validation.
	Field string

	// Value is the actual value that failed validation.
	Value string

	// Rule is the validation rule that was violated.
	Rule string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("line %d, transaction '%s', field '%s': failed %s (value: '%s')",
		e.LineNumber, e.TransactionID, e.Field, e.Rule, e.Value)
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks transactions for structural validity.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the sales-specific rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// "region" accepts any case-insensitive member of types.Regions.
	_ = v.RegisterValidation("region", func(fl validator.FieldLevel) bool {
		_, ok := types.CanonicalRegion(fl.Field().String())
		return ok
	})

	return &Validator{validate: v}
}

// Check validates a single record and returns every failure found.
func (v *Validator) Check(record types.Transaction) []*ValidationError {
	var errs []*ValidationError

	if err := v.validate.Struct(record); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*ValidationError{{
				TransactionID: record.TransactionID,
				LineNumber:    record.LineNumber,
				Rule:          err.Error(),
			}}
		}
		for _, fe := range fieldErrs {
			errs = append(errs, &ValidationError{
				TransactionID: record.TransactionID,
				LineNumber:    record.LineNumber,
				Field:         fe.Field(),
				Value:         fmt.Sprintf("%v", fe.Value()),
				Rule:          ruleName(fe),
			})
		}
	}

	if record.UnitPrice.IsNegative() {
		errs = append(errs, &ValidationError{
			TransactionID: record.TransactionID,
			LineNumber:    record.LineNumber,
			Field:         "UnitPrice",
			Value:         record.UnitPrice.String(),
			Rule:          "gte=0",
		})
	}

	return errs
}

func ruleName(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// Validate returns the records that pass every check, in input order, and the
// number rejected.
func (v *Validator) Validate(records []types.Transaction) ([]types.Transaction, int) {
	valid, _ := v.ValidateWithErrors(records)
	return valid, len(records) - len(valid)
}

// ValidateWithErrors is Validate plus the failures of each rejected record.
func (v *Validator) ValidateWithErrors(records []types.Transaction) ([]types.Transaction, []*ValidationError) {
	valid := make([]types.Transaction, 0, len(records))
	var errs []*ValidationError

	for _, record := range records {
		recordErrs := v.Check(record)
		if len(recordErrs) > 0 {
			errs = append(errs, recordErrs...)
			continue
		}
		valid = append(valid, record)
	}

	return valid, errs
}

// defaultValidator backs the package-level helpers.
var defaultValidator = NewValidator()

// Validate validates records with the default rules.
//
// RETURNS:
//   - The validated subsequence (input order preserved).
//   - The number of rejected records.
func Validate(records []types.Transaction) ([]types.Transaction, int) {
	return defaultValidator.Validate(records)
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d error(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}
