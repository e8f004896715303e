// Package schema validates OCPP payloads before they are parsed.
//
// Schemas are registered per action. Validation is strict: fields a schema does
// not name are rejected, except inside customData objects, which vendors may
// extend freely. A failed validation maps onto a FormationViolation result.
//
// Basic usage:
//
//	validator := schema.NewMessageValidator()
//	err := validator.RegisterSchema("Reset", resetSchema)
//
//	result := validator.Validate(ctx, "Reset", payload)
//	if !result.Valid {
//		return result.Result()
//	}
//
// JSONSchemaGenerator renders registered schemas as draft-07 documents.
package schema
