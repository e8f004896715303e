package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/google/uuid"
)

// ValidationResult represents the result of payload validation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Result maps the validation outcome onto a message result
func (r *ValidationResult) Result() contracts.Result {
	if r.Valid {
		return contracts.OK()
	}
	return contracts.FormationViolationResult(r.Summary())
}

// Summary joins the error descriptions
func (r *ValidationResult) Summary() string {
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Err returns nil for a valid payload and the first error otherwise
func (r *ValidationResult) Err() error {
	if r.Valid || len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

func (r *ValidationResult) add(e ValidationError) {
	r.Valid = false
	r.Errors = append(r.Errors, e)
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface for ValidationError
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return fmt.Sprintf("validation error: %s", ve.Message)
	}
	return fmt.Sprintf("validation error in field '%s': %s", ve.Field, ve.Message)
}

// ValidationRule defines a custom validation rule
type ValidationRule interface {
	Validate(ctx context.Context, field string, value interface{}) *ValidationError
	GetName() string
}

// ValidationRuleFunc is a function adapter for ValidationRule
type ValidationRuleFunc func(ctx context.Context, field string, value interface{}) *ValidationError

func (f ValidationRuleFunc) Validate(ctx context.Context, field string, value interface{}) *ValidationError {
	return f(ctx, field, value)
}

func (f ValidationRuleFunc) GetName() string {
	return "anonymous"
}

type namedRule struct {
	name string
	ValidationRuleFunc
}

func (r namedRule) GetName() string {
	return r.name
}

// NewRule names a rule function so it can be registered and referenced from PropertyDef.Rules
func NewRule(name string, fn ValidationRuleFunc) ValidationRule {
	return namedRule{name: name, ValidationRuleFunc: fn}
}

// Schema describes one payload: a JSON object with typed properties
type Schema struct {
	Name        string                  `json:"name"`
	Version     string                  `json:"version"`
	ID          string                  `json:"id,omitempty"`
	Description string                  `json:"description,omitempty"`
	Properties  map[string]*PropertyDef `json:"properties,omitempty"`
	Required    []string                `json:"required,omitempty"`
	// AdditionalProperties permits fields the schema does not name
	AdditionalProperties bool             `json:"additionalProperties,omitempty"`
	Rules                []ValidationRule `json:"-"`
}

// PropertyDef defines validation rules for a payload property
type PropertyDef struct {
	Type        string                  `json:"type"`
	Format      string                  `json:"format,omitempty"`
	Pattern     string                  `json:"pattern,omitempty"`
	MinLength   *int                    `json:"minLength,omitempty"`
	MaxLength   *int                    `json:"maxLength,omitempty"`
	Minimum     *float64                `json:"minimum,omitempty"`
	Maximum     *float64                `json:"maximum,omitempty"`
	MinItems    *int                    `json:"minItems,omitempty"`
	MaxItems    *int                    `json:"maxItems,omitempty"`
	Enum        []interface{}           `json:"enum,omitempty"`
	Description string                  `json:"description,omitempty"`
	Items       *PropertyDef            `json:"items,omitempty"`
	Properties  map[string]*PropertyDef `json:"properties,omitempty"`
	Required    []string                `json:"required,omitempty"`
	// AdditionalProperties permits fields the object does not name
	AdditionalProperties bool `json:"additionalProperties,omitempty"`
	// Rules names registered validation rules applied to the value
	Rules []string `json:"-"`
}

// MessageValidator validates raw payloads against schemas registered per action
type MessageValidator struct {
	schemas  map[string]*Schema
	rules    map[string]ValidationRule
	patterns map[string]*regexp.Regexp
	config   *ValidatorConfig
	mu       sync.RWMutex
}

// ValidatorOption configures the message validator
type ValidatorOption func(*ValidatorConfig)

// ValidatorConfig holds configuration for the validator
type ValidatorConfig struct {
	// StrictMode rejects fields a schema does not name, except inside customData
	StrictMode bool
	// RequireSchema fails payloads of actions without a registered schema
	RequireSchema bool
}

// WithStrictMode enables strict validation mode
func WithStrictMode(strict bool) ValidatorOption {
	return func(c *ValidatorConfig) {
		c.StrictMode = strict
	}
}

// WithRequireSchema fails validation for actions without a schema
func WithRequireSchema(require bool) ValidatorOption {
	return func(c *ValidatorConfig) {
		c.RequireSchema = require
	}
}

// NewMessageValidator creates a new message validator. Strict mode is on by default.
func NewMessageValidator(opts ...ValidatorOption) *MessageValidator {
	config := &ValidatorConfig{
		StrictMode: true,
	}

	for _, opt := range opts {
		opt(config)
	}

	validator := &MessageValidator{
		schemas:  make(map[string]*Schema),
		rules:    make(map[string]ValidationRule),
		patterns: make(map[string]*regexp.Regexp),
		config:   config,
	}

	validator.registerBuiltInRules()

	return validator
}

// RegisterSchema registers a schema for an action's payload
func (v *MessageValidator) RegisterSchema(action string, schema *Schema) error {
	if action == "" {
		return fmt.Errorf("action cannot be empty")
	}
	if schema == nil {
		return fmt.Errorf("schema cannot be nil")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.schemas[action] = schema
	return nil
}

// RegisterRule registers a custom validation rule
func (v *MessageValidator) RegisterRule(rule ValidationRule) error {
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.rules[rule.GetName()] = rule
	return nil
}

// GetSchema retrieves a schema by action
func (v *MessageValidator) GetSchema(action string) (*Schema, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	schema, exists := v.schemas[action]
	if !exists {
		return nil, fmt.Errorf("schema not found for action: %s", action)
	}

	return schema, nil
}

// Validate validates a payload against the schema registered for action.
// Actions without a schema pass unless RequireSchema is set.
func (v *MessageValidator) Validate(ctx context.Context, action string, payload []byte) *ValidationResult {
	schema, err := v.GetSchema(action)
	if err != nil {
		if v.config.RequireSchema {
			return &ValidationResult{Errors: []ValidationError{{
				Message: err.Error(),
				Code:    "SCHEMA_NOT_FOUND",
			}}}
		}
		return &ValidationResult{Valid: true}
	}

	return v.ValidateWithSchema(ctx, payload, schema)
}

// ValidateWithSchema validates a payload against a specific schema
func (v *MessageValidator) ValidateWithSchema(ctx context.Context, payload []byte, schema *Schema) *ValidationResult {
	result := &ValidationResult{
		Valid:  true,
		Errors: make([]ValidationError, 0),
	}

	data, err := decodePayload(payload)
	if err != nil {
		result.add(ValidationError{
			Message: err.Error(),
			Code:    "INVALID_JSON",
		})
		return result
	}

	obj, ok := data.(map[string]interface{})
	if !ok {
		result.add(ValidationError{
			Message: "payload must be a JSON object",
			Code:    "TYPE_MISMATCH",
		})
		return result
	}

	v.validateObject(ctx, "", obj, schema.Properties, schema.Required, schema.AdditionalProperties, result)

	for _, rule := range schema.Rules {
		if validationErr := rule.Validate(ctx, "", obj); validationErr != nil {
			result.add(*validationErr)
		}
	}

	return result
}

// validateObject validates an object against its properties
func (v *MessageValidator) validateObject(ctx context.Context, fieldPath string, data map[string]interface{}, properties map[string]*PropertyDef, required []string, additional bool, result *ValidationResult) {
	for _, name := range required {
		if value, exists := data[name]; !exists || value == nil {
			result.add(ValidationError{
				Field:   v.buildFieldPath(fieldPath, name),
				Message: "required field is missing",
				Code:    "REQUIRED_FIELD_MISSING",
			})
		}
	}

	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		currentPath := v.buildFieldPath(fieldPath, name)

		propDef, exists := properties[name]
		if !exists {
			if v.config.StrictMode && !additional && name != contracts.ContextField {
				result.add(ValidationError{
					Field:   currentPath,
					Message: "field is not allowed",
					Code:    "ADDITIONAL_PROPERTY",
				})
			}
			continue
		}

		v.validateProperty(ctx, currentPath, data[name], propDef, name == contracts.CustomDataField, result)
	}
}

// validateProperty validates a single property against its definition
func (v *MessageValidator) validateProperty(ctx context.Context, fieldPath string, value interface{}, propDef *PropertyDef, open bool, result *ValidationResult) {
	if value == nil {
		return
	}

	if propDef.Type != "" && !v.validateType(value, propDef.Type) {
		result.add(ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("expected type %s, got %s", propDef.Type, jsonTypeName(value)),
			Code:    "TYPE_MISMATCH",
			Value:   value,
		})
		return
	}

	switch typed := value.(type) {
	case string:
		v.validateString(fieldPath, typed, propDef, result)
	case json.Number:
		v.validateNumber(fieldPath, typed, propDef, result)
	case []interface{}:
		v.validateArray(ctx, fieldPath, typed, propDef, result)
	case map[string]interface{}:
		if propDef.Properties != nil || propDef.Required != nil {
			v.validateObject(ctx, fieldPath, typed, propDef.Properties, propDef.Required, open || propDef.AdditionalProperties, result)
		}
	}

	if len(propDef.Enum) > 0 {
		v.validateEnum(fieldPath, value, propDef.Enum, result)
	}

	if propDef.Format != "" {
		v.validateFormat(fieldPath, value, propDef.Format, result)
	}

	if propDef.Pattern != "" {
		v.validatePattern(fieldPath, value, propDef.Pattern, result)
	}

	for _, name := range propDef.Rules {
		v.mu.RLock()
		rule, exists := v.rules[name]
		v.mu.RUnlock()
		if !exists {
			result.add(ValidationError{
				Field:   fieldPath,
				Message: fmt.Sprintf("unknown validation rule: %s", name),
				Code:    "UNKNOWN_RULE",
			})
			continue
		}
		if validationErr := rule.Validate(ctx, fieldPath, value); validationErr != nil {
			result.add(*validationErr)
		}
	}
}

// validateType checks if value matches expected type
func (v *MessageValidator) validateType(value interface{}, expectedType string) bool {
	switch expectedType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		_, ok := value.(json.Number)
		return ok
	case "integer":
		n, ok := value.(json.Number)
		if !ok {
			return false
		}
		_, err := n.Int64()
		return err == nil
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]interface{})
		return ok
	case "object":
		_, ok := value.(map[string]interface{})
		return ok
	default:
		return true
	}
}

// validateString validates string properties. Lengths count characters, not bytes.
func (v *MessageValidator) validateString(fieldPath, value string, propDef *PropertyDef, result *ValidationResult) {
	length := utf8.RuneCountInString(value)

	if propDef.MinLength != nil && length < *propDef.MinLength {
		result.add(ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("string length %d is less than minimum %d", length, *propDef.MinLength),
			Code:    "MIN_LENGTH_VIOLATION",
			Value:   value,
		})
	}

	if propDef.MaxLength != nil && length > *propDef.MaxLength {
		result.add(ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("string length %d exceeds maximum %d", length, *propDef.MaxLength),
			Code:    "MAX_LENGTH_VIOLATION",
			Value:   value,
		})
	}
}

// validateNumber validates numeric properties
func (v *MessageValidator) validateNumber(fieldPath string, value json.Number, propDef *PropertyDef, result *ValidationResult) {
	num, err := value.Float64()
	if err != nil {
		return
	}

	if propDef.Minimum != nil && num < *propDef.Minimum {
		result.add(ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("value %s is less than minimum %g", value, *propDef.Minimum),
			Code:    "MINIMUM_VIOLATION",
			Value:   value,
		})
	}

	if propDef.Maximum != nil && num > *propDef.Maximum {
		result.add(ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("value %s exceeds maximum %g", value, *propDef.Maximum),
			Code:    "MAXIMUM_VIOLATION",
			Value:   value,
		})
	}
}

// validateArray validates array properties
func (v *MessageValidator) validateArray(ctx context.Context, fieldPath string, value []interface{}, propDef *PropertyDef, result *ValidationResult) {
	if propDef.MinItems != nil && len(value) < *propDef.MinItems {
		result.add(ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("array has %d items, minimum is %d", len(value), *propDef.MinItems),
			Code:    "MIN_ITEMS_VIOLATION",
		})
	}

	if propDef.MaxItems != nil && len(value) > *propDef.MaxItems {
		result.add(ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("array has %d items, maximum is %d", len(value), *propDef.MaxItems),
			Code:    "MAX_ITEMS_VIOLATION",
		})
	}

	if propDef.Items != nil {
		for i, item := range value {
			itemPath := fmt.Sprintf("%s[%d]", fieldPath, i)
			v.validateProperty(ctx, itemPath, item, propDef.Items, false, result)
		}
	}
}

// validateEnum validates enum constraints
func (v *MessageValidator) validateEnum(fieldPath string, value interface{}, enum []interface{}, result *ValidationResult) {
	for _, enumValue := range enum {
		if reflect.DeepEqual(value, enumValue) {
			return
		}
	}

	result.add(ValidationError{
		Field:   fieldPath,
		Message: fmt.Sprintf("value is not in allowed enum values: %v", enum),
		Code:    "ENUM_VIOLATION",
		Value:   value,
	})
}

// validateFormat validates format constraints
func (v *MessageValidator) validateFormat(fieldPath string, value interface{}, format string, result *ValidationResult) {
	str, ok := value.(string)
	if !ok {
		return
	}

	var isValid bool
	var errorMsg string

	switch format {
	case "uri":
		isValid, errorMsg = v.validateURI(str)
	case "uuid":
		isValid, errorMsg = v.validateUUID(str)
	case "date-time":
		isValid, errorMsg = v.validateDateTime(str)
	default:
		return
	}

	if !isValid {
		result.add(ValidationError{
			Field:   fieldPath,
			Message: errorMsg,
			Code:    "FORMAT_VIOLATION",
			Value:   value,
		})
	}
}

// validatePattern validates regex pattern constraints
func (v *MessageValidator) validatePattern(fieldPath string, value interface{}, pattern string, result *ValidationResult) {
	str, ok := value.(string)
	if !ok {
		return
	}

	regex, err := v.compile(pattern)
	if err != nil {
		result.add(ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("invalid regex pattern: %s", pattern),
			Code:    "INVALID_PATTERN",
			Value:   value,
		})
		return
	}

	if !regex.MatchString(str) {
		result.add(ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("value does not match pattern: %s", pattern),
			Code:    "PATTERN_VIOLATION",
			Value:   value,
		})
	}
}

func (v *MessageValidator) compile(pattern string) (*regexp.Regexp, error) {
	v.mu.RLock()
	regex, exists := v.patterns[pattern]
	v.mu.RUnlock()
	if exists {
		return regex, nil
	}

	regex, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.patterns[pattern] = regex
	v.mu.Unlock()
	return regex, nil
}

func (v *MessageValidator) validateURI(value string) (bool, string) {
	if !strings.Contains(value, "://") {
		return false, "invalid URI format"
	}
	return true, ""
}

func (v *MessageValidator) validateUUID(value string) (bool, string) {
	if _, err := uuid.Parse(value); err != nil {
		return false, "invalid UUID format"
	}
	return true, ""
}

func (v *MessageValidator) validateDateTime(value string) (bool, string) {
	if _, err := time.Parse(time.RFC3339Nano, value); err != nil {
		return false, "invalid date-time format (expected RFC 3339)"
	}
	return true, ""
}

// buildFieldPath constructs a field path for error reporting
func (v *MessageValidator) buildFieldPath(parent, field string) string {
	if parent == "" {
		return field
	}
	return fmt.Sprintf("%s.%s", parent, field)
}

// decodePayload keeps numbers as json.Number so integers are checked exactly
func decodePayload(payload []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var data interface{}
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid JSON: trailing data after payload")
	}
	return data, nil
}

func jsonTypeName(value interface{}) string {
	switch value.(type) {
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// registerBuiltInRules registers built-in validation rules
func (v *MessageValidator) registerBuiltInRules() {
	v.rules["non-empty"] = NewRule("non-empty", func(ctx context.Context, field string, value interface{}) *ValidationError {
		if str, ok := value.(string); ok && strings.TrimSpace(str) == "" {
			return &ValidationError{
				Field:   field,
				Message: "value cannot be empty",
				Code:    "NON_EMPTY_VIOLATION",
				Value:   value,
			}
		}
		return nil
	})

	v.rules["positive"] = NewRule("positive", func(ctx context.Context, field string, value interface{}) *ValidationError {
		if num, ok := value.(json.Number); ok {
			if f, err := num.Float64(); err == nil && f <= 0 {
				return &ValidationError{
					Field:   field,
					Message: "value must be positive",
					Code:    "POSITIVE_VIOLATION",
					Value:   value,
				}
			}
		}
		return nil
	})
}
