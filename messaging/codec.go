package messaging

import (
	"context"
	"fmt"

	"github.com/glimte/ocpp-envelope/contracts"
)

// EnvelopeParsers are the hooks applied to the structured entities every payload may carry
type EnvelopeParsers struct {
	CustomData contracts.CustomParser[contracts.CustomData]
	Signature  contracts.CustomParser[contracts.Signature]
	StatusInfo contracts.CustomParser[contracts.StatusInfo]
}

// EnvelopeSerializers are the serialization counterparts of EnvelopeParsers
type EnvelopeSerializers struct {
	CustomData contracts.CustomSerializer[contracts.CustomData]
	Signature  contracts.CustomSerializer[contracts.Signature]
	StatusInfo contracts.CustomSerializer[contracts.StatusInfo]
}

// ParseOptions configures parsing of a concrete message type T
type ParseOptions[T any] struct {
	// CustomParser runs after built-in parsing succeeded and may replace the result
	CustomParser contracts.CustomParser[T]
	Entities     EnvelopeParsers
}

// ParseOption configures ParseOptions
type ParseOption[T any] func(*ParseOptions[T])

// WithCustomParser installs the message level parse hook
func WithCustomParser[T any](fn contracts.CustomParser[T]) ParseOption[T] {
	return func(o *ParseOptions[T]) {
		o.CustomParser = fn
	}
}

// WithCustomDataParser installs the customData parse hook
func WithCustomDataParser[T any](fn contracts.CustomParser[contracts.CustomData]) ParseOption[T] {
	return func(o *ParseOptions[T]) {
		o.Entities.CustomData = fn
	}
}

// WithSignatureParser installs the signature parse hook
func WithSignatureParser[T any](fn contracts.CustomParser[contracts.Signature]) ParseOption[T] {
	return func(o *ParseOptions[T]) {
		o.Entities.Signature = fn
	}
}

// WithStatusInfoParser installs the statusInfo parse hook
func WithStatusInfoParser[T any](fn contracts.CustomParser[contracts.StatusInfo]) ParseOption[T] {
	return func(o *ParseOptions[T]) {
		o.Entities.StatusInfo = fn
	}
}

// SerializeOptions configures serialization of a concrete message type T
type SerializeOptions[T any] struct {
	// IncludeContext emits the JSON-LD @context as the first field
	IncludeContext bool
	// CustomSerializer runs after built-in serialization and may replace the object
	CustomSerializer contracts.CustomSerializer[T]
	Entities         EnvelopeSerializers
}

// SerializeOption configures SerializeOptions
type SerializeOption[T any] func(*SerializeOptions[T])

// WithContext emits the JSON-LD @context
func WithContext[T any]() SerializeOption[T] {
	return func(o *SerializeOptions[T]) {
		o.IncludeContext = true
	}
}

// WithCustomSerializer installs the message level serialization hook
func WithCustomSerializer[T any](fn contracts.CustomSerializer[T]) SerializeOption[T] {
	return func(o *SerializeOptions[T]) {
		o.CustomSerializer = fn
	}
}

// WithCustomDataSerializer installs the customData serialization hook
func WithCustomDataSerializer[T any](fn contracts.CustomSerializer[contracts.CustomData]) SerializeOption[T] {
	return func(o *SerializeOptions[T]) {
		o.Entities.CustomData = fn
	}
}

// WithSignatureSerializer installs the signature serialization hook
func WithSignatureSerializer[T any](fn contracts.CustomSerializer[contracts.Signature]) SerializeOption[T] {
	return func(o *SerializeOptions[T]) {
		o.Entities.Signature = fn
	}
}

// WithStatusInfoSerializer installs the statusInfo serialization hook
func WithStatusInfoSerializer[T any](fn contracts.CustomSerializer[contracts.StatusInfo]) SerializeOption[T] {
	return func(o *SerializeOptions[T]) {
		o.Entities.StatusInfo = fn
	}
}

// ParseFunc holds the built-in field parsing of a concrete message type
type ParseFunc[T any] func(ctx context.Context, obj contracts.JSONObject, entities EnvelopeParsers) (T, error)

// SerializeFunc holds the built-in field serialization of a concrete message type
type SerializeFunc[T any] func(value T, entities EnvelopeSerializers) *contracts.JSONWriter

// TryParse decodes data into T: built-in parsing first, then the custom parser.
// On failure no partial value is returned and the error names the offending field.
func TryParse[T any](ctx context.Context, data []byte, parse ParseFunc[T], opts ...ParseOption[T]) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	o := &ParseOptions[T]{}
	for _, opt := range opts {
		opt(o)
	}

	obj, err := contracts.DecodeJSONObject(data)
	if err != nil {
		return zero, err
	}

	value, err := parse(ctx, obj, o.Entities)
	if err != nil {
		return zero, err
	}

	if o.CustomParser != nil {
		value, err = o.CustomParser(obj, value)
		if err != nil {
			return zero, fmt.Errorf("custom parser failed: %w", err)
		}
	}

	return value, nil
}

// MustParse is TryParse for call sites that prefer a panic over an error value
func MustParse[T any](ctx context.Context, data []byte, parse ParseFunc[T], opts ...ParseOption[T]) T {
	value, err := TryParse(ctx, data, parse, opts...)
	if err != nil {
		panic(err)
	}
	return value
}

// Serialize encodes value: built-in serialization, the optional @context, then the custom serializer
func Serialize[T any](value T, jsonld contracts.JSONLDContext, serialize SerializeFunc[T], opts ...SerializeOption[T]) *contracts.JSONWriter {
	o := &SerializeOptions[T]{}
	for _, opt := range opts {
		opt(o)
	}

	w := serialize(value, o.Entities)

	includeContext := o.IncludeContext
	if he, ok := any(value).(HasEnvelope); ok && he.Envelope() != nil && he.Envelope().Format == FormatJSONLD {
		includeContext = true
	}
	if includeContext && jsonld != "" {
		w.Prepend(contracts.ContextField, jsonld)
	}

	if o.CustomSerializer != nil {
		if replaced := o.CustomSerializer(value, w); replaced != nil {
			w = replaced
		}
	}
	return w
}
