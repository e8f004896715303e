package actions

import (
	"context"
	"testing"

	"github.com/glimte/ocpp-envelope/schema"
	"github.com/glimte/ocpp-envelope/serialization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *schema.MessageValidator {
	t.Helper()
	registry := serialization.NewRegistry()
	require.NoError(t, Register(registry))

	v := schema.NewMessageValidator()
	require.NoError(t, registry.RegisterSchemas(v))
	return v
}

func TestDescriptors(t *testing.T) {
	ctx := context.Background()

	t.Run("registers every action once", func(t *testing.T) {
		registry := serialization.NewRegistry()
		require.NoError(t, Register(registry))

		assert.Equal(t, []string{ActionDataTransfer, ActionHeartbeat, ActionReset}, registry.Actions())
		assert.Error(t, Register(registry))

		d, err := registry.LookupVersion(ActionReset, "2.1.x")
		require.NoError(t, err)
		assert.Equal(t, ResetRequestContext, d.RequestContext)
	})

	t.Run("valid payloads pass", func(t *testing.T) {
		v := newValidator(t)

		cases := map[string]string{
			ActionReset:                                    `{"type":"Immediate","evseId":1}`,
			serialization.ResponseKey(ActionReset):         `{"status":"Scheduled","statusInfo":{"reasonCode":"Busy"}}`,
			ActionHeartbeat:                                `{}`,
			serialization.ResponseKey(ActionHeartbeat):     `{"currentTime":"2024-05-01T12:00:00Z"}`,
			ActionDataTransfer:                             `{"vendorId":"v","data":[1,{"free":"form"}]}`,
			serialization.ResponseKey(ActionDataTransfer): `{"status":"UnknownVendorId","data":{"x":{"y":1}}}`,
		}
		for action, payload := range cases {
			result := v.Validate(ctx, action, []byte(payload))
			assert.True(t, result.Valid, "%s: %s", action, result.Summary())
		}
	})

	t.Run("unknown fields are rejected outside customData", func(t *testing.T) {
		v := newValidator(t)

		result := v.Validate(ctx, ActionReset, []byte(`{"type":"Immediate","extra":1}`))
		assert.False(t, result.Valid)

		result = v.Validate(ctx, ActionReset, []byte(`{"type":"Immediate","customData":{"vendorId":"v","extra":1}}`))
		assert.True(t, result.Valid, result.Summary())
	})

	t.Run("enum and bounds are enforced", func(t *testing.T) {
		v := newValidator(t)

		assert.False(t, v.Validate(ctx, ActionReset, []byte(`{"type":"Later"}`)).Valid)
		assert.False(t, v.Validate(ctx, ActionReset, []byte(`{"type":"Immediate","evseId":-1}`)).Valid)
		assert.False(t, v.Validate(ctx, ActionDataTransfer, []byte(`{"vendorId":""}`)).Valid)
		assert.False(t, v.Validate(ctx, serialization.ResponseKey(ActionHeartbeat), []byte(`{"currentTime":"noon"}`)).Valid)
	})

	t.Run("empty signature list is rejected", func(t *testing.T) {
		v := newValidator(t)

		result := v.Validate(ctx, ActionHeartbeat, []byte(`{"signatures":[]}`))

		assert.False(t, result.Valid)
	})
}
