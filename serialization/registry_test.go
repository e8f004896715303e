package serialization

import (
	"context"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/glimte/ocpp-envelope/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func descriptor(action, version string) Descriptor {
	return Descriptor{
		Action:  action,
		Version: semver.MustParse(version),
		RequestSchema: &schema.Schema{
			Name:       action + "Request",
			Properties: map[string]*schema.PropertyDef{"type": schema.String(0)},
			Required:   []string{"type"},
		},
		ResponseSchema: &schema.Schema{
			Name:       action + "Response",
			Properties: map[string]*schema.PropertyDef{"status": schema.String(0)},
			Required:   []string{"status"},
		},
	}
}

func TestRegistry(t *testing.T) {
	t.Run("registers and looks up the newest version", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(descriptor("Reset", "2.1.0")))
		require.NoError(t, r.Register(descriptor("Reset", "1.6.0")))
		require.NoError(t, r.Register(descriptor("Reset", "2.0.1")))

		d, err := r.Lookup("Reset")

		require.NoError(t, err)
		assert.Equal(t, "Reset@2.1.0", d.Key())
		assert.True(t, r.IsRegistered("Reset"))
	})

	t.Run("rejects invalid and duplicate descriptors", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(descriptor("Reset", "2.1.0")))

		assert.Error(t, r.Register(descriptor("Reset", "2.1.0")))
		assert.Error(t, r.Register(Descriptor{Version: semver.MustParse("1.0.0")}))
		assert.Error(t, r.Register(Descriptor{Action: "Reset"}))
	})

	t.Run("unknown action fails", func(t *testing.T) {
		_, err := NewRegistry().Lookup("Nope")

		assert.Error(t, err)
	})

	t.Run("LookupVersion", func(t *testing.T) {
		r := NewRegistry()
		for _, v := range []string{"1.6.0", "2.0.1", "2.1.0"} {
			require.NoError(t, r.Register(descriptor("Reset", v)))
		}

		cases := []struct {
			requested string
			expected  string
		}{
			{"", "2.1.0"},
			{"2.0.1", "2.0.1"},
			{"1.x", "1.6.0"},
			{"~2.0", "2.0.1"},
			{"^2.0.0", "2.1.0"},
			{"< 2.0.0", "1.6.0"},
		}
		for _, tc := range cases {
			d, err := r.LookupVersion("Reset", tc.requested)
			require.NoError(t, err, tc.requested)
			assert.Equal(t, tc.expected, d.Version.String(), tc.requested)
		}

		_, err := r.LookupVersion("Reset", "3.x")
		assert.Error(t, err)
		_, err = r.LookupVersion("Reset", "not a version")
		assert.Error(t, err)
	})

	t.Run("List orders by action then version", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(descriptor("Reset", "2.1.0")))
		require.NoError(t, r.Register(descriptor("Heartbeat", "2.1.0")))
		require.NoError(t, r.Register(descriptor("Reset", "1.6.0")))

		var keys []string
		for _, d := range r.List() {
			keys = append(keys, d.Key())
		}

		assert.Equal(t, []string{"Heartbeat@2.1.0", "Reset@1.6.0", "Reset@2.1.0"}, keys)
		assert.Equal(t, []string{"Heartbeat", "Reset"}, r.Actions())
	})

	t.Run("RegisterSchemas feeds the validator", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(descriptor("Reset", "2.1.0")))
		v := schema.NewMessageValidator()

		require.NoError(t, r.RegisterSchemas(v))

		ctx := context.Background()
		assert.True(t, v.Validate(ctx, "Reset", []byte(`{"type":"Immediate"}`)).Valid)
		assert.False(t, v.Validate(ctx, "Reset", []byte(`{}`)).Valid)
		assert.True(t, v.Validate(ctx, ResponseKey("Reset"), []byte(`{"status":"Accepted"}`)).Valid)
	})

	t.Run("RegisterSchemasVersion picks the matching version", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(descriptor("Reset", "2.0.1")))
		require.NoError(t, r.Register(descriptor("Reset", "2.1.0")))

		assert.NoError(t, r.RegisterSchemasVersion(schema.NewMessageValidator(), "2.0.x"))

		err := r.RegisterSchemasVersion(schema.NewMessageValidator(), "1.6.0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no version of action Reset matches 1.6.0")
	})
}
