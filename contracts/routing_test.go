package contracts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkPath(t *testing.T) {
	t.Run("Append adds hops in order", func(t *testing.T) {
		p := NewNetworkPath().Append("cs1").Append("relay").Append("csms")

		assert.Equal(t, []NetworkingNodeID{"cs1", "relay", "csms"}, p.Hops())
		assert.Equal(t, 3, p.Len())
	})

	t.Run("Append ignores a hop equal to the last one", func(t *testing.T) {
		p := NewNetworkPath("cs1", "relay")

		same := p.Append("relay")

		assert.True(t, p.Equal(same))
		assert.Equal(t, 2, same.Len())
	})

	t.Run("Append does not mutate the receiver", func(t *testing.T) {
		p := NewNetworkPath("cs1")

		_ = p.Append("relay")

		assert.Equal(t, []NetworkingNodeID{"cs1"}, p.Hops())
	})

	t.Run("NewNetworkPath collapses adjacent duplicates only", func(t *testing.T) {
		p := NewNetworkPath("a", "a", "b", "a")

		assert.Equal(t, []NetworkingNodeID{"a", "b", "a"}, p.Hops())
	})

	t.Run("JSON round trip keeps hops", func(t *testing.T) {
		p := NewNetworkPath("cs1", "relay")

		data, err := json.Marshal(p)
		require.NoError(t, err)
		assert.JSONEq(t, `["cs1","relay"]`, string(data))

		var parsed NetworkPath
		require.NoError(t, json.Unmarshal(data, &parsed))
		assert.True(t, p.Equal(parsed))
		assert.Equal(t, p.HashCode(), parsed.HashCode())
	})

	t.Run("ParseNetworkPath names the offending hop", func(t *testing.T) {
		_, err := ParseNetworkPath(json.RawMessage(`["cs1",""]`))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "[1]")
	})
}

func TestSourceRouting(t *testing.T) {
	t.Run("Direct resolves to a single hop", func(t *testing.T) {
		r := Direct("cs1")

		assert.True(t, r.IsDirect())
		assert.Equal(t, []NetworkingNodeID{"cs1"}, r.Resolve().Hops())
		assert.Equal(t, NetworkingNodeID("cs1"), r.NextHop())
	})

	t.Run("Via resolves to the explicit path unchanged", func(t *testing.T) {
		path := NewNetworkPath("relay1", "relay2", "cs1")

		r, err := Via(path)

		require.NoError(t, err)
		assert.False(t, r.IsDirect())
		assert.Equal(t, NetworkingNodeID("cs1"), r.Destination())
		assert.Equal(t, NetworkingNodeID("relay1"), r.NextHop())
		assert.True(t, path.Equal(r.Resolve()))
	})

	t.Run("Via with one hop is direct", func(t *testing.T) {
		r, err := Via(NewNetworkPath("cs1"))

		require.NoError(t, err)
		assert.True(t, r.Equal(Direct("cs1")))
	})

	t.Run("Via rejects an empty path", func(t *testing.T) {
		_, err := Via(NewNetworkPath())

		assert.ErrorIs(t, err, ErrEmptyNetworkPath)
	})
}

func TestResponseRouting(t *testing.T) {
	t.Run("reverses the path without the responder", func(t *testing.T) {
		path := NewNetworkPath("cs1", "relay1", "relay2", "csms")

		r, err := ResponseRouting(path, "relay2")

		require.NoError(t, err)
		assert.Equal(t, []NetworkingNodeID{"relay2", "relay1", "cs1"}, r.Resolve().Hops())
		assert.Equal(t, NetworkingNodeID("cs1"), r.Destination())
		assert.Equal(t, NetworkingNodeID("relay2"), r.NextHop())
	})

	t.Run("two hop path routes directly to the requester", func(t *testing.T) {
		r, err := ResponseRouting(NewNetworkPath("cs1", "csms"), "cs1")

		require.NoError(t, err)
		assert.True(t, r.Equal(Direct("cs1")))
	})

	t.Run("single hop path routes directly to the sender", func(t *testing.T) {
		r, err := ResponseRouting(NewNetworkPath("csms"), "cs1")

		require.NoError(t, err)
		assert.True(t, r.Equal(Direct("cs1")))
	})

	t.Run("prepends the immediate sender when the path lacks it", func(t *testing.T) {
		r, err := ResponseRouting(NewNetworkPath("cs1", "csms"), "relay")

		require.NoError(t, err)
		assert.Equal(t, []NetworkingNodeID{"relay", "cs1"}, r.Resolve().Hops())
		assert.Equal(t, NetworkingNodeID("cs1"), r.Destination())
	})

	t.Run("is pure", func(t *testing.T) {
		path := NewNetworkPath("cs1", "relay", "csms")

		a, errA := ResponseRouting(path, "relay")
		b, errB := ResponseRouting(path, "relay")

		require.NoError(t, errA)
		require.NoError(t, errB)
		assert.True(t, a.Equal(b))
		assert.Equal(t, []NetworkingNodeID{"cs1", "relay", "csms"}, path.Hops())
	})

	t.Run("empty path is a formation error", func(t *testing.T) {
		_, err := ResponseRouting(NewNetworkPath(), "cs1")

		assert.ErrorIs(t, err, ErrEmptyNetworkPath)
	})

	t.Run("single hop without sender fails", func(t *testing.T) {
		_, err := ResponseRouting(NewNetworkPath("csms"), "")

		assert.ErrorIs(t, err, ErrEmptyNetworkPath)
	})
}
