package contracts

import (
	"encoding/json"
	"strings"

	"github.com/glimte/ocpp-envelope/internal/hashing"
)

// NetworkPath records the nodes a message passed through, oldest first
type NetworkPath struct {
	hops []NetworkingNodeID
}

// NewNetworkPath creates a path from hops, collapsing adjacent duplicates
func NewNetworkPath(hops ...NetworkingNodeID) NetworkPath {
	var p NetworkPath
	for _, h := range hops {
		p = p.Append(h)
	}
	return p
}

// ParseNetworkPath parses a JSON array of node ids
func ParseNetworkPath(raw json.RawMessage) (NetworkPath, error) {
	ids, err := ParseArray(func(r json.RawMessage) (NetworkingNodeID, error) {
		s, err := ParseString(r)
		if err != nil {
			return "", err
		}
		return ParseNetworkingNodeID(s)
	})(raw)
	if err != nil {
		return NetworkPath{}, err
	}
	return NetworkPath{hops: ids}, nil
}

// Append returns a new path with hop added. Appending the hop that already
// ends the path returns the path unchanged.
func (p NetworkPath) Append(hop NetworkingNodeID) NetworkPath {
	if hop.IsZero() {
		return p
	}
	if n := len(p.hops); n > 0 && p.hops[n-1] == hop {
		return p
	}
	hops := make([]NetworkingNodeID, len(p.hops), len(p.hops)+1)
	copy(hops, p.hops)
	return NetworkPath{hops: append(hops, hop)}
}

// Hops returns a copy of the hop list
func (p NetworkPath) Hops() []NetworkingNodeID {
	out := make([]NetworkingNodeID, len(p.hops))
	copy(out, p.hops)
	return out
}

// Len returns the number of hops
func (p NetworkPath) Len() int {
	return len(p.hops)
}

// IsEmpty reports whether the path has no hops
func (p NetworkPath) IsEmpty() bool {
	return len(p.hops) == 0
}

// First returns the oldest hop
func (p NetworkPath) First() (NetworkingNodeID, bool) {
	if len(p.hops) == 0 {
		return "", false
	}
	return p.hops[0], true
}

// Last returns the most recent hop
func (p NetworkPath) Last() (NetworkingNodeID, bool) {
	if len(p.hops) == 0 {
		return "", false
	}
	return p.hops[len(p.hops)-1], true
}

// Reverse returns the hops in opposite order
func (p NetworkPath) Reverse() NetworkPath {
	n := len(p.hops)
	hops := make([]NetworkingNodeID, n)
	for i, h := range p.hops {
		hops[n-1-i] = h
	}
	return NetworkPath{hops: hops}
}

// WithoutLast returns the path minus its most recent hop
func (p NetworkPath) WithoutLast() NetworkPath {
	if len(p.hops) == 0 {
		return p
	}
	hops := make([]NetworkingNodeID, len(p.hops)-1)
	copy(hops, p.hops)
	return NetworkPath{hops: hops}
}

// Equal compares hop by hop
func (p NetworkPath) Equal(other NetworkPath) bool {
	if len(p.hops) != len(other.hops) {
		return false
	}
	for i := range p.hops {
		if p.hops[i] != other.hops[i] {
			return false
		}
	}
	return true
}

// HashCode hashes the ordered hop list
func (p NetworkPath) HashCode() uint64 {
	values := make([]string, len(p.hops))
	for i, h := range p.hops {
		values[i] = string(h)
	}
	return hashing.Strings(values)
}

// String renders the path as "a -> b -> c"
func (p NetworkPath) String() string {
	values := make([]string, len(p.hops))
	for i, h := range p.hops {
		values[i] = string(h)
	}
	return strings.Join(values, " -> ")
}

// MarshalJSON implements json.Marshaler
func (p NetworkPath) MarshalJSON() ([]byte, error) {
	if p.hops == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.hops)
}

// UnmarshalJSON implements json.Unmarshaler
func (p *NetworkPath) UnmarshalJSON(data []byte) error {
	parsed, err := ParseNetworkPath(data)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
