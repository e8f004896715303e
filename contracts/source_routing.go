package contracts

import (
	"fmt"

	"github.com/glimte/ocpp-envelope/internal/hashing"
)

// SourceRouting describes how a message reaches its destination: either
// directly, or through an explicit ordered list of relay hops.
type SourceRouting struct {
	destination NetworkingNodeID
	hops        NetworkPath
}

// Direct routes straight to a directly connected node
func Direct(destination NetworkingNodeID) SourceRouting {
	return SourceRouting{destination: destination}
}

// Via routes along an explicit hop list; the last hop is the final destination
func Via(path NetworkPath) (SourceRouting, error) {
	last, ok := path.Last()
	if !ok {
		return SourceRouting{}, ErrEmptyNetworkPath
	}
	if path.Len() == 1 {
		return Direct(last), nil
	}
	return SourceRouting{destination: last, hops: path}, nil
}

// Destination returns the final recipient
func (r SourceRouting) Destination() NetworkingNodeID {
	return r.destination
}

// IsDirect reports whether no relay hops are involved
func (r SourceRouting) IsDirect() bool {
	return r.hops.IsEmpty()
}

// IsZero reports whether no destination was set
func (r SourceRouting) IsZero() bool {
	return r.destination.IsZero()
}

// NextHop returns the node the message has to be handed to first
func (r SourceRouting) NextHop() NetworkingNodeID {
	if first, ok := r.hops.First(); ok {
		return first
	}
	return r.destination
}

// Resolve returns the hop list: a single hop for direct routing, the explicit list otherwise
func (r SourceRouting) Resolve() NetworkPath {
	if r.IsDirect() {
		return NewNetworkPath(r.destination)
	}
	return r.hops
}

// Equal compares destination and hops
func (r SourceRouting) Equal(other SourceRouting) bool {
	return r.destination == other.destination && r.hops.Equal(other.hops)
}

// HashCode hashes destination and hops
func (r SourceRouting) HashCode() uint64 {
	return hashing.Combine(hashing.String(string(r.destination)), r.hops.HashCode())
}

// String renders the routing for logs
func (r SourceRouting) String() string {
	if r.IsDirect() {
		return fmt.Sprintf("direct(%s)", r.destination)
	}
	return fmt.Sprintf("via(%s)", r.hops)
}

// ResponseRouting computes how a response travels back along a request's path.
//
// The path is the request's NetworkPath as received, ending at the responder.
// The responder is dropped and the rest reversed. When nothing remains the
// response goes directly to sender; otherwise sender leads the hop list and the
// original requester is the final destination.
func ResponseRouting(path NetworkPath, sender NetworkingNodeID) (SourceRouting, error) {
	if path.IsEmpty() {
		return SourceRouting{}, ErrEmptyNetworkPath
	}

	back := path.WithoutLast().Reverse()
	if back.IsEmpty() {
		if sender.IsZero() {
			return SourceRouting{}, fmt.Errorf("%w: no sender to route the response to", ErrEmptyNetworkPath)
		}
		return Direct(sender), nil
	}

	if first, _ := back.First(); !sender.IsZero() && first != sender {
		back = NewNetworkPath(append([]NetworkingNodeID{sender}, back.Hops()...)...)
	}
	return Via(back)
}
