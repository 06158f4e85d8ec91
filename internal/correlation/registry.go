package correlation

import (
	"context"

	"github.com/oslri/noticetrack/internal/domain"
)

// ChannelVerifier correlates records for one delivery channel. The partial
// result already carries the created event; implementations extend it and
// derive the overall status themselves.
type ChannelVerifier interface {
	Verify(ctx context.Context, notice domain.Notice, partial domain.VerificationResult) (domain.VerificationResult, error)
}

// Registry maps delivery option ids to their channel verifiers. It is built
// at startup and injected into the engine; channels without an entry fall
// back to the generic voice/SMS path.
type Registry struct {
	verifiers map[int]ChannelVerifier
}

// NewRegistry creates an empty verifier registry.
func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[int]ChannelVerifier)}
}

// Register binds a verifier to a delivery option id, replacing any previous
// binding for that channel.
func (r *Registry) Register(deliveryOptionID int, verifier ChannelVerifier) {
	r.verifiers[deliveryOptionID] = verifier
}

// Lookup returns the verifier registered for a delivery option id, if any.
func (r *Registry) Lookup(deliveryOptionID int) (ChannelVerifier, bool) {
	v, ok := r.verifiers[deliveryOptionID]
	return v, ok
}
