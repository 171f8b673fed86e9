// Package memstore holds in-memory implementations of the registry and
// session store, used in no-db mode and in tests.
package memstore

import (
	"context"
	"sync"

	"agora/internal/domain"
)

type ParticipantRegistry struct {
	mu           sync.RWMutex
	participants map[string]domain.Participant
}

func NewParticipantRegistry() *ParticipantRegistry {
	return &ParticipantRegistry{
		participants: make(map[string]domain.Participant),
	}
}

func (r *ParticipantRegistry) Get(ctx context.Context, id string) (*domain.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	participant, ok := r.participants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := participant
	out.PublicKey = copyBytes(participant.PublicKey)
	out.WorkingGroups = copyStrings(participant.WorkingGroups)
	return &out, nil
}

func (r *ParticipantRegistry) Upsert(ctx context.Context, participant domain.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	participant.PublicKey = copyBytes(participant.PublicKey)
	participant.WorkingGroups = copyStrings(participant.WorkingGroups)
	r.participants[participant.ID] = participant
	return nil
}

func copyBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

var _ domain.ParticipantRegistry = (*ParticipantRegistry)(nil)
