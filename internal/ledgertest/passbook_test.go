package ledgertest

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sanctum"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []sanctum.AccessEvent
}

func (r *eventRecorder) Record(ev sanctum.AccessEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) all() []sanctum.AccessEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sanctum.AccessEvent, len(r.events))
	copy(out, r.events)
	return out
}

func TestPassbookWitnessTrustsMethods(t *testing.T) {
	realm := sanctum.NewRealm(sanctum.WithCallWitness())
	require.NoError(t, InstallPassbook(realm))

	p := NewPassbook(realm, "erin")
	require.NoError(t, p.Stamp())
	require.NoError(t, p.Stamp())

	n, err := p.Stamps()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPassbookDeniesOutsideCallers(t *testing.T) {
	realm := sanctum.NewRealm(sanctum.WithCallWitness())
	require.NoError(t, InstallPassbook(realm))

	p := NewPassbook(realm, "erin")
	require.NoError(t, p.Stamp())

	// The test function is not a method of Passbook.
	_, err := realm.Get(p, "stamps")
	require.Error(t, err)
	assert.True(t, sanctum.IsNotFound(err))
	assert.EqualError(t, err, "'Passbook' object has no attribute 'stamps'")

	err = realm.Set(p, "stamps", 99)
	assert.True(t, sanctum.IsForbidden(err))
}

func TestPassbookClosureClimb(t *testing.T) {
	realm := sanctum.NewRealm(sanctum.WithCallWitness())
	require.NoError(t, InstallPassbook(realm))

	p := NewPassbook(realm, "erin")
	require.NoError(t, p.Stamp())
	require.NoError(t, p.Reset())

	n, err := p.Stamps()
	require.NoError(t, err)
	assert.Equal(t, 0, n, "delete removed the instance entry, default shows")
}

func TestPassbookWithoutWitness(t *testing.T) {
	realm := sanctum.NewRealm()
	require.NoError(t, InstallPassbook(realm))

	p := NewPassbook(realm, "erin")
	err := p.Stamp()
	require.Error(t, err, "no grant and no witness leaves no trusted path")
	assert.True(t, sanctum.IsNotFound(err))
}

func TestPassbookAuditViaWitness(t *testing.T) {
	rec := &eventRecorder{}
	realm := sanctum.NewRealm(sanctum.WithCallWitness(), sanctum.WithAuditor(rec))
	require.NoError(t, InstallPassbook(realm))

	p := NewPassbook(realm, "erin")
	require.NoError(t, p.Stamp())

	var sawWitness bool
	for _, ev := range rec.all() {
		if ev.Via == sanctum.ViaWitness {
			sawWitness = true
			assert.Contains(t, ev.Unit, "(*Passbook).")
		}
	}
	assert.True(t, sawWitness, "granted events carry the witness trust path")
}
