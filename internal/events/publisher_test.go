package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "landledger/pkg/domain"
)

type failingStore struct{}

func (failingStore) Append(context.Context, Event) error {
	return errors.New("sink unavailable")
}

func TestPublisher_SyncMode(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	pub.Emit(context.Background(), Event{
		Action: ActionLandRegistered,
		Actor:  id.Account("0xowner"),
		LandID: id.LandID("L1"),
	})

	stored := store.All()
	require.Len(t, stored, 1)
	assert.Equal(t, ActionLandRegistered, stored[0].Action)
	assert.Equal(t, id.LandID("L1"), stored[0].LandID)
}

// A broken sink must never surface to the emitting operation: the mutation
// the event describes has already committed.
func TestPublisher_SyncStoreFailureIsSwallowed(t *testing.T) {
	pub := NewPublisher(failingStore{})
	defer pub.Close()

	pub.Emit(context.Background(), Event{Action: ActionLandRegistered})
}

func TestPublisher_AsyncModeDrainsOnClose(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		pub.Emit(context.Background(), Event{Action: ActionTransferRequested})
	}

	pub.Close()

	assert.Len(t, store.All(), 10, "all events should be drained on close")
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	before := time.Now()
	pub.Emit(context.Background(), Event{Action: ActionRoleGranted})
	after := time.Now()

	stored := store.All()
	require.Len(t, stored, 1)
	assert.False(t, stored[0].Timestamp.Before(before))
	assert.False(t, stored[0].Timestamp.After(after))
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	custom := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	pub.Emit(context.Background(), Event{
		Action:    ActionRoleGranted,
		Timestamp: custom,
	})

	stored := store.All()
	require.Len(t, stored, 1)
	assert.Equal(t, custom, stored[0].Timestamp)
}

func TestPublisher_EmitAfterCloseIsNoop(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	pub.Close()

	pub.Emit(context.Background(), Event{Action: ActionRoleGranted})
	assert.Empty(t, store.All())
}

func TestStoreByAction(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	pub.Emit(context.Background(), Event{Action: ActionProofSubmitted})
	pub.Emit(context.Background(), Event{Action: ActionProofVerified})
	pub.Emit(context.Background(), Event{Action: ActionProofSubmitted})

	assert.Len(t, store.ByAction(ActionProofSubmitted), 2)
	assert.Len(t, store.ByAction(ActionProofVerified), 1)
}
