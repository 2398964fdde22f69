//go:build integration

package registry_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"landledger/internal/ledger"
	"landledger/internal/registry"
	id "landledger/pkg/domain"
	"landledger/pkg/platform/sentinel"
	"landledger/pkg/testutil/containers"
)

type PostgresParcelSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *registry.PostgresStore
}

func TestPostgresParcelSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresParcelSuite))
}

func (s *PostgresParcelSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = registry.NewPostgres(s.postgres.DB)
}

func (s *PostgresParcelSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "parcels"))
}

func testParcel(landID id.LandID, owner id.Account) *registry.Parcel {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &registry.Parcel{
		LandID: landID,
		Owner:  owner,
		Metadata: ledger.Metadata{
			LandID: landID,
			Title:  "Plot 12",
			Area:   450,
		},
		Status:       registry.StatusRegistered,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
}

func (s *PostgresParcelSuite) TestCreateFindRoundTrip() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, testParcel("L1", "0xalice")))

	found, err := s.store.Find(ctx, "L1")
	s.Require().NoError(err)
	s.Equal(id.Account("0xalice"), found.Owner)
	s.Equal(registry.StatusRegistered, found.Status)
	s.Equal(id.LandID("L1"), found.Metadata.LandID)
	s.EqualValues(450, found.Metadata.Area)

	_, err = s.store.Find(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// The land_id primary key makes registration first-writer-wins under
// concurrency.
func (s *PostgresParcelSuite) TestConcurrentCreateExactlyOneWins() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var winners, conflicts atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			owner := id.Account("0xowner-" + string(rune('a'+idx%26)))
			err := s.store.Create(ctx, testParcel("L1", owner))
			switch err {
			case nil:
				winners.Add(1)
			case sentinel.ErrConflict:
				conflicts.Add(1)
			default:
				s.NoError(err)
			}
		}(i)
	}
	wg.Wait()

	s.EqualValues(1, winners.Load())
	s.EqualValues(goroutines-1, conflicts.Load())
}

func (s *PostgresParcelSuite) TestExecuteTransition() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, testParcel("L1", "0xalice")))

	updated, err := s.store.Execute(ctx, "L1",
		func(p *registry.Parcel) error { return nil },
		func(p *registry.Parcel) {
			p.Status = registry.StatusVerified
			p.UpdatedAt = time.Now().UTC()
		},
	)
	s.Require().NoError(err)
	s.Equal(registry.StatusVerified, updated.Status)

	found, err := s.store.Find(ctx, "L1")
	s.Require().NoError(err)
	s.Equal(registry.StatusVerified, found.Status)
}

func (s *PostgresParcelSuite) TestListByOwnerAndCount() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, testParcel("L1", "0xalice")))
	s.Require().NoError(s.store.Create(ctx, testParcel("L2", "0xalice")))
	s.Require().NoError(s.store.Create(ctx, testParcel("L3", "0xbob")))

	parcels, err := s.store.ListByOwner(ctx, "0xalice")
	s.Require().NoError(err)
	s.Require().Len(parcels, 2)
	s.Equal(id.LandID("L1"), parcels[0].LandID)
	s.Equal(id.LandID("L2"), parcels[1].LandID)

	count, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.EqualValues(3, count)
}
