//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"landledger/internal/ledger"
	"landledger/internal/registry"
	"landledger/internal/registry/cache"
	id "landledger/pkg/domain"
	"landledger/pkg/testutil/containers"
)

type CacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.ParcelCache
}

func TestCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.cache = cache.New(s.redis.Client, cache.WithTTL(time.Minute))
}

func (s *CacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func testParcel(landID id.LandID) *registry.Parcel {
	now := time.Now().UTC().Truncate(time.Second)
	return &registry.Parcel{
		LandID: landID,
		Owner:  "0xalice",
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

func (s *CacheSuite) TestSetGetRoundTrip() {
	ctx := context.Background()
	parcel := testParcel("L1")

	_, ok := s.cache.Get(ctx, "L1")
	s.False(ok, "cold cache misses")

	s.cache.Set(ctx, parcel)

	cached, ok := s.cache.Get(ctx, "L1")
	s.Require().True(ok)
	s.Equal(parcel.Owner, cached.Owner)
	s.Equal(parcel.Status, cached.Status)
	s.Equal(parcel.Metadata.Title, cached.Metadata.Title)
}

func (s *CacheSuite) TestInvalidate() {
	ctx := context.Background()
	s.cache.Set(ctx, testParcel("L1"))

	s.cache.Invalidate(ctx, "L1")

	_, ok := s.cache.Get(ctx, "L1")
	s.False(ok)
}

func (s *CacheSuite) TestTTLExpiry() {
	ctx := context.Background()
	short := cache.New(s.redis.Client, cache.WithTTL(time.Second))
	short.Set(ctx, testParcel("L1"))

	_, ok := short.Get(ctx, "L1")
	s.Require().True(ok)

	time.Sleep(1500 * time.Millisecond)

	_, ok = short.Get(ctx, "L1")
	s.False(ok, "entry expires with the TTL")
}

func (s *CacheSuite) TestNilCacheIsNoOp() {
	ctx := context.Background()
	var disabled *cache.ParcelCache

	disabled.Set(ctx, testParcel("L1"))
	_, ok := disabled.Get(ctx, "L1")
	s.False(ok)
	disabled.Invalidate(ctx, "L1")
}
