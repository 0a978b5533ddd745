//go:build integration

package verifycache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certflow/internal/lifecycle/models"
	"certflow/internal/lifecycle/service"
	"certflow/internal/lifecycle/store/verifycache"
	"certflow/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *verifycache.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = verifycache.NewRedis(s.redis.Client, time.Minute)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func sampleVerification() *service.CertificateVerification {
	issued := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	return &service.CertificateVerification{
		Number:    "CERT-2026-0A1B2C3D",
		Status:    models.CertificateActive,
		Version:   2,
		IssuedAt:  issued,
		ExpiresAt: issued.AddDate(1, 0, 0),
		Valid:     true,
	}
}

func (s *RedisCacheSuite) TestMissThenHit() {
	ctx := context.Background()

	_, ok, err := s.cache.Get(ctx, "abc")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.cache.Fill(ctx, "abc", sampleVerification()))

	got, ok, err := s.cache.Get(ctx, "abc")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal("CERT-2026-0A1B2C3D", got.Number)
	s.Equal(2, got.Version)
	s.True(got.ExpiresAt.Equal(sampleVerification().ExpiresAt))
}

func (s *RedisCacheSuite) TestEntryCarriesTTL() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Fill(ctx, "ttl", sampleVerification()))

	ttl, err := s.redis.Client.TTL(ctx, "verify:ttl").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Minute)
}

func (s *RedisCacheSuite) TestFillKeepsExistingEntry() {
	ctx := context.Background()
	revoked := sampleVerification()
	revoked.Status = models.CertificateRevoked
	revoked.Valid = false
	s.Require().NoError(s.cache.Replace(ctx, "raced", revoked))

	// A lookup that read the store before the revocation commits late.
	s.Require().NoError(s.cache.Fill(ctx, "raced", sampleVerification()))

	got, ok, err := s.cache.Get(ctx, "raced")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(models.CertificateRevoked, got.Status)
}

func (s *RedisCacheSuite) TestTombstoneBlocksFillAndReadsAsMiss() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Fill(ctx, "stale", sampleVerification()))
	s.Require().NoError(s.cache.Replace(ctx, "stale", nil))
	s.Require().NoError(s.cache.Fill(ctx, "stale", sampleVerification()))

	_, ok, err := s.cache.Get(ctx, "stale")
	s.Require().NoError(err)
	s.False(ok)

	ttl, err := s.redis.Client.TTL(ctx, "verify:stale").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0), "tombstones expire with the cache ttl")
}

func (s *RedisCacheSuite) TestCorruptEntryIsAMiss() {
	ctx := context.Background()
	s.Require().NoError(s.redis.Client.Set(ctx, "verify:bad", "{not json", time.Minute).Err())

	_, ok, err := s.cache.Get(ctx, "bad")
	s.Require().NoError(err)
	s.False(ok)
}
