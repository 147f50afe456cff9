//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/paras-lehana/dns-chain/internal/audit"
	"github.com/paras-lehana/dns-chain/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = audit.NewPostgresStore(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func (s *PostgresStoreSuite) TestAppend() {
	ctx := context.Background()
	event := audit.Event{
		Timestamp:  time.Now().UTC(),
		Action:     audit.ActionRegistrationConfirmed,
		Name:       "append.test",
		StorageKey: "storage-key",
		Confidence: 0.91,
		Fallback:   true,
		RequestID:  "req-1",
		Signature:  "tx-signature",
	}
	s.Require().NoError(s.store.Append(ctx, event))

	var (
		count     int
		action    string
		signature string
		fallback  bool
	)
	row := s.postgres.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(action), MAX(signature), BOOL_OR(fallback) FROM audit_events`)
	s.Require().NoError(row.Scan(&count, &action, &signature, &fallback))
	s.Equal(1, count)
	s.Equal(string(audit.ActionRegistrationConfirmed), action)
	s.Equal("tx-signature", signature)
	s.True(fallback)
}

func (s *PostgresStoreSuite) TestAppendStampsTimestamp() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Action: audit.ActionCheckPerformed,
		Name:   "stamp.test",
	}))

	var occurredAt time.Time
	row := s.postgres.DB.QueryRowContext(ctx, `SELECT occurred_at FROM audit_events`)
	s.Require().NoError(row.Scan(&occurredAt))
	s.WithinDuration(time.Now(), occurredAt, time.Minute)
}

func (s *PostgresStoreSuite) TestMigrateIdempotent() {
	s.NoError(s.store.Migrate(context.Background()))
	s.NoError(s.store.Migrate(context.Background()))
}
