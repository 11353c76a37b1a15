package pgstore_test

import (
	"os"
	"testing"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/store/records/pgstore"
	"github.com/dalemusser/coursedesk/internal/app/store/records/recordstest"
	"go.uber.org/zap"
)

const dsnEnv = "COURSEDESK_TEST_POSTGRES_DSN"

func TestContract(t *testing.T) {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set; skipping PostgreSQL test", dsnEnv)
	}

	recordstest.Run(t, func(t *testing.T) records.Store {
		s, err := pgstore.Open(dsn)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		if err := s.Migrate(zap.NewNop()); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		if err := s.Truncate(); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
