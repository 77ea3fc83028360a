package db_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/atinyakov/imagerepo/internal/db"
)

func TestInitPostgres_ErrorPaths(t *testing.T) {
	cases := []struct {
		name       string
		dsn        string
		wantSubstr string
	}{
		{"invalid DSN", "host=127.0.0.1 port=1 sslmode=disable connect_timeout=1", "ping postgres"},
		{"malformed URL", "postgres://%zz", "ping postgres"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := db.InitPostgres(context.Background(), tc.dsn, 1, zap.NewNop())
			if err == nil {
				t.Fatalf("InitPostgres(%q) did not return error", tc.dsn)
			}
			if !strings.Contains(err.Error(), tc.wantSubstr) {
				t.Errorf("InitPostgres(%q) error = %q; want substring %q", tc.dsn, err.Error(), tc.wantSubstr)
			}
		})
	}
}

func TestInitPostgres_CanceledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.InitPostgres(ctx, "host=127.0.0.1 port=1 sslmode=disable", 10, zap.NewNop())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("InitPostgres error = %v; want context.Canceled", err)
	}
}
