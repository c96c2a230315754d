package shared

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/manara-erp/manara/internal/ledger"
)

func TestRecordAppendLogsActor(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	audit := NewAuditLogger(nil, logger)

	ctx := ContextWithActor(context.Background(), &Actor{UserID: "u-1", Role: "sales"})
	audit.RecordAppend(ctx, ledger.Outcome{Transaction: ledger.Transaction{
		ID: "t1", Type: ledger.TypeSale, TotalAmount: decimal.NewFromInt(15), SafeID: "s1",
	}})

	out := buf.String()
	require.Contains(t, out, `"action":"ledger.append"`)
	require.Contains(t, out, `"actor_id":"u-1"`)
	require.Contains(t, out, `"entity_id":"t1"`)
}

func TestRecordRequiresIdentity(t *testing.T) {
	audit := NewAuditLogger(nil, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.Error(t, audit.Record(context.Background(), AuditLog{Action: "x"}))
	require.NoError(t, audit.Migrate(context.Background()))
}

func TestActorFromContext(t *testing.T) {
	require.Nil(t, ActorFromContext(context.Background()))
	ctx := ContextWithActor(context.Background(), &Actor{Username: "admin"})
	require.Equal(t, "admin", ActorFromContext(ctx).Username)
}
