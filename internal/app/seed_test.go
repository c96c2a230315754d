package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/manara-erp/manara/internal/masterdata"
	"github.com/manara-erp/manara/internal/store"
)

func TestSeedStarterData(t *testing.T) {
	ctx := context.Background()
	st := store.New(nil, nil)
	_, err := st.AddEntity(ctx, masterdata.Branch{ID: "hq", Name: "HQ"})
	require.NoError(t, err)

	n, err := SeedStarterData(ctx, st)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	bal, ok := st.SafeBalance("s1")
	require.True(t, ok)
	require.True(t, bal.Equal(StarterSafeBalance))
	require.Len(t, st.Entities(masterdata.KindBranch), 1)

	n, err = SeedStarterData(ctx, st)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, st.Verify())
}
