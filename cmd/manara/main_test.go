package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/manara-erp/manara/internal/app"
	_ "github.com/manara-erp/manara/internal/testing/guard"
)

func TestMainReturnsInTestMode(t *testing.T) {
	app.RefreshTestMode()
	require.True(t, app.InTestMode())
	main()
}
