package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDemoData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, SeedDemoData(ctx, f.store, f.svc))

	page, err := f.svc.List(ctx, ListParams{Limit: 50})
	require.NoError(t, err)
	require.Len(t, page.Items, 12)
	for _, o := range page.Items {
		assert.True(t, strings.HasPrefix(o.OrderNumber, "APR-2024-"))
		assert.True(t, o.TotalAmount.Equal(o.FeeAmount.Add(o.TechFee)))
	}

	tpl, err := f.svc.Template(ctx, DemoTemplateID)
	require.NoError(t, err)
	assert.Equal(t, "Rush purchase", tpl.Name)

	// a second run leaves a non-empty collection alone
	require.NoError(t, SeedDemoData(ctx, f.store, f.svc))
	count, err := f.store.CountOrders(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 12, count)
}
