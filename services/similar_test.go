package services

import (
	"context"
	"testing"

	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarOrders(t *testing.T) {
	f := newFixture(t)
	target := f.create(t, "123 Main Street")
	near := f.create(t, "125 Main Street")
	sameCityFar := f.create(t, "9 Riverside Boulevard")
	otherCity := f.create(t, "123 Main Street North", func(o *models.Order) {
		o.PropertyCity = "Dallas"
		o.PropertyZip = "75201"
	})
	f.create(t, "77 Unrelated Way", func(o *models.Order) {
		o.PropertyCity = "Houston"
		o.PropertyZip = "77001"
	})
	deleted := f.create(t, "124 Main Street")
	require.NoError(t, f.svc.SoftDelete(context.Background(), deleted.ID, "tester"))

	similar, err := f.svc.SimilarOrders(context.Background(), target.ID, 0)
	require.NoError(t, err)

	var ids []string
	for _, s := range similar {
		ids = append(ids, s.Order.ID)
	}
	assert.Equal(t, []string{near.ID, sameCityFar.ID, otherCity.ID}, ids)
	assert.True(t, similar[0].SameCity)
	assert.False(t, similar[2].SameCity)

	limited, err := f.svc.SimilarOrders(context.Background(), target.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = f.svc.SimilarOrders(context.Background(), "missing", 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStreetName(t *testing.T) {
	assert.Equal(t, "main street", streetName("123 main street"))
	assert.Equal(t, "main street", streetName("main street"))
	assert.Equal(t, "12b main", streetName("12b main"))
}
