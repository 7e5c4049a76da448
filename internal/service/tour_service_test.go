package service_test

import (
	"testing"
	"time"

	"cryptourist/internal/apperr"
	"cryptourist/internal/repository"
	"cryptourist/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTourService(t *testing.T) *service.TourService {
	t.Helper()
	repo, err := repository.NewTourRepository("")
	require.NoError(t, err)
	return service.NewTourService(repo)
}

func TestAvailableDates(t *testing.T) {
	tours := newTourService(t)
	today := time.Now().UTC().Truncate(24 * time.Hour)

	for _, n := range []int{1, 10, 30} {
		dates := tours.AvailableDates(n)
		require.Len(t, dates, n)

		seen := map[time.Time]bool{}
		for i, d := range dates {
			assert.False(t, seen[d], "повтор даты %s", d)
			seen[d] = true
			assert.True(t, d.After(today) || d.Equal(today))
			assert.True(t, d.Before(today.AddDate(0, 0, 32)))
			if i > 0 {
				assert.True(t, dates[i-1].Before(d))
			}
		}
	}

	assert.Len(t, tours.AvailableDates(0), 10)
	assert.Len(t, tours.AvailableDates(100), 30)
}

func TestTourLookup(t *testing.T) {
	tours := newTourService(t)

	assert.Len(t, tours.List(), 5)
	assert.Len(t, tours.Search("Turkey", "", ""), 2)
	assert.NotEmpty(t, tours.Reviews("Paris City Explorer"))

	tour, err := tours.GetBySlug("berlin-wall-trail")
	require.NoError(t, err)
	byID, err := tours.Get(tour.ID)
	require.NoError(t, err)
	assert.Equal(t, tour.Title, byID.Title)

	_, err = tours.GetBySlug("tuscan-countryside")
	assert.Equal(t, 404, apperr.HTTPStatus(err))
	_, err = tours.Get("nope")
	assert.Equal(t, 404, apperr.HTTPStatus(err))
}
