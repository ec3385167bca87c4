package domerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("service: %w: current price is 12", ErrBidTooLow)

	require.True(t, errors.Is(wrapped, ErrBidTooLow))
	require.Equal(t, "BID_TOO_LOW", CodeOf(wrapped))
	require.Equal(t, KindConflict, KindOf(wrapped))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrInvalidAmount, http.StatusBadRequest},
		{ErrInsufficientBudget, http.StatusBadRequest},
		{ErrNoSlotAvailable, http.StatusBadRequest},
		{ErrAuctionNotFound, http.StatusNotFound},
		{ErrBidTooLow, http.StatusConflict},
		{ErrConcurrentBid, http.StatusConflict},
		{ErrAuctionNotActive, http.StatusConflict},
		{ErrAppealExists, http.StatusConflict},
		{ErrForbidden, http.StatusForbidden},
		{errors.New("pg exploded"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		require.Equal(t, c.want, HTTPStatus(c.err), "%v", c.err)
	}
}

func TestCodeOfPlainError(t *testing.T) {
	require.Equal(t, "INTERNAL", CodeOf(errors.New("boom")))
}
