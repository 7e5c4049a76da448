package chain_test

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"cryptourist/internal/chain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x5B38Da6a701c568545dCfcB03FcB875f56beddC4")
	bob   = common.HexToAddress("0xAb8483F64d9C6d1EcF9b849Ae677dD3315835cb2")
)

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func sampleBookings() chain.RawBookings {
	return chain.RawBookings{
		IDs:             []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)},
		Amounts:         []*big.Int{wei("1500000000000000000"), wei("89000000000000000000"), wei("0")},
		OperatorFees:    []*big.Int{wei("15000000000000000"), wei("890000000000000000"), wei("0")},
		Timestamps:      []*big.Int{big.NewInt(1700000000), big.NewInt(1700003600), big.NewInt(0)},
		Customers:       []common.Address{alice, bob, alice},
		Payers:          []common.Address{{}, bob, alice},
		PaidStatus:      []bool{false, true, true},
		CompletedStatus: []bool{false, true, false},
		RefundedStatus:  []bool{false, false, true},
	}
}

func TestParseBookingsNamed(t *testing.T) {
	bookings, err := chain.ParseBookings(sampleBookings())
	require.NoError(t, err)
	require.Len(t, bookings, 3)

	first := bookings[0]
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, 1.5, first.TotalAmount)
	assert.Equal(t, 0.015, first.OperatorFee)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), first.Timestamp)
	assert.Equal(t, alice.Hex(), first.Customer)
	assert.False(t, first.IsPaid)

	assert.Equal(t, 89.0, bookings[1].TotalAmount)
	assert.True(t, bookings[1].IsPaid)
	assert.True(t, bookings[1].IsCompleted)
	assert.False(t, bookings[1].IsRefunded)

	assert.True(t, bookings[2].IsPaid)
	assert.False(t, bookings[2].IsCompleted)
	assert.True(t, bookings[2].IsRefunded)
}

func TestParseBookingsPositionalMatchesNamed(t *testing.T) {
	raw := sampleBookings()
	tuple := []any{
		raw.IDs, raw.Amounts, raw.OperatorFees, raw.Timestamps,
		raw.Customers, raw.Payers, raw.PaidStatus, raw.CompletedStatus, raw.RefundedStatus,
	}

	fromTuple, err := chain.ParseBookings(tuple)
	require.NoError(t, err)
	fromStruct, err := chain.ParseBookings(raw)
	require.NoError(t, err)

	assert.Equal(t, fromStruct, fromTuple)
}

func TestParseBookingsFlagsFollowTruthiness(t *testing.T) {
	// Ответ в виде JSON: числа, строки и флаги в виде 0/1.
	payload := `{
		"ids": ["0x1", "2"],
		"amounts": ["1500000000000000000", 0],
		"operatorFees": [0, 0],
		"timestamps": [1700000000, 1700000001],
		"customers": ["0x5B38Da6a701c568545dCfcB03FcB875f56beddC4", "0xAb8483F64d9C6d1EcF9b849Ae677dD3315835cb2"],
		"payers": ["0x0000000000000000000000000000000000000000", "0xAb8483F64d9C6d1EcF9b849Ae677dD3315835cb2"],
		"paidStatus": [1, 0],
		"completedStatus": ["", "yes"],
		"refundedStatus": [false, true]
	}`
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &v))

	bookings, err := chain.ParseBookings(v)
	require.NoError(t, err)
	require.Len(t, bookings, 2)

	assert.Equal(t, int64(1), bookings[0].ID)
	assert.Equal(t, 1.5, bookings[0].TotalAmount)
	assert.True(t, bookings[0].IsPaid)
	assert.False(t, bookings[0].IsCompleted)
	assert.False(t, bookings[0].IsRefunded)
	assert.False(t, bookings[1].IsPaid)
	assert.True(t, bookings[1].IsCompleted)
	assert.True(t, bookings[1].IsRefunded)
}

func TestParseBookingsRecordCount(t *testing.T) {
	for _, n := range []int{0, 1, 7} {
		raw := chain.RawBookings{}
		for i := 0; i < n; i++ {
			raw.IDs = append(raw.IDs, big.NewInt(int64(i+1)))
			raw.Amounts = append(raw.Amounts, big.NewInt(0))
			raw.OperatorFees = append(raw.OperatorFees, big.NewInt(0))
			raw.Timestamps = append(raw.Timestamps, big.NewInt(0))
			raw.Customers = append(raw.Customers, alice)
			raw.Payers = append(raw.Payers, bob)
			raw.PaidStatus = append(raw.PaidStatus, i%2 == 0)
			raw.CompletedStatus = append(raw.CompletedStatus, i%3 == 0)
			raw.RefundedStatus = append(raw.RefundedStatus, false)
		}

		bookings, err := chain.NormalizeBookings(raw)
		require.NoError(t, err)
		require.Len(t, bookings, n)
		for i, b := range bookings {
			assert.Equal(t, raw.PaidStatus[i], b.IsPaid)
			assert.Equal(t, raw.CompletedStatus[i], b.IsCompleted)
		}
	}
}

func TestParseBookingsErrors(t *testing.T) {
	mismatched := sampleBookings()
	mismatched.PaidStatus = mismatched.PaidStatus[:2]

	tests := []struct {
		name string
		in   any
		want error
	}{
		{"nil", nil, chain.ErrNoData},
		{"empty tuple", []any{}, chain.ErrNoData},
		{"short tuple", []any{[]*big.Int{}, []*big.Int{}}, chain.ErrShapeMismatch},
		{"unequal arrays", mismatched, chain.ErrShapeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := chain.ParseBookings(tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := chain.ParseBookings(map[string]any{"customers": []any{"not-an-address"}})
	assert.ErrorContains(t, err, chain.ErrInvalidAddress.Error())
}

func TestParseArticles(t *testing.T) {
	tuple := []any{
		[]string{"antalya", "paris"},
		[]string{"Antalya Coast", "Paris Loop"},
		[]common.Address{alice, bob},
		[]*big.Int{wei("89000000000000000000"), nil},
		[]bool{true, false},
	}

	articles, err := chain.ParseArticles(tuple)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "antalya", articles[0].ID)
	assert.Equal(t, "Antalya Coast", articles[0].Title)
	assert.Equal(t, alice.Hex(), articles[0].Provider)
	assert.Equal(t, "89000000000000000000", articles[0].Price.String())
	assert.Equal(t, 89.0, articles[0].DisplayPrice)
	assert.True(t, articles[0].Active)

	assert.Equal(t, 0, articles[1].Price.Sign())
	assert.False(t, articles[1].Active)
}
