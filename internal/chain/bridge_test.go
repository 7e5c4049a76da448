package chain_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"cryptourist/internal/chain"
	"cryptourist/internal/chain/chaintest"
	"cryptourist/internal/log"
	"cryptourist/internal/metrics"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contractAddress = "0xd9145CCE52D386f254917e481eB44e9943F39138"

func builtinABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := chain.ParseABI(chain.BookingContractABI)
	require.NoError(t, err)
	return parsed
}

// positionalABI убирает имена выходных параметров, контракт отдает голый кортеж.
func positionalABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed := builtinABI(t)
	for name, method := range parsed.Methods {
		outputs := make(abi.Arguments, len(method.Outputs))
		copy(outputs, method.Outputs)
		for i := range outputs {
			outputs[i].Name = ""
		}
		method.Outputs = outputs
		parsed.Methods[name] = method
	}
	return parsed
}

func newBridge(t *testing.T, contractABI abi.ABI) (*chain.Bridge, *chaintest.FakeWallet) {
	t.Helper()
	wallet := chaintest.NewFakeWallet(contractABI)
	wallet.Authorized = []common.Address{alice}
	wallet.Bookings = sampleBookings()
	bridge := chain.NewBridge(wallet.Provider(t), contractABI, log.NewNopLogger(), nil).
		WithPollInterval(time.Millisecond)
	return bridge, wallet
}

func TestBridgeWithoutWallet(t *testing.T) {
	t.Parallel()

	bridge := chain.NewBridge(nil, builtinABI(t), log.NewNopLogger(), nil)
	ctx := context.Background()

	_, err := bridge.GetAllBookings(ctx, contractAddress)
	assert.ErrorIs(t, err, chain.ErrNoWallet)
	_, err = bridge.GetAllArticles(ctx, contractAddress)
	assert.ErrorIs(t, err, chain.ErrNoWallet)
	assert.ErrorIs(t, bridge.PayBooking(ctx, 1, "1.5", contractAddress), chain.ErrNoWallet)
	assert.ErrorIs(t, bridge.CreateBooking(ctx, []string{"1"}, alice.Hex(), contractAddress), chain.ErrNoWallet)
}

func TestBridgeGetAllBookings(t *testing.T) {
	t.Parallel()

	for name, contractABI := range map[string]abi.ABI{
		"named":      builtinABI(t),
		"positional": positionalABI(t),
	} {
		contractABI := contractABI
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			bridge, _ := newBridge(t, contractABI)

			bookings, err := bridge.GetAllBookings(context.Background(), contractAddress)
			require.NoError(t, err)
			require.Len(t, bookings, 3)
			assert.Equal(t, 1.5, bookings[0].TotalAmount)
			assert.Equal(t, bob.Hex(), bookings[1].Customer)
			assert.True(t, bookings[2].IsRefunded)
		})
	}
}

func TestBridgeGetAllArticles(t *testing.T) {
	t.Parallel()

	bridge, wallet := newBridge(t, builtinABI(t))
	wallet.Articles = chain.RawArticles{
		IDs:          []string{"1"},
		Titles:       []string{"Antalya Coastal Ride"},
		Addresses:    []common.Address{bob},
		Prices:       []*big.Int{wei("89000000000000000000")},
		ActiveStatus: []bool{true},
	}

	articles, err := bridge.GetAllArticles(context.Background(), contractAddress)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Antalya Coastal Ride", articles[0].Title)
	assert.Equal(t, 89.0, articles[0].DisplayPrice)
}

func TestBridgeReadErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("no account", func(t *testing.T) {
		bridge, wallet := newBridge(t, builtinABI(t))
		wallet.Authorized = nil
		_, err := bridge.GetAllBookings(ctx, contractAddress)
		assert.ErrorIs(t, err, chain.ErrNoAccount)
	})
	t.Run("empty result", func(t *testing.T) {
		bridge, wallet := newBridge(t, builtinABI(t))
		wallet.EmptyCall = true
		_, err := bridge.GetAllBookings(ctx, contractAddress)
		assert.ErrorIs(t, err, chain.ErrNoData)
	})
	t.Run("bad contract address", func(t *testing.T) {
		bridge, _ := newBridge(t, builtinABI(t))
		_, err := bridge.GetAllArticles(ctx, "0xABC")
		assert.ErrorIs(t, err, chain.ErrInvalidAddress)
	})
}

func TestBridgePayBooking(t *testing.T) {
	t.Parallel()

	bridge, wallet := newBridge(t, builtinABI(t))
	wallet.PendingPolls = 2

	require.NoError(t, bridge.PayBooking(context.Background(), 1, "1.5", contractAddress))

	sent := wallet.Transactions()
	require.Len(t, sent, 1)
	assert.Equal(t, "payBooking", sent[0].Method)
	assert.Equal(t, alice, sent[0].From)
	assert.Equal(t, common.HexToAddress(contractAddress), sent[0].To)
	assert.Equal(t, "1500000000000000000", sent[0].Value.String())
	assert.Equal(t, "1", sent[0].Args[0].(*big.Int).String())

	bookings, err := bridge.GetAllBookings(context.Background(), contractAddress)
	require.NoError(t, err)
	assert.True(t, bookings[0].IsPaid)
	assert.Equal(t, alice.Hex(), bookings[0].Payer)
}

func TestBridgePayBookingFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("reverted", func(t *testing.T) {
		bridge, wallet := newBridge(t, builtinABI(t))
		wallet.Revert = true
		assert.ErrorIs(t, bridge.PayBooking(ctx, 1, "1.5", contractAddress), chain.ErrReverted)
	})
	t.Run("rejected by user", func(t *testing.T) {
		bridge, wallet := newBridge(t, builtinABI(t))
		wallet.RejectSend = errors.New("User denied transaction signature")
		err := bridge.PayBooking(ctx, 1, "1.5", contractAddress)
		assert.ErrorContains(t, err, "User denied transaction signature")
		assert.Empty(t, wallet.Transactions())
	})
	t.Run("bad amount", func(t *testing.T) {
		bridge, _ := newBridge(t, builtinABI(t))
		assert.ErrorIs(t, bridge.PayBooking(ctx, 1, "one", contractAddress), chain.ErrInvalidAmount)
	})
	t.Run("never mined", func(t *testing.T) {
		bridge, wallet := newBridge(t, builtinABI(t))
		wallet.PendingPolls = 1 << 30
		ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, bridge.PayBooking(ctx, 1, "1.5", contractAddress), context.DeadlineExceeded)
	})
}

func TestBridgeCreateBooking(t *testing.T) {
	t.Parallel()

	bridge, wallet := newBridge(t, builtinABI(t))

	require.NoError(t, bridge.CreateBooking(context.Background(), []string{"1", "3"}, bob.Hex(), contractAddress))

	sent := wallet.Transactions()
	require.Len(t, sent, 1)
	assert.Equal(t, "createBooking", sent[0].Method)
	assert.Equal(t, []string{"1", "3"}, sent[0].Args[0])
	assert.Equal(t, bob, sent[0].Args[1])
	assert.Zero(t, sent[0].Value.Sign())

	err := bridge.CreateBooking(context.Background(), []string{"1"}, "buyer", contractAddress)
	assert.ErrorIs(t, err, chain.ErrInvalidAddress)
}

func TestBridgeCountsCalls(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	wallet := chaintest.NewFakeWallet(builtinABI(t))
	wallet.Authorized = []common.Address{alice}
	wallet.Bookings = sampleBookings()

	connected := chain.NewBridge(wallet.Provider(t), builtinABI(t), log.NewNopLogger(), m)
	_, err := connected.GetAllBookings(context.Background(), contractAddress)
	require.NoError(t, err)

	missing := chain.NewBridge(nil, builtinABI(t), log.NewNopLogger(), m)
	_, err = missing.GetAllBookings(context.Background(), contractAddress)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ContractCalls.WithLabelValues("getAllBookings", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ContractCalls.WithLabelValues("getAllBookings", "no_wallet")))
}
