// Package chaintest поднимает в памяти JSON-RPC узел, который изображает кошелек
// и контракт бронирований. Используется в тестах chain и service.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"cryptourist/internal/chain"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// SentTx транзакция, отправленная через eth_sendTransaction.
type SentTx struct {
	Method string
	From   common.Address
	To     common.Address
	Value  *big.Int
	Args   []any
}

// FakeWallet состояние поддельного кошелька. Поля можно менять между вызовами,
// доступ к ним из обработчиков защищен мьютексом.
type FakeWallet struct {
	mu sync.Mutex

	abi abi.ABI

	// Authorized аккаунты, уже разрешенные сайту (eth_accounts).
	Authorized []common.Address
	// Available аккаунты, которые пользователь разрешит на eth_requestAccounts.
	Available []common.Address
	ChainID   string
	// SwitchOnAdd переключает сеть кошелька при wallet_addEthereumChain.
	SwitchOnAdd bool

	RejectRequest error
	RejectAdd     error
	RejectSend    error

	Bookings chain.RawBookings
	Articles chain.RawArticles
	// EmptyCall eth_call возвращает "0x".
	EmptyCall bool
	// Revert квитанции приходят со status 0.
	Revert bool
	// PendingPolls сколько раз eth_getTransactionReceipt вернет null перед квитанцией.
	PendingPolls int

	Sent       []SentTx
	AddedChain *chain.NetworkParams

	receipts map[common.Hash]int
}

func NewFakeWallet(contractABI abi.ABI) *FakeWallet {
	return &FakeWallet{
		abi:         contractABI,
		ChainID:     chain.Columbus.ChainID,
		SwitchOnAdd: true,
		receipts:    make(map[common.Hash]int),
	}
}

// Provider регистрирует кошелек в in-process RPC сервере и возвращает подключенный провайдер.
func (w *FakeWallet) Provider(tb testing.TB) *chain.RPCProvider {
	tb.Helper()

	server := rpc.NewServer()
	if err := server.RegisterName("eth", &ethAPI{w: w}); err != nil {
		tb.Fatalf("register eth: %v", err)
	}
	if err := server.RegisterName("wallet", &walletAPI{w: w}); err != nil {
		tb.Fatalf("register wallet: %v", err)
	}
	provider := chain.NewRPCProvider(rpc.DialInProc(server))
	tb.Cleanup(func() {
		provider.Close()
		server.Stop()
	})
	return provider
}

// Transactions возвращает копию отправленных транзакций.
func (w *FakeWallet) Transactions() []SentTx {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]SentTx(nil), w.Sent...)
}

type ethAPI struct {
	w *FakeWallet
}

func (api *ethAPI) Accounts() []common.Address {
	api.w.mu.Lock()
	defer api.w.mu.Unlock()
	return append([]common.Address{}, api.w.Authorized...)
}

func (api *ethAPI) RequestAccounts() ([]common.Address, error) {
	w := api.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.RejectRequest != nil {
		return nil, w.RejectRequest
	}
	if len(w.Authorized) == 0 {
		w.Authorized = append(w.Authorized, w.Available...)
	}
	return append([]common.Address{}, w.Authorized...), nil
}

func (api *ethAPI) ChainId() string { //nolint:stylecheck
	api.w.mu.Lock()
	defer api.w.mu.Unlock()
	return api.w.ChainID
}

func (api *ethAPI) Call(_ context.Context, args chain.CallArgs, _ string) (hexutil.Bytes, error) {
	w := api.w
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.EmptyCall {
		return hexutil.Bytes{}, nil
	}
	method, err := w.method(args.Data)
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "getAllBookings":
		b := w.Bookings
		return method.Outputs.Pack(nonNil(b.IDs), nonNil(b.Amounts), nonNil(b.OperatorFees), nonNil(b.Timestamps),
			nonNil(b.Customers), nonNil(b.Payers), nonNil(b.PaidStatus), nonNil(b.CompletedStatus), nonNil(b.RefundedStatus))
	case "getAllArticles":
		a := w.Articles
		return method.Outputs.Pack(nonNil(a.IDs), nonNil(a.Titles), nonNil(a.Addresses), nonNil(a.Prices), nonNil(a.ActiveStatus))
	}
	return nil, fmt.Errorf("метод %s не вызывается через eth_call", method.Name)
}

func (api *ethAPI) SendTransaction(args chain.CallArgs) (common.Hash, error) {
	w := api.w
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.RejectSend != nil {
		return common.Hash{}, w.RejectSend
	}
	method, err := w.method(args.Data)
	if err != nil {
		return common.Hash{}, err
	}
	inputs, err := method.Inputs.Unpack(args.Data[4:])
	if err != nil {
		return common.Hash{}, err
	}

	value := new(big.Int)
	if args.Value != nil {
		value = args.Value.ToInt()
	}
	w.Sent = append(w.Sent, SentTx{Method: method.Name, From: args.From, To: args.To, Value: value, Args: inputs})

	if method.Name == "payBooking" && !w.Revert {
		w.markPaid(inputs[0].(*big.Int), args.From)
	}

	hash := common.BigToHash(big.NewInt(int64(len(w.Sent))))
	w.receipts[hash] = w.PendingPolls
	return hash, nil
}

func (api *ethAPI) GetTransactionReceipt(hash common.Hash) (*chain.Receipt, error) {
	w := api.w
	w.mu.Lock()
	defer w.mu.Unlock()

	pending, ok := w.receipts[hash]
	if !ok {
		return nil, nil
	}
	if pending > 0 {
		w.receipts[hash] = pending - 1
		return nil, nil
	}
	status := hexutil.Uint64(1)
	if w.Revert {
		status = 0
	}
	return &chain.Receipt{
		TransactionHash: hash,
		BlockNumber:     (*hexutil.Big)(big.NewInt(1)),
		Status:          status,
	}, nil
}

type walletAPI struct {
	w *FakeWallet
}

func (api *walletAPI) AddEthereumChain(params chain.NetworkParams) error {
	w := api.w
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.RejectAdd != nil {
		return w.RejectAdd
	}
	w.AddedChain = &params
	if w.SwitchOnAdd {
		w.ChainID = params.ChainID
	}
	return nil
}

func (w *FakeWallet) method(data []byte) (*abi.Method, error) {
	if len(data) < 4 {
		return nil, errors.New("нет селектора метода")
	}
	return w.abi.MethodById(data[:4])
}

func (w *FakeWallet) markPaid(id *big.Int, payer common.Address) {
	for i, bid := range w.Bookings.IDs {
		if bid.Cmp(id) == 0 && i < len(w.Bookings.PaidStatus) && i < len(w.Bookings.Payers) {
			w.Bookings.PaidStatus[i] = true
			w.Bookings.Payers[i] = payer
		}
	}
}

// nonNil заменяет nil-срез пустым: abi не кодирует nil.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
