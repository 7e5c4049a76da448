package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"cryptourist/internal/log"
	"cryptourist/internal/metrics"
	"cryptourist/internal/model"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const defaultPollInterval = time.Second

// CallArgs параметры eth_call и eth_sendTransaction.
type CallArgs struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Data  hexutil.Bytes  `json:"data"`
	Value *hexutil.Big   `json:"value,omitempty"`
}

// Receipt поля квитанции транзакции, нужные для ожидания подтверждения.
type Receipt struct {
	TransactionHash common.Hash    `json:"transactionHash"`
	BlockNumber     *hexutil.Big   `json:"blockNumber"`
	Status          hexutil.Uint64 `json:"status"`
}

// Bridge вызывает методы контракта бронирований через провайдер кошелька.
// Подписант - первый авторизованный аккаунт кошелька.
type Bridge struct {
	provider     Provider
	abi          abi.ABI
	log          log.Logger
	metrics      *metrics.Metrics
	pollInterval time.Duration
}

// NewBridge создает мост к контракту. provider может быть nil: тогда все операции
// возвращают ErrNoWallet.
func NewBridge(provider Provider, contractABI abi.ABI, logger log.Logger, m *metrics.Metrics) *Bridge {
	return &Bridge{
		provider:     provider,
		abi:          contractABI,
		log:          logger,
		metrics:      m,
		pollInterval: defaultPollInterval,
	}
}

// WithPollInterval задает интервал опроса квитанции транзакции.
func (b *Bridge) WithPollInterval(d time.Duration) *Bridge {
	b.pollInterval = d
	return b
}

// GetAllBookings читает все бронирования контракта.
func (b *Bridge) GetAllBookings(ctx context.Context, contractAddress string) ([]model.Booking, error) {
	out, err := b.read(ctx, contractAddress, methodGetAllBookings)
	if err != nil {
		return nil, err
	}
	bookings, err := ParseBookings(out)
	b.observe(methodGetAllBookings, err)
	if err != nil {
		return nil, fmt.Errorf("разбор бронирований: %w", err)
	}
	return bookings, nil
}

// GetAllArticles читает все позиции каталога контракта.
func (b *Bridge) GetAllArticles(ctx context.Context, contractAddress string) ([]model.Article, error) {
	out, err := b.read(ctx, contractAddress, methodGetAllArticles)
	if err != nil {
		return nil, err
	}
	articles, err := ParseArticles(out)
	b.observe(methodGetAllArticles, err)
	if err != nil {
		return nil, fmt.Errorf("разбор позиций: %w", err)
	}
	return articles, nil
}

// PayBooking оплачивает бронирование: amount - десятичная сумма в валюте сети,
// уходит в value транзакции. Возвращается после подтверждения в блоке.
func (b *Bridge) PayBooking(ctx context.Context, bookingID int64, amount string, contractAddress string) error {
	value, err := ToWei(amount)
	if err != nil {
		return err
	}
	data, err := b.abi.Pack(methodPayBooking, big.NewInt(bookingID))
	if err != nil {
		return fmt.Errorf("кодирование payBooking: %w", err)
	}
	err = b.transact(ctx, contractAddress, methodPayBooking, data, value)
	b.observe(methodPayBooking, err)
	return err
}

// CreateBooking создает бронирование на список позиций одной транзакцией.
func (b *Bridge) CreateBooking(ctx context.Context, articleIDs []string, buyerAddress string, contractAddress string) error {
	if !common.IsHexAddress(buyerAddress) {
		return fmt.Errorf("%w: покупатель %q", ErrInvalidAddress, buyerAddress)
	}
	data, err := b.abi.Pack(methodCreateBooking, articleIDs, common.HexToAddress(buyerAddress))
	if err != nil {
		return fmt.Errorf("кодирование createBooking: %w", err)
	}
	err = b.transact(ctx, contractAddress, methodCreateBooking, data, nil)
	b.observe(methodCreateBooking, err)
	return err
}

func (b *Bridge) read(ctx context.Context, contractAddress, method string) (any, error) {
	out, err := b.call(ctx, contractAddress, method)
	if err != nil {
		b.observe(method, err)
		return nil, err
	}
	return out, nil
}

func (b *Bridge) call(ctx context.Context, contractAddress, method string) (any, error) {
	if b.provider == nil {
		return nil, ErrNoWallet
	}
	to, err := parseAddress(contractAddress)
	if err != nil {
		return nil, err
	}
	from, err := b.signer(ctx)
	if err != nil {
		return nil, err
	}
	input, err := b.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("кодирование %s: %w", method, err)
	}

	var output hexutil.Bytes
	args := CallArgs{From: from, To: to, Data: input}
	if err := b.provider.Request(ctx, &output, "eth_call", args, "latest"); err != nil {
		return nil, fmt.Errorf("вызов %s: %w", method, err)
	}
	if len(output) == 0 {
		return nil, ErrNoData
	}

	outputs := b.abi.Methods[method].Outputs
	if namedOutputs(outputs) {
		named := make(map[string]any, len(outputs))
		if err := outputs.UnpackIntoMap(named, output); err != nil {
			return nil, fmt.Errorf("распаковка %s: %w", method, err)
		}
		return named, nil
	}
	values, err := outputs.Unpack(output)
	if err != nil {
		return nil, fmt.Errorf("распаковка %s: %w", method, err)
	}
	return values, nil
}

func (b *Bridge) transact(ctx context.Context, contractAddress, method string, data []byte, value *big.Int) error {
	if b.provider == nil {
		return ErrNoWallet
	}
	to, err := parseAddress(contractAddress)
	if err != nil {
		return err
	}
	from, err := b.signer(ctx)
	if err != nil {
		return err
	}

	args := CallArgs{From: from, To: to, Data: data}
	if value != nil {
		args.Value = (*hexutil.Big)(value)
	}
	var hash common.Hash
	if err := b.provider.Request(ctx, &hash, "eth_sendTransaction", args); err != nil {
		b.log.Errorw("Транзакция отклонена", "method", method, "error", err)
		return err
	}
	b.log.Infow("Транзакция отправлена", "method", method, "hash", hash.Hex())

	receipt, err := b.waitMined(ctx, hash)
	if err != nil {
		return err
	}
	if receipt.Status != 1 {
		return fmt.Errorf("%w: %s", ErrReverted, hash.Hex())
	}
	b.log.Infow("Транзакция подтверждена", "method", method, "hash", hash.Hex())
	return nil
}

// waitMined опрашивает квитанцию, пока транзакция не попадет в блок или не отменится ctx.
func (b *Bridge) waitMined(ctx context.Context, hash common.Hash) (*Receipt, error) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		var receipt *Receipt
		if err := b.provider.Request(ctx, &receipt, "eth_getTransactionReceipt", hash); err != nil {
			return nil, fmt.Errorf("получение квитанции %s: %w", hash.Hex(), err)
		}
		if receipt != nil {
			return receipt, nil
		}
		b.log.Debugw("Транзакция еще не в блоке", "hash", hash.Hex())

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// signer возвращает первый авторизованный аккаунт кошелька.
func (b *Bridge) signer(ctx context.Context) (common.Address, error) {
	var accounts []common.Address
	if err := b.provider.Request(ctx, &accounts, "eth_accounts"); err != nil {
		return common.Address{}, fmt.Errorf("получение аккаунтов кошелька: %w", err)
	}
	if len(accounts) == 0 {
		return common.Address{}, ErrNoAccount
	}
	return accounts[0], nil
}

func (b *Bridge) observe(method string, err error) {
	if b.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNoWallet):
		status = "no_wallet"
	default:
		status = "error"
	}
	b.metrics.ContractCalls.WithLabelValues(method, status).Inc()
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: контракт %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}
