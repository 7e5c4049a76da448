package service

import (
	"context"
	"fmt"
	"sync"

	"cryptourist/internal/chain"
	"cryptourist/internal/log"
	"cryptourist/internal/model"

	"github.com/ethereum/go-ethereum/common"
)

// WalletService сессия кошелька: подключен ли он и какой аккаунт активен.
// Отзыв разрешения на стороне кошелька не поддерживается, Disconnect сбрасывает только локальное состояние.
type WalletService struct {
	provider chain.Provider
	network  chain.NetworkParams
	log      log.Logger

	mu    sync.RWMutex
	state model.WalletState
}

// NewWalletService создает сессию. provider == nil означает, что кошелька нет.
func NewWalletService(provider chain.Provider, network chain.NetworkParams, logger log.Logger) *WalletService {
	return &WalletService{provider: provider, network: network, log: logger}
}

// CheckConnection проверяет уже разрешенные аккаунты без запроса пользователю.
func (s *WalletService) CheckConnection(ctx context.Context) error {
	if s.provider == nil {
		return chainError(chain.ErrNoWallet)
	}
	var accounts []common.Address
	if err := s.provider.Request(ctx, &accounts, "eth_accounts"); err != nil {
		s.log.Errorw("Ошибка проверки подключения кошелька", "error", err)
		return chainError(err)
	}
	if len(accounts) > 0 {
		s.setConnected(accounts[0])
	}
	return nil
}

// Connect добавляет/переключает сеть, запрашивает аккаунты и проверяет идентификатор сети.
// При любой ошибке состояние сессии не меняется, повторов нет.
func (s *WalletService) Connect(ctx context.Context) error {
	if s.provider == nil {
		return chainError(chain.ErrNoWallet)
	}
	if err := s.provider.Request(ctx, nil, "wallet_addEthereumChain", s.network); err != nil {
		s.log.Errorw("Кошелек отклонил добавление сети", "chain", s.network.ChainName, "error", err)
		return chainError(err)
	}
	var requested []common.Address
	if err := s.provider.Request(ctx, &requested, "eth_requestAccounts"); err != nil {
		s.log.Errorw("Кошелек отклонил запрос аккаунтов", "error", err)
		return chainError(err)
	}

	var chainID string
	if err := s.provider.Request(ctx, &chainID, "eth_chainId"); err != nil {
		s.log.Errorw("Не удалось получить идентификатор сети", "error", err)
		return chainError(err)
	}
	if !chain.SameChain(chainID, s.network.ChainID) {
		s.log.Warnw("Кошелек подключен к другой сети", "expected", s.network.ChainID, "actual", chainID)
		return chainError(fmt.Errorf("%w: ожидалась %s, получена %s", chain.ErrWrongNetwork, s.network.ChainID, chainID))
	}

	var accounts []common.Address
	if err := s.provider.Request(ctx, &accounts, "eth_accounts"); err != nil {
		s.log.Errorw("Не удалось получить аккаунты кошелька", "error", err)
		return chainError(err)
	}
	if len(accounts) == 0 {
		s.log.Warnw("Кошелек не разрешил ни одного аккаунта")
		return chainError(chain.ErrNoAccount)
	}
	s.setConnected(accounts[0])
	s.log.Infow("Кошелек подключен", "address", accounts[0].Hex(), "chainId", chainID)
	return nil
}

// Disconnect сбрасывает локальное состояние сессии.
func (s *WalletService) Disconnect() {
	s.mu.Lock()
	s.state = model.WalletState{}
	s.mu.Unlock()
}

func (s *WalletService) State() model.WalletState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Network параметры сети, в которую переключается кошелек.
func (s *WalletService) Network() chain.NetworkParams {
	return s.network
}

func (s *WalletService) setConnected(address common.Address) {
	s.mu.Lock()
	s.state = model.WalletState{Connected: true, Address: address.Hex()}
	s.mu.Unlock()
}
