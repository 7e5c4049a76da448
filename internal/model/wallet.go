package model

// WalletState состояние подключения кошелька в текущей сессии.
type WalletState struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address"`
}
