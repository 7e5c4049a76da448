package chain

import "errors"

var (
	// ErrNoWallet провайдер кошелька не настроен.
	ErrNoWallet = errors.New("wallet provider not found")
	// ErrNoAccount кошелек не авторизовал ни одного аккаунта.
	ErrNoAccount = errors.New("no authorized wallet account")
	// ErrNoData контракт не вернул данных.
	ErrNoData = errors.New("no data returned from contract")
	// ErrWrongNetwork кошелек подключен не к той сети.
	ErrWrongNetwork = errors.New("wallet is connected to a different network")
	// ErrReverted транзакция попала в блок, но была отменена контрактом.
	ErrReverted = errors.New("transaction reverted")
	// ErrShapeMismatch параллельные массивы в ответе контракта разной длины.
	ErrShapeMismatch = errors.New("contract response arrays have different lengths")
	// ErrInvalidAddress строка не является адресом 0x + 40 hex.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrInvalidAmount сумму нельзя разобрать или она отрицательна.
	ErrInvalidAmount = errors.New("invalid amount")
)
