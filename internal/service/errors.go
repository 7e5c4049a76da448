package service

import (
	"errors"

	"cryptourist/internal/apperr"
	"cryptourist/internal/chain"
)

// chainError переводит ошибки кошелька и контракта в ошибки приложения.
// Исходная ошибка остается доступной через errors.Is.
func chainError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, chain.ErrNoWallet):
		return apperr.UnavailableErr("Кошелек не найден. Установите расширение кошелька.", err)
	case errors.Is(err, chain.ErrNoAccount):
		return &apperr.AppError{Kind: apperr.Unauthorized, PublicMsg: "Подключите кошелек.", Err: err}
	case errors.Is(err, chain.ErrWrongNetwork):
		return apperr.ConflictErr("Переключите кошелек на нужную сеть.", err)
	case errors.Is(err, chain.ErrReverted):
		return apperr.ConflictErr("Транзакция отклонена контрактом.", err)
	case errors.Is(err, chain.ErrInvalidAddress):
		return &apperr.AppError{Kind: apperr.Invalid, PublicMsg: "Некорректный адрес.", Err: err}
	case errors.Is(err, chain.ErrInvalidAmount):
		return &apperr.AppError{Kind: apperr.Invalid, PublicMsg: "Некорректная сумма.", Err: err}
	case errors.Is(err, chain.ErrNoData), errors.Is(err, chain.ErrShapeMismatch):
		return apperr.UnavailableErr("Контракт вернул некорректные данные.", err)
	}
	return apperr.Wrap(err)
}
