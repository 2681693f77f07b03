package service

import (
	"errors"
	"fmt"

	"github.com/bitfantasy/procurement/internal/procurement/entity"
	"github.com/bitfantasy/procurement/internal/procurement/repository"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = repository.ErrNotFound
	ErrConflict          = errors.New("conflict")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrOverpayment       = errors.New("overpayment")
	ErrValidation        = errors.New("validation failed")
)

// TransitionError 非法状态流转
type TransitionError struct {
	From entity.POStatus
	To   entity.POStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("Cannot transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// OverpaymentError 付款金额超过未付余额
type OverpaymentError struct {
	Outstanding decimal.Decimal
	Amount      decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("Payment amount exceeds outstanding balance of %s", e.Outstanding.StringFixed(2))
}

func (e *OverpaymentError) Unwrap() error {
	return ErrOverpayment
}

// Error 带可读信息的业务错误，errors.Is 按 Kind 匹配
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func notFound(what, id string) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s with ID %s not found", what, id)}
}

func validationError(format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// conflictFrom 将唯一约束冲突转换为 ErrConflict
func conflictFrom(err error, message string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return &Error{Kind: ErrConflict, Message: message}
	}
	return err
}
