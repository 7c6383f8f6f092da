package models

import (
	"errors"
	"fmt"
)

// ErrOrderNotFound — биржа не знает ордер: уже исполнен, отменён или не существовал.
var ErrOrderNotFound = errors.New("order not found")

// ErrorKind — класс ошибки, по которому цикл решает: продолжать или выходить.
type ErrorKind int

const (
	KindUnclassified ErrorKind = iota
	KindFilterViolation
	KindStreamTransient
	KindExchangeRejected
	KindRecordSinkFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindFilterViolation:
		return "filter_violation"
	case KindStreamTransient:
		return "stream_transient"
	case KindExchangeRejected:
		return "exchange_rejected"
	case KindRecordSinkFailure:
		return "record_sink_failure"
	default:
		return "unclassified"
	}
}

// Recoverable — цикл переживает такие ошибки без остановки.
func (k ErrorKind) Recoverable() bool {
	return k == KindStreamTransient || k == KindRecordSinkFailure
}

type Error struct {
	Kind ErrorKind
	Op   string
	// Code/Msg — код и текст ошибки биржи, если есть
	Code int
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Code != 0:
		return fmt.Sprintf("%s: %s: code=%d msg=%s", e.Op, e.Kind, e.Code, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf достаёт класс ошибки из цепочки; всё незнакомое — Unclassified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnclassified
}

// ExchangeCode — код ошибки биржи из цепочки, 0 если его нет.
func ExchangeCode(err error) (int, string) {
	var e *Error
	for errors.As(err, &e) {
		if e.Code != 0 {
			return e.Code, e.Msg
		}
		if e.Err == nil {
			break
		}
		err = e.Err
	}
	return 0, ""
}
