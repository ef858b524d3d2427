package model

import "errors"

var (
	ErrMissingSymbol       = errors.New("missing symbol")
	ErrUnknownSide         = errors.New("unknown order side")
	ErrUnknownOrderType    = errors.New("unknown order type")
	ErrNonPositiveQuantity = errors.New("quantity must be positive")
	ErrMissingLimitPrice   = errors.New("limit price required")
	ErrMissingStopPrice    = errors.New("stop price required")
)
