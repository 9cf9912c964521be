package domain

import "errors"

// Errores sentinel sobre los que los callers hacen branch.
var (
	// ErrDuplicateSignal: el transaction hash ya existe. Un insert race entre
	// pollers concurrentes se reporta como duplicado, no como fallo.
	ErrDuplicateSignal = errors.New("duplicate signal")

	// ErrInsufficientBalance: el portfolio no cubre el stake solicitado.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrPositionNotOpen: settlement sobre una posición que ya no está OPEN.
	// El segundo intento concurrente debe ser un no-op.
	ErrPositionNotOpen = errors.New("position not open")

	// ErrMarketNotFound: el mercado no existe upstream (404). Señal
	// irresoluble: se marca ERROR y no se reintenta indefinidamente.
	ErrMarketNotFound = errors.New("market not found")

	// ErrNoQuote: el venue no tiene precio actual para el outcome pedido.
	ErrNoQuote = errors.New("no quote available")
)
