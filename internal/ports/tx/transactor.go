package tx

import "context"

// Transactor ejecuta fn dentro de una única transacción: commit si fn devuelve
// nil, rollback ante cualquier error. El ctx que recibe fn lleva la transacción;
// los repos deben usar ese ctx para participar en ella.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Func adapta una función a Transactor (útil en tests).
type Func func(ctx context.Context, fn func(ctx context.Context) error) error

func (f Func) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// None ejecuta fn sin transacción.
var None Transactor = Func(func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
})
