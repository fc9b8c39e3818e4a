package service

import (
	"context"

	"basegraph.app/gapengine/core/db"
	"basegraph.app/gapengine/core/db/sqlc"
	"basegraph.app/gapengine/internal/store"
)

// StoreProvider exposes only the stores needed by a transactional operation.
type StoreProvider interface {
	Jobs() store.JobStore
	Results() store.ResultStore
}

// TxRunner runs functions within a transaction and provides stores bound to that transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

type dbTxRunner struct {
	db *db.DB
}

// NewTxRunner builds a TxRunner backed by the core DB.
func NewTxRunner(db *db.DB) TxRunner {
	return &dbTxRunner{db: db}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return r.db.WithTx(ctx, func(q *sqlc.Queries) error {
		stores := store.NewStores(q)
		return fn(stores)
	})
}

type directTxRunner struct {
	stores StoreProvider
}

// NewDirectTxRunner runs fn straight against stores with no transaction. Only
// meant for in-memory stores.
func NewDirectTxRunner(stores StoreProvider) TxRunner {
	return &directTxRunner{stores: stores}
}

func (r *directTxRunner) WithTx(_ context.Context, fn func(stores StoreProvider) error) error {
	return fn(r.stores)
}
