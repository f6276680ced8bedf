// Package repository defines the record store the bot depends on.
// Implementations live in subpackages (jsonstore, postgres).
package repository

import (
	"context"

	"github.com/m3rciful/lumiabot/internal/model"
)

// Repository persists users, admins, blocked users and exposes the catalog.
//
// AddAdmin returns errs.ErrAlreadyAdmin, RemoveAdmin errs.ErrNotAdmin,
// AddBlocked errs.ErrAlreadyBlocked and RemoveBlocked errs.ErrNotBlocked
// when the operation would be a no-op. User returns errs.ErrNotFound.
type Repository interface {
	Catalog(ctx context.Context) (model.Catalog, error)

	Users(ctx context.Context) ([]model.User, error)
	User(ctx context.Context, id int64) (model.User, error)
	UpsertUser(ctx context.Context, u model.User) error

	Admins(ctx context.Context) ([]model.Admin, error)
	AddAdmin(ctx context.Context, a model.Admin) error
	RemoveAdmin(ctx context.Context, id int64) error

	Blocked(ctx context.Context) ([]model.Blocked, error)
	AddBlocked(ctx context.Context, b model.Blocked) error
	RemoveBlocked(ctx context.Context, id int64) error
}
