// Package testutil provides doubles shared by service and handler tests.
package testutil

import (
	"context"

	"github.com/m3rciful/lumiabot/internal/model"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock for repository.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Catalog(ctx context.Context) (model.Catalog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Catalog), args.Error(1)
}

func (m *MockRepository) Users(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockRepository) User(ctx context.Context, id int64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockRepository) UpsertUser(ctx context.Context, u model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockRepository) Admins(ctx context.Context) ([]model.Admin, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Admin), args.Error(1)
}

func (m *MockRepository) AddAdmin(ctx context.Context, a model.Admin) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockRepository) RemoveAdmin(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) Blocked(ctx context.Context) ([]model.Blocked, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Blocked), args.Error(1)
}

func (m *MockRepository) AddBlocked(ctx context.Context, b model.Blocked) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockRepository) RemoveBlocked(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
