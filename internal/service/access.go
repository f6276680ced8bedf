package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/m3rciful/lumiabot/core/logger"
	"github.com/m3rciful/lumiabot/internal/errs"
	"github.com/m3rciful/lumiabot/internal/model"
	"github.com/m3rciful/lumiabot/internal/repository"
)

// Access answers role questions and applies admin and block changes.
type Access struct {
	repo   repository.Repository
	supers map[int64]struct{}
}

// NewAccess builds the access service over repo and the configured super admins.
func NewAccess(repo repository.Repository, superAdmins []int64) *Access {
	supers := make(map[int64]struct{}, len(superAdmins))
	for _, id := range superAdmins {
		supers[id] = struct{}{}
	}
	return &Access{repo: repo, supers: supers}
}

// SuperAdmins returns the configured super admin ids in ascending order.
func (a *Access) SuperAdmins() []int64 {
	out := make([]int64, 0, len(a.supers))
	for id := range a.supers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsSuperAdmin reports whether id is a configured super admin.
func (a *Access) IsSuperAdmin(id int64) bool {
	_, ok := a.supers[id]
	return ok
}

// IsAdmin reports whether id is a stored admin or a super admin.
// Store errors deny.
func (a *Access) IsAdmin(ctx context.Context, id int64) bool {
	if a.IsSuperAdmin(id) {
		return true
	}
	admins, err := a.repo.Admins(ctx)
	if err != nil {
		logger.Error(ctx, "service.access", "admins.load_failed",
			slog.String("err", err.Error()),
		)
		return false
	}
	for _, adm := range admins {
		if adm.ID == id {
			return true
		}
	}
	return false
}

// IsPrivileged is an alias of IsAdmin used by quota and blocking rules.
func (a *Access) IsPrivileged(ctx context.Context, id int64) bool {
	return a.IsAdmin(ctx, id)
}

// BlockedReason returns the block reason when id is blocked.
// Store errors are treated as not blocked so the bot stays usable.
func (a *Access) BlockedReason(ctx context.Context, id int64) (string, bool) {
	blocked, err := a.repo.Blocked(ctx)
	if err != nil {
		logger.Error(ctx, "service.access", "blocked.load_failed",
			slog.String("err", err.Error()),
		)
		return "", false
	}
	for _, b := range blocked {
		if b.ID == id {
			return b.Reason, true
		}
	}
	return "", false
}

// Promote stores target as an admin.
func (a *Access) Promote(ctx context.Context, target model.Admin) error {
	if _, blocked := a.BlockedReason(ctx, target.ID); blocked {
		return errs.ErrBlockedTarget
	}
	if a.IsSuperAdmin(target.ID) {
		return errs.ErrAlreadyAdmin
	}
	if err := a.repo.AddAdmin(ctx, target); err != nil {
		return fmt.Errorf("promote %d: %w", target.ID, err)
	}
	logger.Info(ctx, "service.access", "admin.promoted",
		slog.Int64("target_id", target.ID),
	)
	return nil
}

// Demote removes a stored admin. Super admins cannot be demoted.
func (a *Access) Demote(ctx context.Context, id int64) error {
	if a.IsSuperAdmin(id) {
		return errs.ErrSuperAdminTarget
	}
	if err := a.repo.RemoveAdmin(ctx, id); err != nil {
		return fmt.Errorf("demote %d: %w", id, err)
	}
	logger.Info(ctx, "service.access", "admin.demoted",
		slog.Int64("target_id", id),
	)
	return nil
}

// Block bans target. Privileged users cannot be blocked.
func (a *Access) Block(ctx context.Context, target model.Blocked) error {
	if a.IsPrivileged(ctx, target.ID) {
		return errs.ErrPrivilegedTarget
	}
	if err := a.repo.AddBlocked(ctx, target); err != nil {
		return fmt.Errorf("block %d: %w", target.ID, err)
	}
	logger.Info(ctx, "service.access", "user.blocked",
		slog.Int64("target_id", target.ID),
	)
	return nil
}

// Unblock lifts a ban.
func (a *Access) Unblock(ctx context.Context, id int64) error {
	if err := a.repo.RemoveBlocked(ctx, id); err != nil {
		return fmt.Errorf("unblock %d: %w", id, err)
	}
	logger.Info(ctx, "service.access", "user.unblocked",
		slog.Int64("target_id", id),
	)
	return nil
}

// Admins lists stored admins.
func (a *Access) Admins(ctx context.Context) ([]model.Admin, error) {
	return a.repo.Admins(ctx)
}

// Blocked lists blocked users.
func (a *Access) Blocked(ctx context.Context) ([]model.Blocked, error) {
	return a.repo.Blocked(ctx)
}

// Recipients returns every user and admin id once, users first.
func (a *Access) Recipients(ctx context.Context) ([]int64, error) {
	users, err := a.repo.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("recipients: %w", err)
	}
	admins, err := a.repo.Admins(ctx)
	if err != nil {
		return nil, fmt.Errorf("recipients: %w", err)
	}
	seen := make(map[int64]struct{}, len(users)+len(admins))
	out := make([]int64, 0, len(users)+len(admins))
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, u := range users {
		add(u.ID)
	}
	for _, adm := range admins {
		add(adm.ID)
	}
	return out, nil
}

// EnsureUser saves a record for p on first contact. Privileged users are
// not tracked. It reports whether the user was already known.
func (a *Access) EnsureUser(ctx context.Context, p model.Profile, now time.Time) (bool, error) {
	_, err := a.repo.User(ctx, p.ID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return false, fmt.Errorf("ensure user: %w", err)
	}
	if a.IsPrivileged(ctx, p.ID) {
		return false, nil
	}
	if err := a.repo.UpsertUser(ctx, model.NewUser(p, now)); err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}
	return false, nil
}
