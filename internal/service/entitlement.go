package service

import (
	"context"

	"testwise_attempt/internal/model"
	"testwise_attempt/internal/util"
)

// RoleEntitlement admits students only. Staff accounts author tests and do
// not take them.
type RoleEntitlement struct{}

func (RoleEntitlement) CheckEntitled(ctx context.Context, p model.Principal, testID uint) error {
	if p.UserID == 0 || p.Role != model.Student {
		return util.ErrNotEntitled
	}
	return nil
}
