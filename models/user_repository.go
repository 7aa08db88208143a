package models

import (
	"context"
	"strings"
)

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
}

func (r *GormRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.conn(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepository) CreateUser(ctx context.Context, user *User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return r.conn(ctx).Create(user).Error
}
