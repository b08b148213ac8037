package main

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/course-management-api/internal/models"
	"github.com/noah-isme/course-management-api/internal/repository"
)

const minPasswordLength = 6

func (cli *commandLine) createAdmin(email, firstName, lastName, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email %q", email)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := cli.users.Create(context.Background(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("email %s is already registered", email)
		}
		return err
	}
	cli.logger.Info("admin created", zap.String("user_id", user.ID), zap.String("email", email))
	return nil
}
