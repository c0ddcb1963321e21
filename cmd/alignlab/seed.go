package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"alignlab/internal/auth"
	"alignlab/internal/db"
	"alignlab/internal/store"
	"alignlab/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:   "seed",
	Usage:  "Create the initial admin account",
	Action: seed,
}

func seed(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig()
	if err != nil {
		return err
	}

	if config.AdminEmail == "" || config.AdminPassword == "" {
		return fmt.Errorf("set ADMIN_EMAIL and ADMIN_PASSWORD")
	}

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	hash, err := auth.HashPassword(config.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	userRepo := store.NewUserRepository(pool)
	err = userRepo.UpsertUserByEmail(ctx, &types.User{
		Email:        config.AdminEmail,
		FullName:     config.AdminFullName,
		PasswordHash: hash,
		Role:         types.UserRoleLab,
		IsAdmin:      true,
		IsActive:     true,
	})
	if err != nil {
		return err
	}

	logrus.WithField("email", config.AdminEmail).Info("admin account seeded")
	return nil
}
