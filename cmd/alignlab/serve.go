package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alignlab/internal/auth"
	"alignlab/internal/db"
	"alignlab/internal/mail"
	"alignlab/internal/server"
	"alignlab/internal/storage"
	"alignlab/internal/store"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	config, err := loadConfig()
	if err != nil {
		return err
	}

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return err
	}

	s3Client := s3.NewFromConfig(awsConfig)
	objectStorage := storage.NewS3Storage(s3Client, config.S3BucketName)

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := store.NewUserRepository(pool)
	tokenRepo := store.NewTokenRepository(pool)
	requestRepo := store.NewRequestRepository(pool)
	fileRepo := store.NewRequestFileRepository(pool)

	if err := tokenRepo.DeleteExpiredTokens(ctx); err != nil {
		logger.WithError(err).Warn("failed to prune expired tokens")
	}

	tokens, err := auth.NewTokenService(
		config.TokenSecret,
		config.AppName,
		time.Duration(config.TokenTTLHours)*time.Hour,
	)
	if err != nil {
		return err
	}

	mailer, err := mail.NewMailer(config)
	if err != nil {
		return err
	}

	srv := server.New(
		config,
		logger,
		tokens,
		userRepo,
		requestRepo,
		fileRepo,
		tokenRepo,
		objectStorage,
		mailer,
	)

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
