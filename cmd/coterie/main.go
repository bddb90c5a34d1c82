package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coterie/internal/favorites"
	"coterie/internal/model"
	web "coterie/internal/server"
	"coterie/internal/store"
)

var (
	logger     *zap.Logger
	redisAddr  string
	badgerPath string
	port       string
	followAll  bool
)

var rootCmd = &cobra.Command{
	Use:   "coterie",
	Short: "coterie - the article, comment and favorite service",
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server and the favorite-count reconciler",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		// Initialize Store (FULL MODE - Redis + Badger)
		st, err := store.NewHybridStore(redisAddr, badgerPath)
		if err != nil {
			logger.Fatal("Failed to init store", zap.Error(err))
		}
		defer st.Close()

		// Reconciler heals favorite counters queued by torn writes
		rec := favorites.NewReconciler(st, logger)
		go rec.Start(ctx)

		srv := web.NewServer(st, logger)
		go func() {
			if err := srv.Start(port); err != nil {
				logger.Error("Server stopped", zap.Error(err))
				cancel()
			}
		}()

		select {
		case <-sigChan:
			logger.Info("Shutting down...")
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("Shutdown error", zap.Error(err))
		}
		logger.Info("Goodbye!")
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute every article's favorite count from true membership",
	Run: func(cmd *cobra.Command, args []string) {
		// CLIENT MODE - Redis only, counts never touch Badger
		st, err := store.NewHybridStore(redisAddr, "")
		if err != nil {
			logger.Fatal("Failed to init store", zap.Error(err))
		}
		defer st.Close()

		rec := favorites.NewReconciler(st, logger)
		if err := rec.RecountAll(context.Background()); err != nil {
			logger.Fatal("Reconcile pass failed", zap.Error(err))
		}
		logger.Info("Reconcile pass complete")
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed [username...]",
	Short: "Create dev users (auth normally owns user creation)",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := store.NewHybridStore(redisAddr, "")
		if err != nil {
			logger.Fatal("Failed to init store", zap.Error(err))
		}
		defer st.Close()

		ctx := context.Background()
		users := make([]model.User, 0, len(args))
		for _, name := range args {
			users = append(users, model.NewUser(name))
		}
		if followAll {
			for i := range users {
				for j := range users {
					if i != j {
						users[i].Following = append(users[i].Following, users[j].ID)
					}
				}
			}
		}
		for i := range users {
			if err := st.SaveUser(ctx, &users[i]); err != nil {
				logger.Fatal("Failed to save user", zap.Error(err))
			}
			logger.Info("User created",
				zap.String("id", users[i].ID.String()),
				zap.String("username", users[i].Username))
		}
	},
}

// getenv returns the environment value or a fallback for local dev.
func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	var err error
	logger, err = zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", getenv("REDIS_ADDR", "localhost:6379"), "Address of Redis server")
	rootCmd.PersistentFlags().StringVar(&badgerPath, "badger", getenv("BADGER_PATH", "./badger-data"), "Path to BadgerDB data directory")
	serverCmd.Flags().StringVar(&port, "port", getenv("PORT", "8080"), "HTTP listen port")
	seedCmd.Flags().BoolVar(&followAll, "follow-all", false, "Make every seeded user follow the others")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(seedCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
