package main

import (
	"context"
	stdlog "log"

	"productservice/internal/app"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		stdlog.Fatalf("Application failed: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "product-service",
		Short:         "Product service with asynchronous stock updates",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Ensure the stock topic, then serve HTTP and consume stock updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	})

	topicCmd := &cobra.Command{Use: "topic", Short: "Topic commands"}
	topicCmd.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Create the stock update topic if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.EnsureTopic(cmd.Context())
		},
	})
	rootCmd.AddCommand(topicCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Migrate(cmd.Context())
		},
	})

	return rootCmd
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	application, err := app.NewApplication(ctx)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	return application.Run()
}
