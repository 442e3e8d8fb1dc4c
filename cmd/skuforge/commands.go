package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skuforge/internal/config"
	"skuforge/internal/logging"
	"skuforge/internal/server"
	"skuforge/internal/service/excel"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "skuforge",
		Short:         "skuforge - marketplace spreadsheet template export",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newInspectCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		port    int
		devMode bool
		dataDir string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, info, err := config.LoadConfigWithInfo()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			// 命令行参数仅在配置文件和环境变量未指定端口时生效
			if port > 0 && !info.PortSpecified {
				cfg.Server.Port = port
			}
			if devMode {
				cfg.Server.DevMode = true
			}
			if dataDir != "" {
				cfg.Data.DataDir = dataDir
			}

			logger, err := logging.Setup(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			defer logger.Sync()

			logger.Info("starting skuforge",
				zap.String("version", version),
				zap.String("config", info.Path),
				zap.Bool("config_found", info.FileFound),
				zap.Int("port", cfg.Server.Port),
			)

			srv, err := server.NewServer(cfg, logger, version)
			if err != nil {
				return err
			}
			defer srv.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.Run(ctx, fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (used only when config.toml and SKUFORGE_PORT leave it unset)")
	cmd.Flags().BoolVar(&devMode, "dev", false, "development mode (gin debug output)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "data directory (overrides config)")
	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Infer a template's schema and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res, err := excel.NewInferencer().Infer(data)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", args[0], err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

