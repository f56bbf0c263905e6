package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/managectl/internal/agent"
	"github.com/danmuck/managectl/internal/auth"
	"github.com/danmuck/managectl/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func (a *cli) serveCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve configured Django apps over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			registry, err := cfg.Registry()
			if err != nil {
				return err
			}
			log.Info().Str("path", configPath).Int("apps", registry.Len()).Msg("loaded agent config")

			gin.SetMode(gin.ReleaseMode)
			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			srv := agent.New(cfg.Name, cfg.Addr, cfg.CorsOrigins, registry)
			if cfg.AuthToken != "" {
				srv.Auth = auth.StaticToken{Token: cfg.AuthToken}
			} else {
				log.Warn().Msg("auth_token unset; action routes are open")
			}
			return srv.Serve(ctx)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "managectl.toml", "agent config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
