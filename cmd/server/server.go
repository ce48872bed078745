package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trustbloc/logutil-go/pkg/log"
	"go.uber.org/zap"

	"github.com/kokukuma/pex-verifier/internal/server"
	"github.com/kokukuma/pex-verifier/pex"
)

const (
	envPrefix = "PEX"

	hostURLFlagName        = "host-url"
	logLevelFlagName       = "log-level"
	allowedOriginsFlagName = "allowed-origins"
	selectionFlagName      = "selection"
	configFlagName         = "config"
)

var logger = log.New("pex-server-cmd")

func main() {
	if err := newServerCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServerCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "pex-server",
		Short: "Start the presentation exchange server",
		Long: `Start the presentation exchange server.

Every flag can also be set through the environment with the PEX_ prefix,
e.g. PEX_HOST_URL or PEX_LOG_LEVEL, or through a config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, v); err != nil {
				return err
			}
			return run(v)
		},
	}

	cmd.Flags().String(hostURLFlagName, ":8080", "address the server listens on")
	cmd.Flags().String(logLevelFlagName, log.INFO.String(), "log level: debug, info, warning, error, panic or fatal")
	cmd.Flags().StringSlice(allowedOriginsFlagName, []string{"*"}, "CORS allowed origins")
	cmd.Flags().String(selectionFlagName, pex.FirstMatch.String(), "credentials selected per input descriptor: first or all")
	cmd.Flags().String(configFlagName, "", "config file")

	return cmd
}

func loadConfig(cmd *cobra.Command, v *viper.Viper) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file := v.GetString(configFlagName); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}
	return nil
}

func setLogLevel(userLogLevel string) {
	logLevel, err := log.ParseLevel(userLogLevel)
	if err != nil {
		logger.Warn("invalid log level, defaulting to info", zap.String("level", userLogLevel))
		logLevel = log.INFO
	}
	log.SetLevel("", logLevel)
}

func selectionPolicy(name string) (pex.SelectionPolicy, error) {
	switch name {
	case pex.FirstMatch.String():
		return pex.FirstMatch, nil
	case pex.AllMatches.String():
		return pex.AllMatches, nil
	}
	return 0, fmt.Errorf("unknown selection policy %q", name)
}

func run(v *viper.Viper) error {
	setLogLevel(v.GetString(logLevelFlagName))

	policy, err := selectionPolicy(v.GetString(selectionFlagName))
	if err != nil {
		return err
	}

	srv := server.NewServer(server.WithEngine(pex.New(pex.WithSelectionPolicy(policy))))

	r := mux.NewRouter()
	r.Use(handlers.CORS(
		handlers.AllowedMethods([]string{"POST", "GET"}),
		handlers.AllowedHeaders([]string{"content-type", "accept"}),
		handlers.AllowedOrigins(v.GetStringSlice(allowedOriginsFlagName)),
	))
	srv.Routes(r)

	hostURL := v.GetString(hostURLFlagName)
	logger.Info("starting presentation exchange server",
		zap.String("address", hostURL), zap.String("selection", policy.String()))

	httpServer := &http.Server{
		Addr:              hostURL,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return httpServer.ListenAndServe()
}
