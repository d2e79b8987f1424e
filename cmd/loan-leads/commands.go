package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/loan-leads/internal/config"
	"github.com/iwvelando/loan-leads/internal/poller"
	"github.com/iwvelando/loan-leads/internal/prospect"
	"github.com/iwvelando/loan-leads/internal/server"
	"github.com/iwvelando/loan-leads/internal/store"
	"github.com/iwvelando/loan-leads/internal/trackingclient"
	"github.com/iwvelando/loan-leads/pkg/constants"
	"github.com/iwvelando/loan-leads/pkg/credit"
	"github.com/iwvelando/loan-leads/pkg/output"
	"github.com/iwvelando/loan-leads/pkg/tracking"
	"github.com/iwvelando/loan-leads/pkg/validation"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// setup loads the env file and configuration, builds the logger and resolves
// the output format shared by the simulate and track commands.
func setup(envFile, configPath, logLevel, outputFormatFlag string) (*config.Configuration, *zap.Logger, string, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, nil, "", err
	}
	conf, err := loadConfiguration(configPath)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to load configuration at %s: %w", configPath, err)
	}
	if err := conf.Validate(); err != nil {
		return nil, nil, "", fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := initializeLogger(conf.Logging, logLevel)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if outputFormatFlag != "" {
		outputFormat = outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return nil, nil, "", err
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Debug("Configuration warning: "+warning,
			zap.String("op", "main.setup"),
		)
	}
	return conf, logger, outputFormat, nil
}

func runSimulate(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	envFile := fs.String("env-file", constants.DefaultEnvFile, "dotenv file with LOANLEADS_ overrides")
	configPath := fs.String("config", "", "path to configuration file (built-in catalog when empty)")
	logLevel := fs.String("log-level", "", "log level override (debug, info, warn, error)")
	outputFormatFlag := fs.String("output-format", "", "type of output override: pretty, csv, json")
	productID := fs.String("product", "", "catalog product id, e.g. PROD-KPR")
	amount := fs.Float64("amount", 0, "loan amount in rupiah")
	tenor := fs.Int("tenor", 0, "tenor in the product's tenor unit")
	housePrice := fs.Float64("house-price", 0, "house price for KPR products")
	downPayment := fs.Float64("down-payment", -1, "down payment percentage for KPR products")
	purpose := fs.String("purpose", "", "KPR purpose")
	collateral := fs.String("collateral", "", "KPR collateral type")
	loanPurpose := fs.String("loan-purpose", "", "KMG loan purpose")
	businessType := fs.String("business-type", "", "Mikro business type")
	if err := fs.Parse(args); err != nil {
		return err
	}

	conf, logger, outputFormat, err := setup(*envFile, *configPath, *logLevel, *outputFormatFlag)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	products, err := conf.Products()
	if err != nil {
		return err
	}
	product, ok := products.Lookup(*productID)
	if !ok {
		return fmt.Errorf("unknown product %q", *productID)
	}

	input := credit.Input{
		ProductID:      product.ID,
		LoanAmount:     *amount,
		Tenor:          *tenor,
		Purpose:        *purpose,
		CollateralType: *collateral,
		HousePrice:     *housePrice,
		LoanPurpose:    *loanPurpose,
		BusinessType:   *businessType,
	}
	if *downPayment >= 0 {
		input.DownPaymentPercent = downPayment
	}

	if v := credit.Validate(input, product); !v.Valid {
		logger.Info("simulation rejected",
			zap.String("op", "main.runSimulate"),
			zap.String("product", product.ID),
			zap.String("reason", v.Reason),
		)
		return fmt.Errorf("simulation rejected: %s", v.Reason)
	}

	return output.Simulation(w, outputFormat, product, input, credit.Calculate(input, product))
}

func runTrack(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("track", flag.ContinueOnError)
	envFile := fs.String("env-file", constants.DefaultEnvFile, "dotenv file with LOANLEADS_ overrides")
	configPath := fs.String("config", "", "path to configuration file")
	logLevel := fs.String("log-level", "", "log level override (debug, info, warn, error)")
	outputFormatFlag := fs.String("output-format", "", "type of output override: pretty, csv, json")
	watch := fs.Bool("watch", false, "keep polling until the application reaches a final status")
	if err := fs.Parse(args); err != nil {
		return err
	}

	uuid := fs.Arg(0)
	if err := tracking.ValidateUUID(uuid); err != nil {
		return err
	}

	conf, logger, outputFormat, err := setup(*envFile, *configPath, *logLevel, *outputFormatFlag)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	client := trackingclient.New(conf.Tracking.BaseURL, conf.Tracking.Timeout, logger)

	if *watch && !conf.Polling.Enabled {
		logger.Info("Status polling is disabled, fetching once",
			zap.String("op", "main.runTrack"),
			zap.String("uuid", uuid),
		)
	}
	if !*watch || !conf.Polling.Enabled {
		controller := poller.New(uuid, client, conf.Polling, logger)
		snap, err := controller.Refetch(context.Background())
		if err != nil {
			return describe(err)
		}
		return output.Tracking(w, outputFormat, snap.Data, time.Now())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		printed  tracking.Status
		writeErr error
	)
	controller := poller.New(uuid, client, conf.Polling, logger, poller.WithOnUpdate(func(snap poller.Snapshot) {
		if snap.Data == nil || snap.Data.CurrentStatus == printed || writeErr != nil {
			return
		}
		printed = snap.Data.CurrentStatus
		writeErr = output.Tracking(w, outputFormat, snap.Data, time.Now())
	}))

	if err := controller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if writeErr != nil {
		return writeErr
	}
	if snap := controller.Snapshot(); snap.Err != nil {
		return describe(snap.Err)
	}
	return nil
}

// describe turns a tracking failure into the message shown to the user.
func describe(err error) error {
	te := tracking.AsError(err)
	return fmt.Errorf("%s (%s)", te.UserMessage, te.Code)
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	serverConfigPath := fs.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	address := fs.String("address", "", "listen address override")
	logLevel := fs.String("log-level", "", "log level override (debug, info, warn, error)")
	envFile := fs.String("env-file", constants.DefaultEnvFile, "dotenv file with LOANLEADS_ overrides")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := config.LoadEnvFile(*envFile); err != nil {
		return err
	}
	serverConfig, err := server.LoadConfig(*serverConfigPath)
	if err != nil {
		return err
	}
	if *address != "" {
		serverConfig.Address = *address
	}

	conf, err := loadConfiguration(serverConfig.AppConfig)
	if err != nil {
		return fmt.Errorf("failed to load configuration at %s: %w", serverConfig.AppConfig, err)
	}
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	loggingConfig := serverConfig.Logging
	if loggingConfig == (config.LoggingConfig{}) {
		loggingConfig = conf.Logging
	}
	logger, err := initializeLogger(loggingConfig, *logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.runServe"),
		)
	}

	st, err := store.Open(serverConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	products, err := conf.Products()
	if err != nil {
		return err
	}
	prospects := prospect.NewClient(conf.Prospect, logger)

	handler := server.NewHandler(logger, server.Dependencies{
		Catalog:        products,
		Store:          st,
		Prospects:      prospects,
		Applications:   prospect.NewService(products, prospects, st, logger),
		MaxBodySize:    serverConfig.BodySizeBytes(),
		Version:        Version,
		AllowedOrigins: serverConfig.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:              serverConfig.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server",
			zap.String("op", "main.runServe"),
			zap.String("address", serverConfig.Address),
			zap.String("database", serverConfig.DatabasePath),
			zap.Int("products", products.Len()),
			zap.Bool("prospect_mock", conf.Prospect.Mock),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server", zap.String("op", "main.runServe"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
