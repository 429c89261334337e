package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"voting-client/api"
	"voting-client/backend"
	"voting-client/chain"
	"voting-client/logger"
	"voting-client/service"
	"voting-client/storage"
	"voting-client/wallet"
)

type Config struct {
	RPCURL           string
	WSURL            string
	FactoryAddress   string
	BackendURL       string
	CaptchaVerifyURL string
	WalletKeyFile    string
	StorePath        string
	Port             int
}

func main() {
	// A .env file is optional; flags still win over the environment.
	_ = godotenv.Load()

	config := parseFlags()
	log := logger.NewLogger()

	if !common.IsHexAddress(config.FactoryAddress) {
		log.Fatal().Str("factory", config.FactoryAddress).Msg("Factory address is not a valid hex address")
	}

	dialCtx, cancelDial := context.WithTimeout(context.Background(), 15*time.Second)
	client, err := chain.Dial(dialCtx, config.RPCURL, config.WSURL, log)
	cancelDial()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the chain")
	}
	defer client.Close()

	registry, err := client.Registry(common.HexToAddress(config.FactoryAddress))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to bind the campaign factory")
	}

	provider, err := wallet.LoadProvider(config.WalletKeyFile, client.ChainID())
	if err != nil {
		if errors.Is(err, wallet.ErrNoWallet) || errors.Is(err, wallet.ErrNoAccounts) {
			// The client still serves reads; connecting a session will fail
			// until a key is configured.
			log.Warn().Err(err).Str("key_file", config.WalletKeyFile).Msg("No wallet key available")
			provider = nil
		} else {
			log.Fatal().Err(err).Msg("Failed to load wallet key")
		}
	}

	store, err := storage.Open(config.StorePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", config.StorePath).Msg("Failed to open local store")
	}
	defer store.Close()

	registryMetrics := prometheus.NewRegistry()
	metrics := service.NewMetrics(registryMetrics)

	authClient := backend.NewClient(config.BackendURL, nil)
	captchaVerifier := backend.NewCaptchaVerifier(config.CaptchaVerifyURL, nil)

	openCampaign := client.Campaign
	openReader := func(addr common.Address) (service.CampaignReader, error) {
		return client.Campaign(addr)
	}

	directory := service.NewDirectoryService(registry, openReader, log, metrics, nil)
	detail := service.NewDetailService(log, metrics, nil)
	creation := service.NewCreationService(registry, provider, log, metrics, nil)

	server := api.NewServer(api.Config{
		Provider:          provider,
		Auth:              authClient,
		CaptchaVerifier:   captchaVerifier,
		OpenCampaign:      openCampaign,
		Directory:         directory,
		Detail:            detail,
		Creation:          creation,
		CaptchaCounters:   store.CounterBucket(storage.BucketCaptchaAttempts),
		BiometricCounters: store.CounterBucket(storage.BucketBiometricAttempts),
		Metrics:           metrics,
		Gatherer:          registryMetrics,
		Logger:            log,
	})
	defer server.Shutdown()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	serverChan := make(chan error, 1)
	go func() {
		serverChan <- server.Run(fmt.Sprintf(":%d", config.Port))
	}()

	select {
	case err := <-serverChan:
		log.Fatal().Err(err).Msg("Server error")
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}
}

func parseFlags() *Config {
	config := &Config{}

	flag.StringVar(&config.RPCURL, "rpc", envOr("VOTING_CLIENT_RPC_URL", "http://localhost:8545"), "Chain RPC endpoint")
	flag.StringVar(&config.WSURL, "ws", envOr("VOTING_CLIENT_WS_URL", ""), "Chain websocket endpoint for event subscriptions")
	flag.StringVar(&config.FactoryAddress, "factory", envOr("VOTING_CLIENT_FACTORY_ADDRESS", ""), "Campaign factory contract address")
	flag.StringVar(&config.BackendURL, "backend", envOr("VOTING_CLIENT_BACKEND_URL", "http://localhost:8000"), "Biometric/auth backend base URL")
	flag.StringVar(&config.CaptchaVerifyURL, "captcha", envOr("VOTING_CLIENT_CAPTCHA_URL", "https://www.google.com/recaptcha/api/siteverify"), "Captcha verification endpoint")
	flag.StringVar(&config.WalletKeyFile, "key", envOr("VOTING_CLIENT_KEY_FILE", "wallet.key"), "Wallet private key file")
	flag.StringVar(&config.StorePath, "store", envOr("VOTING_CLIENT_STORE", "voting-client.db"), "Local store file")
	flag.IntVar(&config.Port, "port", 8080, "API listen port")
	flag.Parse()

	return config
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
