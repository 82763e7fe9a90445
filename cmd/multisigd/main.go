package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/client"
	"github.com/iov-one/quorum/cmd/multisigd/handlers"
	"github.com/iov-one/quorum/store"
	"github.com/iov-one/quorum/x/multisig"
	"github.com/tendermint/tendermint/libs/log"
)

type configuration struct {
	HTTP        string
	AMMEndpoint string
	LogLevel    string
	Debug       bool
	Client      client.Config
}

func main() {
	conf, err := loadConfiguration()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %s\n", err)
		os.Exit(2)
	}

	logger := log.NewTMLogger(log.NewSyncWriter(os.Stdout))
	opt, err := log.AllowLevel(conf.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %s\n", err)
		os.Exit(2)
	}
	logger = log.NewFilter(logger, opt).With("module", "multisigd")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, conf, logger); err != nil {
		logger.Error("Server stopped", "err", err)
		os.Exit(1)
	}
}

// env returns the value of the environment variable, or fallback when it is
// not set or empty.
func env(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return fallback
}

func loadConfiguration() (configuration, error) {
	cc := client.DefaultConfig()
	network, err := quorum.ParseNetwork(env("MIDEN_NETWORK", string(cc.Network)))
	if err != nil {
		return configuration{}, err
	}
	cc.Network = network
	cc.NodeEndpoint = env("MIDEN_NODE_ENDPOINT", "")
	cc.DBDir = env("MULTISIG_DB_DIR", "")

	timeout, err := strconv.ParseInt(env("MIDEN_RPC_TIMEOUT_MS", "30000"), 10, 64)
	if err != nil {
		return configuration{}, fmt.Errorf("MIDEN_RPC_TIMEOUT_MS: %s", err)
	}
	cc.Timeout = time.Duration(timeout) * time.Millisecond

	queue, err := strconv.Atoi(env("COMMAND_QUEUE_SIZE", strconv.Itoa(cc.QueueSize)))
	if err != nil {
		return configuration{}, fmt.Errorf("COMMAND_QUEUE_SIZE: %s", err)
	}
	cc.QueueSize = queue
	if err := cc.Validate(); err != nil {
		return configuration{}, err
	}

	debug, err := strconv.ParseBool(env("DEBUG", "false"))
	if err != nil {
		return configuration{}, fmt.Errorf("DEBUG: %s", err)
	}

	return configuration{
		HTTP:        ":" + env("PORT", "3005"),
		AMMEndpoint: env("ZORO_AMM_ENDPOINT", "https://oracle.zoroswap.com"),
		LogLevel:    env("LOG_LEVEL", "info"),
		Debug:       debug,
		Client:      cc,
	}, nil
}

func run(ctx context.Context, conf configuration, logger log.Logger) error {
	cli, height, err := client.Start(ctx, conf.Client.Factory(logger), conf.Client.QueueSize, logger)
	if err != nil {
		return fmt.Errorf("start ledger: %s", err)
	}
	logger.Info("Ledger synced", "height", height, "network", conf.Client.Network)

	svc := &handlers.Service{
		Client:       cli,
		Proposals:    multisig.NewProposalStore(store.MemStore()),
		Network:      conf.Client.Network,
		NodeEndpoint: conf.Client.NodeEndpoint,
		Timeout:      conf.Client.Timeout,
		Debug:        conf.Debug,
		Logger:       logger,
	}

	rt := http.NewServeMux()
	rt.Handle("POST /orders/submit", &handlers.OrderHandler{
		Endpoint: conf.AMMEndpoint,
		Client:   &http.Client{Timeout: conf.Client.Timeout},
		Logger:   logger,
		Debug:    conf.Debug,
	})
	handlers.Register(rt, svc)

	srv := &http.Server{Addr: conf.HTTP, Handler: rt}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	logger.Info("Listening", "addr", conf.HTTP)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %s", err)
	}
	return nil
}
