package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Xausdorf/chatpoll/internal/config"
	"github.com/Xausdorf/chatpoll/internal/domain"
	"github.com/Xausdorf/chatpoll/internal/gateway/voteapi"
	ttrepo "github.com/Xausdorf/chatpoll/internal/repository/tarantool"
	"github.com/Xausdorf/chatpoll/internal/repository/ttadapter"
	"github.com/Xausdorf/chatpoll/internal/usecase"
	"github.com/Xausdorf/chatpoll/utils"
	"github.com/tarantool/go-tarantool/v2"
)

const (
	ttReconnectSeconds = 3
	ttMaxReconnects    = 5
)

func main() {
	ctx := context.Background()

	configPath := flag.String("config", "config/local.yaml", "path to config file")
	flag.Parse()

	cfg := config.Load(*configPath)
	log := utils.New(cfg.Env)

	conn, err := connectTarantool(ctx, cfg.Tarantool)
	if err != nil {
		log.Error("connection to tarantool refused", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("successfully connected to tarantool")

	store := ttrepo.NewPollStore(conn)
	binlog, err := ttrepo.OpenBinlog(ctx, conn)
	if err != nil {
		log.Error("failed to open binlog", slog.Any("error", err))
		os.Exit(1)
	}

	voteClient := voteapi.NewClient(voteapi.Config{
		BaseURL: cfg.VoteAPI.BaseURL,
		Token:   cfg.VoteAPI.Token,
		Timeout: cfg.VoteAPI.Timeout,
	}, log)

	manager := usecase.NewPollManager(
		log,
		store,
		binlog,
		voteClient,
		&contentChangeLogger{log: log},
		&chatResolver{log: log},
		ttadapter.NewCodec(),
		cfg.Storage.Enabled,
	)

	events, err := binlog.Events(ctx)
	if err != nil {
		log.Error("failed to read binlog events", slog.Any("error", err))
		os.Exit(1)
	}
	if err := manager.OnBinlogEvents(ctx, events); err != nil {
		log.Error("failed to replay binlog events", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("binlog replayed", slog.Int("events", len(events)))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	sig := <-stop
	log.Info("shutting down", slog.String("signal", sig.String()))

	manager.Close()
	conn.CloseGraceful()
	log.Info("application stopped")
}

// contentChangeLogger stands in for the message subsystem, which owns
// re-rendering of messages whose poll changed.
type contentChangeLogger struct {
	log *slog.Logger
}

func (n *contentChangeLogger) OnPollContentChanged(messageID domain.FullMessageID) {
	n.log.Info("poll content changed",
		slog.Int64("chatID", messageID.ChatID), slog.Int64("messageID", messageID.MessageID))
}

// chatResolver stands in for the chat subsystem that loads dialog state
// before replayed votes are resubmitted.
type chatResolver struct {
	log *slog.Logger
}

func (r *chatResolver) ResolveMessageDependencies(_ context.Context, messageID domain.FullMessageID) error {
	r.log.Info("resolving chat dependencies", slog.Int64("chatID", messageID.ChatID))
	return nil
}

func connectTarantool(ctx context.Context, cfg config.TarantoolConfig) (*tarantool.Connection, error) {
	dialer := tarantool.NetDialer{
		Address:  cfg.Address,
		User:     cfg.User,
		Password: cfg.Password,
	}
	opts := tarantool.Opts{
		Timeout:       time.Second,
		Reconnect:     ttReconnectSeconds * time.Second,
		MaxReconnects: ttMaxReconnects,
	}

	return tarantool.Connect(ctx, dialer, opts)
}
