package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/ttacon/chalk"

	"github.com/BitcoinSchema/go-zk-attest/attestation"
	"github.com/BitcoinSchema/go-zk-attest/config"
	"github.com/BitcoinSchema/go-zk-attest/database"
	"github.com/BitcoinSchema/go-zk-attest/datasource"
	"github.com/BitcoinSchema/go-zk-attest/ledger"
	"github.com/BitcoinSchema/go-zk-attest/server"
	"github.com/BitcoinSchema/go-zk-attest/session"
	"github.com/BitcoinSchema/go-zk-attest/types"
	"github.com/BitcoinSchema/go-zk-attest/zkp"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the attestation API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString(flagConfig)
			cfg, err := config.Load(v, file)
			if err != nil {
				return err
			}
			config.Watch(v, checkReload(v))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	serveCmd.Flags().String("port", config.DefaultPort, "port to listen on")
	serveCmd.Flags().String("junglebus-url", "",
		fmt.Sprintf("JungleBus server used to stamp anchors with the chain tip, e.g. %s (empty disables)", config.JunglebusEndpoint))
	_ = v.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = v.BindPFlag("junglebus_url", serveCmd.Flags().Lookup("junglebus-url"))
	return serveCmd
}

// checkReload validates the edited config file so a broken edit is reported
// before the next restart picks it up.
func checkReload(v *viper.Viper) func(fsnotify.Event) {
	return func(e fsnotify.Event) {
		if _, err := config.Load(v, ""); err != nil {
			log.Printf("%s[ERROR]: config %s is invalid: %v%s", chalk.Red, e.Name, err, chalk.Reset)
		}
	}
}

// serve wires the services from cfg and blocks until ctx is done.
func serve(ctx context.Context, cfg *config.Config) error {
	book, closeBook, err := recordBook(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBook()

	var opts []ledger.Option
	if cfg.JunglebusURL != "" {
		tip, err := ledger.NewJunglebusTip(cfg.JunglebusURL)
		if err != nil {
			return err
		}
		go tip.Run(ctx, config.ChainTipInterval)
		opts = append(opts, ledger.WithTipSource(tip))
	}

	nonces, closeNonces, err := nonceStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeNonces()

	sessions, err := session.NewManager(nonces, []byte(cfg.JWTSecret), config.NonceTTL, config.SessionTTL)
	if err != nil {
		return err
	}

	connectors, err := registry(cfg)
	if err != nil {
		return err
	}

	records := ledger.NewWithZKP(book, opts...)
	svc := attestation.New(connectors, zkp.NewService(), records)
	srv := server.New(svc, connectors, sessions, records)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Printf("%s[INFO]: shutting down%s", chalk.Cyan, chalk.Reset)
		return srv.Shutdown()
	}
}

func recordBook(ctx context.Context, cfg *config.Config) (ledger.RecordBook, func(), error) {
	if cfg.MongoURL == "" {
		log.Printf("%s[WARN]: no mongo_url set, ledger records are kept in memory%s", chalk.Yellow, chalk.Reset)
		return ledger.NewMemoryBook(), func() {}, nil
	}

	conn, err := database.Connect(ctx, cfg.MongoURL)
	if err != nil {
		return nil, nil, err
	}
	closeConn := func() {
		if err := conn.Close(context.Background()); err != nil {
			log.Printf("%s[ERROR]: closing mongo: %v%s", chalk.Red, err, chalk.Reset)
		}
	}

	book, err := ledger.NewMongoBook(ctx, conn.Database(config.Database).Collection(config.RecordsCollection))
	if err != nil {
		closeConn()
		return nil, nil, err
	}
	log.Printf("%s[INFO]: ledger records stored in mongo%s", chalk.Green, chalk.Reset)
	return book, closeConn, nil
}

func nonceStore(ctx context.Context, cfg *config.Config) (session.NonceStore, func(), error) {
	if cfg.RedisURL == "" {
		return session.NewMemoryNonces(), func() {}, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parsing redis url")
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, errors.Wrap(err, "pinging redis")
	}
	return session.NewRedisNonces(rdb), func() { _ = rdb.Close() }, nil
}

// registry builds a connector per provider. Custom claims have no
// connector and skip the data source check.
func registry(cfg *config.Config) (datasource.Registry, error) {
	r := datasource.Registry{
		types.TypeGitHub:  datasource.NewGitHub(cfg.GitHubURL, cfg.GitHubToken, cfg.ConnectorTimeout, cfg.ConnectorRetries),
		types.TypeTwitter: datasource.NewTwitter(cfg.TwitterURL, cfg.TwitterToken, cfg.ConnectorTimeout, cfg.ConnectorRetries),
	}

	if cfg.DiscordToken == "" {
		r[types.TypeDiscord] = datasource.Unavailable{Provider: "discord"}
		return r, nil
	}
	discord, err := datasource.NewDiscord(cfg.DiscordToken)
	if err != nil {
		return nil, err
	}
	r[types.TypeDiscord] = discord
	return r, nil
}
