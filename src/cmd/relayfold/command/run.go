package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mosaicnetworks/relayfold/src/config"
	"github.com/mosaicnetworks/relayfold/src/crypto/keys"
	"github.com/mosaicnetworks/relayfold/src/crypto/nip04"
	"github.com/mosaicnetworks/relayfold/src/engine"
	"github.com/mosaicnetworks/relayfold/src/projection"
	"github.com/mosaicnetworks/relayfold/src/relay"
	"github.com/mosaicnetworks/relayfold/src/relays"
	"github.com/mosaicnetworks/relayfold/src/service"
	"github.com/mosaicnetworks/relayfold/src/subscription"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewRunCmd returns the command that follows channels on relays
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Follow channels",
		PreRunE: loadConfig,
		RunE:    runRelayfold,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runRelayfold(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, &_config.Relayfold)
}

// run follows the configured channels until ctx is done.
func run(ctx context.Context, conf *config.Config) error {
	logger := conf.Logger()

	urls, err := loadRelays(conf)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no relay: use --relay or %s", relays.NewJSONRelayList(conf.DataDir).Path())
	}

	session, err := loadSession(conf, logger)
	if err != nil {
		return err
	}

	filters := projection.ChannelFilters(conf.Channels, session.PubKey)
	if len(filters) == 0 {
		return errors.New("nothing to follow: use --channel or create a key with keygen")
	}

	pool := relay.NewPool(relay.Config{
		DialTimeout:  conf.DialTimeout,
		PingInterval: conf.PingInterval,
	}, logger.WithField("prefix", "relay"))
	defer pool.Close()

	eng, err := engine.New(engine.Config{
		Transport: pool,
		Relays:    urls,
		Session:   session,
		Timeout:   conf.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}
	eng.Run()
	defer eng.Shutdown()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := eng.SubscribePersistent(ctx, nil, filters, subscription.Options{Timeout: conf.Timeout})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if !conf.NoService {
		srv := service.NewService(conf.ServiceAddr, eng, logger.WithField("prefix", "service"))

		g.Go(srv.Serve)

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logger.WithFields(logrus.Fields{
		"relays":   urls,
		"channels": conf.Channels,
		"pubkey":   session.PubKey,
	}).Info("Following channels")

	return g.Wait()
}

// loadRelays returns the read relays of the flags and of relays.json.
func loadRelays(conf *config.Config) ([]string, error) {
	list := relays.NewRelayList()

	for _, url := range conf.Relays {
		r, err := relays.NewRelay(url)
		if err != nil {
			return nil, fmt.Errorf("relay %q: %w", url, err)
		}
		list.Add(r)
	}

	if conf.LoadRelays {
		stored, err := relays.NewJSONRelayList(conf.DataDir).RelayList()
		switch {
		case err == nil:
			list.Merge(stored)
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("reading relays.json: %w", err)
		}
	}

	return list.ReadURLs(), nil
}

// loadSession reads the session key. Without a key nobody is logged in and
// application data is not followed.
func loadSession(conf *config.Config, logger *logrus.Entry) (projection.Session, error) {
	key, err := keys.NewSimpleKeyfile(conf.Keyfile()).ReadKey()
	if os.IsNotExist(err) {
		logger.WithField("keyfile", conf.Keyfile()).Info("No key, running without session")
		return projection.Session{}, nil
	}
	if err != nil {
		return projection.Session{}, fmt.Errorf("reading key: %w", err)
	}

	decrypter := nip04.NewDecrypter(key)

	return projection.Session{
		PubKey:    decrypter.PubKey(),
		Decrypter: decrypter,
	}, nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

// AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.Relayfold.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Relayfold.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.Relayfold.LogFile, "Also write the log to this file")

	// Relays
	cmd.Flags().StringSliceP("relay", "r", _config.Relayfold.Relays, "Relay to read from (repeatable)")
	cmd.Flags().Bool("load-relays", _config.Relayfold.LoadRelays, "Also read the relays in [datadir]/relays.json")
	cmd.Flags().Duration("dial-timeout", _config.Relayfold.DialTimeout, "Websocket handshake timeout")
	cmd.Flags().Duration("ping-interval", _config.Relayfold.PingInterval, "Websocket keepalive period")

	// Channels
	cmd.Flags().StringSliceP("channel", "c", _config.Relayfold.Channels, "Channel id to follow (repeatable)")
	cmd.Flags().DurationP("timeout", "t", _config.Relayfold.Timeout, "Duration of each subscription epoch")

	// Service
	cmd.Flags().StringP("service-listen", "s", _config.Relayfold.ServiceAddr, "Listen IP:Port for HTTP service")
	cmd.Flags().Bool("no-service", _config.Relayfold.NoService, "Disable HTTP service")
}
