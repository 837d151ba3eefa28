package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bnema/boxtoplay-keeper/internal/adapters/events"
	natsevents "github.com/bnema/boxtoplay-keeper/internal/adapters/events/nats"
	statusadapter "github.com/bnema/boxtoplay-keeper/internal/adapters/render/status"
	chainstore "github.com/bnema/boxtoplay-keeper/internal/adapters/secrets/chain"
	filesecrets "github.com/bnema/boxtoplay-keeper/internal/adapters/secrets/file"
	"github.com/bnema/boxtoplay-keeper/internal/adapters/serverstatus"
	"github.com/bnema/boxtoplay-keeper/internal/adapters/session"
	filestore "github.com/bnema/boxtoplay-keeper/internal/adapters/store/file"
	giststore "github.com/bnema/boxtoplay-keeper/internal/adapters/store/gist"
	redisstore "github.com/bnema/boxtoplay-keeper/internal/adapters/store/redis"
	s3store "github.com/bnema/boxtoplay-keeper/internal/adapters/store/s3"
	"github.com/bnema/boxtoplay-keeper/internal/application"
	"github.com/bnema/boxtoplay-keeper/internal/config"
	"github.com/bnema/boxtoplay-keeper/internal/logging"
	"github.com/bnema/boxtoplay-keeper/internal/ports"
)

const (
	storeHTTPTimeout  = 30 * time.Second
	statusHTTPTimeout = 10 * time.Second
)

type app struct {
	cfg            config.Config
	log            logging.Logger
	keeper         *application.Keeper
	commands       *application.Commands
	infoRenderer   func(application.Info, statusadapter.RenderOptions) (string, error)
	targetRenderer func(application.TargetStatus) (string, error)
	now            func() time.Time
	closers        []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// wireApp builds the application from the environment. Logs go to logOutput
// in logFormat unless KEEPER_LOG_FORMAT overrides it.
func wireApp(ctx context.Context, v *viper.Viper, logOutput io.Writer, logFormat string) (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.LogFormat != "" {
		logFormat = cfg.LogFormat
	}

	log := logging.New(logOutput, logFormat, cfg.LogLevel)
	a := &app{
		cfg:            cfg,
		log:            log,
		infoRenderer:   statusadapter.Render,
		targetRenderer: statusadapter.RenderTarget,
		now:            time.Now,
	}

	store, err := wireStore(ctx, a)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("wire document store: %w", err)
	}

	publisher, err := wirePublisher(ctx, a)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("wire event publisher: %w", err)
	}

	transport, err := session.NewTransport()
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("wire session transport: %w", err)
	}
	a.closers = append(a.closers, func() error {
		transport.CloseIdleConnections()
		return nil
	})

	factory := session.NewFactory(session.FactoryConfig{
		BaseURL:      cfg.Session.BaseURL,
		CookieName:   cfg.Session.CookieName,
		LoginMarkers: cfg.Session.LoginMarkers,
		Timeout:      cfg.Probe.Timeout,
	}, transport)
	prober := session.NewProber(factory, session.ProberConfig{
		ServerPath:      cfg.Session.ServerPath,
		MaintenancePath: cfg.Session.MaintenancePath,
	}, log.With("component", "prober"))

	clock := ports.SystemClock{}
	cache := application.NewStateCache(store, clock, log.With("component", "state_cache"))
	a.keeper = application.NewKeeper(cache, prober, publisher, clock, log.With("component", "keeper"), application.KeeperOptions{
		ProbeInterval: cfg.Probe.Interval,
		SyncInterval:  cfg.Probe.SyncInterval,
		ProbeTimeout:  cfg.Probe.Timeout,
		Pacing:        cfg.Probe.Pacing,
		MaxInFlight:   cfg.Probe.MaxInFlight,
	})

	lookup := serverstatus.NewClient(cfg.StatusBaseURL, &http.Client{Timeout: statusHTTPTimeout})
	a.commands = application.NewCommands(a.keeper, lookup, cfg.DNS(), cfg.Session.CookieName)

	return a, nil
}

func wireStore(ctx context.Context, a *app) (ports.DocumentStore, error) {
	cfg := a.cfg

	switch cfg.Store {
	case config.StoreGist:
		token, err := resolveGistToken(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return giststore.NewStore(giststore.Config{
			APIURL: cfg.Gist.APIURL,
			GistID: cfg.Gist.ID,
			Token:  token,
		}, &http.Client{Timeout: storeHTTPTimeout})
	case config.StoreS3:
		return s3store.NewStore(ctx, s3store.Config{
			Bucket:    cfg.S3.Bucket,
			Key:       cfg.S3.Key,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
	case config.StoreRedis:
		client, err := redisstore.Dial(ctx, cfg.Redis.Addr)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return redisstore.NewStore(client, cfg.Redis.Key), nil
	case config.StoreFile:
		return filestore.NewStore(cfg.File.Path, ports.SystemClock{})
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// resolveGistToken prefers the token from the environment and falls back to
// the secret reference, looked up in pass and then in the secrets directory.
func resolveGistToken(ctx context.Context, cfg config.Config) (string, error) {
	if cfg.Gist.Token != "" {
		return cfg.Gist.Token, nil
	}

	root := cfg.SecretsDir
	if root == "" {
		defaultRoot, err := filesecrets.DefaultRoot()
		if err != nil {
			return "", err
		}
		root = defaultRoot
	}

	secrets, err := chainstore.NewPassFirstWithFileFallback(root)
	if err != nil {
		return "", fmt.Errorf("wire secret store chain: %w", err)
	}

	token, err := secrets.Get(ctx, cfg.Gist.TokenRef)
	if err != nil {
		return "", fmt.Errorf("resolve gist token: %w", err)
	}
	return strings.TrimSpace(token), nil
}

func wirePublisher(ctx context.Context, a *app) (ports.EventPublisher, error) {
	logPublisher := events.NewLogPublisher(a.log.With("component", "events"))
	if a.cfg.NATSURL == "" {
		return logPublisher, nil
	}

	natsCfg := natsevents.DefaultConfig()
	natsCfg.URL = a.cfg.NATSURL
	publisher, err := natsevents.Connect(ctx, natsCfg, a.log.With("component", "nats"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, publisher.Close)

	return events.Fanout{logPublisher, publisher}, nil
}
