package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bnema/boxtoplay-keeper/internal/logging"
	"github.com/spf13/viper"
)

type StoreKind string

const (
	StoreGist  StoreKind = "gist"
	StoreS3    StoreKind = "s3"
	StoreRedis StoreKind = "redis"
	StoreFile  StoreKind = "file"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Port       string
	IPDNS      string
	HostSuffix string
	LogLevel   slog.Level
	// LogFormat is text or json; empty leaves the choice to the command.
	LogFormat string

	Store StoreKind
	Gist  GistConfig
	S3    S3Config
	Redis RedisConfig
	File  FileConfig

	SecretsDir string
	NATSURL    string

	Probe   ProbeConfig
	Session SessionConfig

	StatusBaseURL string
}

type GistConfig struct {
	ID       string
	Token    string
	TokenRef string
	APIURL   string
}

type S3Config struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type RedisConfig struct {
	Addr string
	Key  string
}

type FileConfig struct {
	Path string
}

type ProbeConfig struct {
	Interval     time.Duration
	SyncInterval time.Duration
	Timeout      time.Duration
	Pacing       time.Duration
	MaxInFlight  int
}

type SessionConfig struct {
	CookieName      string
	BaseURL         string
	ServerPath      string
	MaintenancePath string
	LoginMarkers    []string
}

// DNS is the public address of the game server.
func (c Config) DNS() string {
	return c.IPDNS + "." + c.HostSuffix
}

type option struct {
	key      string
	envs     []string
	fallback any
}

var options = []option{
	{key: "port", envs: []string{"PORT", "KEEPER_PORT"}, fallback: "3000"},
	{key: "ip_dns", envs: []string{"IP_DNS", "KEEPER_IP_DNS"}, fallback: "orny"},
	{key: "host_suffix", envs: []string{"KEEPER_HOST_SUFFIX"}, fallback: "boxtoplay.com"},
	{key: "log_level", envs: []string{"KEEPER_LOG_LEVEL"}, fallback: "info"},
	{key: "log_format", envs: []string{"KEEPER_LOG_FORMAT"}, fallback: ""},
	{key: "store", envs: []string{"KEEPER_STORE"}, fallback: string(StoreGist)},
	{key: "gist.id", envs: []string{"GIST_ID", "KEEPER_GIST_ID"}, fallback: ""},
	{key: "gist.token", envs: []string{"GH_TOKEN", "KEEPER_GH_TOKEN"}, fallback: ""},
	{key: "gist.token_ref", envs: []string{"KEEPER_GH_TOKEN_REF"}, fallback: ""},
	{key: "gist.api_url", envs: []string{"KEEPER_GIST_API_URL"}, fallback: "https://api.github.com"},
	{key: "s3.bucket", envs: []string{"KEEPER_S3_BUCKET"}, fallback: ""},
	{key: "s3.key", envs: []string{"KEEPER_S3_KEY"}, fallback: "boxtoplay/documents.json"},
	{key: "s3.region", envs: []string{"KEEPER_S3_REGION"}, fallback: ""},
	{key: "s3.endpoint", envs: []string{"KEEPER_S3_ENDPOINT"}, fallback: ""},
	{key: "s3.access_key", envs: []string{"KEEPER_S3_ACCESS_KEY"}, fallback: ""},
	{key: "s3.secret_key", envs: []string{"KEEPER_S3_SECRET_KEY"}, fallback: ""},
	{key: "redis.addr", envs: []string{"KEEPER_REDIS_ADDR"}, fallback: ""},
	{key: "redis.key", envs: []string{"KEEPER_REDIS_KEY"}, fallback: "keeper:documents"},
	{key: "file.path", envs: []string{"KEEPER_FILE_PATH"}, fallback: ""},
	{key: "secrets_dir", envs: []string{"KEEPER_SECRETS_DIR"}, fallback: ""},
	{key: "nats_url", envs: []string{"KEEPER_NATS_URL"}, fallback: ""},
	{key: "probe.interval", envs: []string{"KEEPER_PROBE_INTERVAL"}, fallback: "5m"},
	{key: "probe.sync_interval", envs: []string{"KEEPER_SYNC_INTERVAL"}, fallback: "60m"},
	{key: "probe.timeout", envs: []string{"KEEPER_PROBE_TIMEOUT"}, fallback: "20s"},
	{key: "probe.pacing", envs: []string{"KEEPER_PROBE_PACING"}, fallback: "2s"},
	{key: "probe.max_inflight", envs: []string{"KEEPER_MAX_INFLIGHT"}, fallback: 4},
	{key: "session.cookie", envs: []string{"KEEPER_SESSION_COOKIE"}, fallback: "BOXTOPLAY_SESSION"},
	{key: "session.base_url", envs: []string{"KEEPER_TARGET_BASE_URL"}, fallback: "https://www.boxtoplay.com"},
	{key: "session.server_path", envs: []string{"KEEPER_SERVER_PATH"}, fallback: "/fr/minecraft/serveur/%s"},
	{key: "session.maintenance_path", envs: []string{"KEEPER_MAINTENANCE_PATH"}, fallback: "/fr/profil"},
	{key: "session.login_markers", envs: []string{"KEEPER_LOGIN_MARKERS"}, fallback: "login,connexion,signin,auth,authentification"},
	{key: "status_base_url", envs: []string{"KEEPER_STATUS_BASE_URL"}, fallback: "https://api.mcsrvstat.us/3"},
}

// New returns a viper instance bound to the keeper environment variables.
func New() *viper.Viper {
	v := viper.New()
	Bind(v)
	return v
}

// Bind registers defaults and env bindings on v.
func Bind(v *viper.Viper) {
	for _, opt := range options {
		v.SetDefault(opt.key, opt.fallback)
		args := append([]string{opt.key}, opt.envs...)
		// BindEnv only fails without a key.
		_ = v.BindEnv(args...)
	}
}

// Load reads and validates the configuration bound on v.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = New()
	}

	cfg := Config{
		Port:       strings.TrimSpace(v.GetString("port")),
		IPDNS:      strings.TrimSpace(v.GetString("ip_dns")),
		HostSuffix: strings.TrimSpace(v.GetString("host_suffix")),
		LogFormat:  strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
		Store:      StoreKind(strings.ToLower(strings.TrimSpace(v.GetString("store")))),
		Gist: GistConfig{
			ID:       strings.TrimSpace(v.GetString("gist.id")),
			Token:    strings.TrimSpace(v.GetString("gist.token")),
			TokenRef: strings.TrimSpace(v.GetString("gist.token_ref")),
			APIURL:   strings.TrimRight(strings.TrimSpace(v.GetString("gist.api_url")), "/"),
		},
		S3: S3Config{
			Bucket:    strings.TrimSpace(v.GetString("s3.bucket")),
			Key:       strings.TrimSpace(v.GetString("s3.key")),
			Region:    strings.TrimSpace(v.GetString("s3.region")),
			Endpoint:  strings.TrimSpace(v.GetString("s3.endpoint")),
			AccessKey: strings.TrimSpace(v.GetString("s3.access_key")),
			SecretKey: strings.TrimSpace(v.GetString("s3.secret_key")),
		},
		Redis: RedisConfig{
			Addr: strings.TrimSpace(v.GetString("redis.addr")),
			Key:  strings.TrimSpace(v.GetString("redis.key")),
		},
		File:          FileConfig{Path: strings.TrimSpace(v.GetString("file.path"))},
		SecretsDir:    strings.TrimSpace(v.GetString("secrets_dir")),
		NATSURL:       strings.TrimSpace(v.GetString("nats_url")),
		StatusBaseURL: strings.TrimRight(strings.TrimSpace(v.GetString("status_base_url")), "/"),
		Session: SessionConfig{
			CookieName:      strings.TrimSpace(v.GetString("session.cookie")),
			BaseURL:         strings.TrimRight(strings.TrimSpace(v.GetString("session.base_url")), "/"),
			ServerPath:      strings.TrimSpace(v.GetString("session.server_path")),
			MaintenancePath: strings.TrimSpace(v.GetString("session.maintenance_path")),
			LoginMarkers:    splitList(v.GetString("session.login_markers")),
		},
	}

	level, err := logging.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.LogLevel = level

	if cfg.Probe, err = loadProbe(v); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadProbe(v *viper.Viper) (ProbeConfig, error) {
	var probe ProbeConfig
	durations := []struct {
		key    string
		target *time.Duration
		zeroOK bool
	}{
		{key: "probe.interval", target: &probe.Interval},
		{key: "probe.sync_interval", target: &probe.SyncInterval},
		{key: "probe.timeout", target: &probe.Timeout},
		{key: "probe.pacing", target: &probe.Pacing, zeroOK: true},
	}

	for _, d := range durations {
		raw := strings.TrimSpace(v.GetString(d.key))
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return ProbeConfig{}, fmt.Errorf("%w: %s %q: %w", ErrInvalidConfig, d.key, raw, err)
		}
		if parsed < 0 || (parsed == 0 && !d.zeroOK) {
			return ProbeConfig{}, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidConfig, d.key, raw)
		}
		*d.target = parsed
	}

	probe.MaxInFlight = v.GetInt("probe.max_inflight")
	if probe.MaxInFlight < 0 {
		return ProbeConfig{}, fmt.Errorf("%w: probe.max_inflight must not be negative", ErrInvalidConfig)
	}

	return probe, nil
}

func (c Config) validate() error {
	var problems []string

	if c.Port == "" {
		problems = append(problems, "port is empty")
	}
	if c.IPDNS == "" || c.HostSuffix == "" {
		problems = append(problems, "ip_dns and host_suffix are required")
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("log_format %q is not text or json", c.LogFormat))
	}
	if c.Session.CookieName == "" {
		problems = append(problems, "session cookie name is empty")
	}
	if c.Session.BaseURL == "" {
		problems = append(problems, "target base url is empty")
	}
	if strings.Count(c.Session.ServerPath, "%s") != 1 {
		problems = append(problems, "server path must contain exactly one %s")
	}
	if c.Session.MaintenancePath == "" {
		problems = append(problems, "maintenance path is empty")
	}

	switch c.Store {
	case StoreGist:
		if c.Gist.ID == "" {
			problems = append(problems, "gist store requires GIST_ID")
		}
		if c.Gist.Token == "" && c.Gist.TokenRef == "" {
			problems = append(problems, "gist store requires GH_TOKEN or KEEPER_GH_TOKEN_REF")
		}
	case StoreS3:
		if c.S3.Bucket == "" || c.S3.Key == "" {
			problems = append(problems, "s3 store requires KEEPER_S3_BUCKET and KEEPER_S3_KEY")
		}
		if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
			problems = append(problems, "s3 access and secret keys must be set together")
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			problems = append(problems, "redis store requires KEEPER_REDIS_ADDR")
		}
	case StoreFile:
	default:
		problems = append(problems, fmt.Sprintf("unknown store %q", c.Store))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
