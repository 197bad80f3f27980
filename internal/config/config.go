package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dkeye/zoomify/internal/domain"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	Meeting   MeetingConfig   `mapstructure:"meeting"`
	Vendor    VendorConfig    `mapstructure:"vendor"`
	Signature SignatureConfig `mapstructure:"signature"`
	Isolation IsolationConfig `mapstructure:"isolation"`
	Session   SessionConfig   `mapstructure:"session"`
}

// MeetingConfig holds the default meeting arguments; URL parameters override them.
type MeetingConfig struct {
	SDKKey             string `mapstructure:"sdk_key"`
	Topic              string `mapstructure:"topic"`
	Signature          string `mapstructure:"signature"`
	UserName           string `mapstructure:"user_name"`
	Password           string `mapstructure:"password"`
	WebEndpoint        string `mapstructure:"web_endpoint"`
	EnforceGalleryView bool   `mapstructure:"enforce_gallery_view"`
}

type VendorConfig struct {
	Locale         string   `mapstructure:"locale"`
	AssetBase      string   `mapstructure:"asset_base"`
	MultipleVideos bool     `mapstructure:"multiple_videos"`
	ICEServers     []string `mapstructure:"ice_servers"`
}

type SignatureConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// IsolationConfig turns on COOP/COEP headers so pages are cross-origin isolated.
type IsolationConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SessionConfig controls how long a view outlives its last socket.
type SessionConfig struct {
	Grace time.Duration `mapstructure:"grace"`
}

func (m MeetingConfig) Args() domain.MeetingArgs {
	return domain.MeetingArgs{
		SDKKey:             m.SDKKey,
		Topic:              m.Topic,
		Signature:          m.Signature,
		UserName:           m.UserName,
		Password:           m.Password,
		WebEndpoint:        m.WebEndpoint,
		EnforceGalleryView: m.EnforceGalleryView,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("log_level", "info")

	v.SetDefault("meeting.topic", "")
	v.SetDefault("meeting.sdk_key", "")
	v.SetDefault("meeting.signature", "")
	v.SetDefault("meeting.user_name", "")
	v.SetDefault("meeting.password", "")
	v.SetDefault("meeting.web_endpoint", "zoom.us")
	v.SetDefault("meeting.enforce_gallery_view", false)

	v.SetDefault("vendor.locale", "en-US")
	v.SetDefault("vendor.asset_base", "/lib")
	v.SetDefault("vendor.multiple_videos", true)
	v.SetDefault("vendor.ice_servers", []string{})

	v.SetDefault("signature.endpoint", "")
	v.SetDefault("signature.timeout", "5s")

	v.SetDefault("isolation.enabled", false)

	v.SetDefault("session.grace", "15s")
}

// Load reads config/config.<CONFIG_ENV>.yaml on top of the defaults.
// ZOOMIFY_* environment variables override both, e.g. ZOOMIFY_MEETING_TOPIC.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("zoomify")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
		v.OnConfigChange(func(e fsnotify.Event) {
			level := v.GetString("log_level")
			ApplyLogLevel(level)
			log.Info().Str("module", "config").Str("file", e.Name).Str("log_level", level).Msg("config changed")
		})
		v.WatchConfig()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Bool("isolation", cfg.Isolation.Enabled).
		Dur("grace", cfg.Session.Grace).
		Msg("config resolved")
	return &cfg, nil
}

// ApplyLogLevel sets the global zerolog level, keeping the current one for
// unknown names.
func ApplyLogLevel(name string) {
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil || name == "" {
		log.Warn().Str("module", "config").Str("log_level", name).Msg("unknown log level")
		return
	}
	zerolog.SetGlobalLevel(level)
}
