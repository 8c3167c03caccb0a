package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	SendBuffer int           `mapstructure:"send_buffer"`
	LogLevel   string        `mapstructure:"log_level"`

	// Secret keys the session cookie store.
	Secret string `mapstructure:"secret"`
	// AuthSecret verifies bearer tokens.
	AuthSecret string `mapstructure:"auth_secret"`
	AuthIssuer string `mapstructure:"auth_issuer"`

	ProviderTimeout     time.Duration `mapstructure:"provider_timeout"`
	RoomIdleTTL         time.Duration `mapstructure:"room_idle_ttl"`
	RoomJanitorInterval time.Duration `mapstructure:"room_janitor_interval"`

	RTCMinPort  uint16                    `mapstructure:"rtc_min_port"`
	RTCMaxPort  uint16                    `mapstructure:"rtc_max_port"`
	AnnouncedIP string                    `mapstructure:"announced_ip"`
	ICEServers  []ICEServer               `mapstructure:"ice_servers"`
	Codecs      []core.RTPCodecCapability `mapstructure:"codecs"`

	ChatRateLimit    int           `mapstructure:"chat_rate_limit"`
	ChatRateInterval time.Duration `mapstructure:"chat_rate_interval"`
	ChatHistory      int           `mapstructure:"chat_history"`
}

// DefaultCodecs is the codec profile used when the config names none.
func DefaultCodecs() []core.RTPCodecCapability {
	return []core.RTPCodecCapability{
		{Kind: domain.KindAudio, MimeType: "audio/opus", ClockRate: 48000, Channels: 2, SDPFmtpLine: "minptime=10;useinbandfec=1", PreferredPayloadType: 111},
		{Kind: domain.KindVideo, MimeType: "video/VP8", ClockRate: 90000, PreferredPayloadType: 96},
		{Kind: domain.KindVideo, MimeType: "video/H264", ClockRate: 90000, SDPFmtpLine: "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f", PreferredPayloadType: 102},
	}
}

func DefaultICEServers() []ICEServer {
	return []ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("log_level", "info")
	v.SetDefault("secret", "")
	v.SetDefault("auth_secret", "")
	v.SetDefault("auth_issuer", "huddle")
	v.SetDefault("provider_timeout", "10s")
	v.SetDefault("room_idle_ttl", "5m")
	v.SetDefault("room_janitor_interval", "30s")
	v.SetDefault("chat_rate_limit", 5)
	v.SetDefault("chat_rate_interval", "5s")
	v.SetDefault("chat_history", 50)
}

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
	v.SetEnvPrefix("HUDDLE")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("static", cfg.StaticPath).Int("codecs", len(cfg.Codecs)).Msg("config ready")
	return &cfg, nil
}

func (c *Config) normalize() error {
	if len(c.Codecs) == 0 {
		c.Codecs = DefaultCodecs()
	}
	if c.ICEServers == nil {
		c.ICEServers = DefaultICEServers()
	}
	if c.RTCMinPort > c.RTCMaxPort {
		return fmt.Errorf("rtc_min_port %d above rtc_max_port %d", c.RTCMinPort, c.RTCMaxPort)
	}
	if c.AuthSecret == "" {
		return errors.New("auth_secret is required")
	}
	if c.Secret == "" {
		c.Secret = c.AuthSecret
	}
	return nil
}
