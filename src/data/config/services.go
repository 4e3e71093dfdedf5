package config

import (
	"time"

	"gorm.io/gorm"
)

// Emojis selects the reactions that drive the board.
type Emojis struct {
	Claim    string
	Complete string
	Approve  string
	Reject   string
}

// BoardConfig holds the Discord bounty board configuration.
type BoardConfig struct {
	Base
	Enabled               bool
	BoardChannelID        string
	VerificationChannelID string
	LogChannelID          string
	VerifierRoleID        string
	BootstrapVerifiers    []string
	DescriptionPreview    int
	Emojis                Emojis
}

// LoadBoardConfig loads the Discord board configuration. Without a Discord
// token the board stays disabled unless enable_board says otherwise.
func LoadBoardConfig(db *gorm.DB) BoardConfig {
	base := LoadBase(db)
	return BoardConfig{
		Base:                  base,
		Enabled:               getBoolSetting("enable_board", "ENABLE_BOARD", base.Token != ""),
		BoardChannelID:        GetSetting("board_channel_id", "BOARD_CHANNEL_ID", ""),
		VerificationChannelID: GetSetting("verification_channel_id", "VERIFICATION_CHANNEL_ID", ""),
		LogChannelID:          GetSetting("log_channel_id", "LOG_CHANNEL_ID", ""),
		VerifierRoleID:        GetSetting("verifier_role_id", "VERIFIER_ROLE_ID", ""),
		BootstrapVerifiers:    getListSetting("bootstrap_verifiers", "BOOTSTRAP_VERIFIERS"),
		DescriptionPreview:    getIntSetting("description_preview_runes", "DESCRIPTION_PREVIEW_RUNES", 500),
		Emojis: Emojis{
			Claim:    GetSetting("emoji_claim", "EMOJI_CLAIM", "⛏️"),
			Complete: GetSetting("emoji_complete", "EMOJI_COMPLETE", "✅"),
			Approve:  GetSetting("emoji_approve", "EMOJI_APPROVE", "👍"),
			Reject:   GetSetting("emoji_reject", "EMOJI_REJECT", "👎"),
		},
	}
}

// APIConfig holds the HTTP API configuration.
type APIConfig struct {
	Enabled      bool
	Port         string
	JWTSecret    string
	AllowOrigins []string
}

// LoadAPIConfig loads HTTP API configuration. The API stays disabled
// without a JWT secret.
func LoadAPIConfig(db *gorm.DB) APIConfig {
	secret := GetSetting("jwt_secret", "JWT_SECRET", "")
	origins := getListSetting("api_allow_origins", "API_ALLOW_ORIGINS")
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return APIConfig{
		Enabled:      getBoolSetting("enable_api", "ENABLE_API", true) && secret != "",
		Port:         GetSetting("api_port", "PORT", "8080"),
		JWTSecret:    secret,
		AllowOrigins: origins,
	}
}

// EventsConfig controls publishing directives to a Redis stream.
type EventsConfig struct {
	Enabled  bool
	RedisURL string
	Stream   string
	MaxLen   int64
}

// LoadEventsConfig loads Redis event stream configuration.
func LoadEventsConfig(db *gorm.DB) EventsConfig {
	url := GetSetting("redis_url", "REDIS_URL", "")
	return EventsConfig{
		Enabled:  getBoolSetting("enable_events", "ENABLE_EVENTS", true) && url != "",
		RedisURL: url,
		Stream:   GetSetting("events_stream", "EVENTS_STREAM", "bountyboard.events"),
		MaxLen:   int64(getIntSetting("events_stream_maxlen", "EVENTS_STREAM_MAXLEN", 10000)),
	}
}

// DispatchConfig tunes directive delivery retries.
type DispatchConfig struct {
	MaxElapsed    time.Duration
	FlushInterval time.Duration
	OutboxLimit   int
}

// LoadDispatchConfig loads delivery retry configuration.
func LoadDispatchConfig(db *gorm.DB) DispatchConfig {
	return DispatchConfig{
		MaxElapsed:    getDurationSetting("dispatch_max_elapsed", "DISPATCH_MAX_ELAPSED", 30*time.Second),
		FlushInterval: getDurationSetting("dispatch_flush_interval", "DISPATCH_FLUSH_INTERVAL", time.Minute),
		OutboxLimit:   getIntSetting("dispatch_outbox_limit", "DISPATCH_OUTBOX_LIMIT", 1000),
	}
}
