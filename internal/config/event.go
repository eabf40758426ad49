package config

import (
	"errors"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EventConfig carries event-level settings used in guest-facing messages and
// by the reminder sweep.
type EventConfig struct {
	Name                   string        `mapstructure:"name"`
	Date                   string        `mapstructure:"date"`
	Venue                  string        `mapstructure:"venue"`
	Hosts                  []string      `mapstructure:"hosts"`
	ReminderLeadTime       time.Duration `mapstructure:"reminderLeadTime"`
	ReminderBatchSize      int           `mapstructure:"reminderBatchSize"`
	IncludeWithoutDeadline bool          `mapstructure:"includeWithoutDeadline"`
}

func DefaultEventConfig() EventConfig {
	return EventConfig{
		Name:              "Our celebration",
		Date:              "TBD",
		Venue:             "TBD",
		ReminderLeadTime:  72 * time.Hour,
		ReminderBatchSize: 200,
	}
}

type EventConfigHolder struct {
	current atomic.Value // holds EventConfig
}

// NewStaticEventConfigHolder returns a holder that never reloads.
func NewStaticEventConfigHolder(cfg EventConfig) *EventConfigHolder {
	holder := &EventConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewEventConfigHolder(appCfg Config) (*EventConfigHolder, error) {
	v := viper.New()

	if path := strings.TrimSpace(appCfg.EventFile); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("event")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/guestlist")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("GUESTLIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultEventConfig()
	v.SetDefault("event.name", defaults.Name)
	v.SetDefault("event.date", defaults.Date)
	v.SetDefault("event.venue", defaults.Venue)
	v.SetDefault("event.reminderLeadTime", defaults.ReminderLeadTime)
	v.SetDefault("event.reminderBatchSize", defaults.ReminderBatchSize)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && strings.TrimSpace(appCfg.EventFile) != "" {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg EventConfig
	if err := v.UnmarshalKey("event", &cfg); err != nil {
		return nil, err
	}
	if err := validateEventConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticEventConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var updated EventConfig
		if err := v.UnmarshalKey("event", &updated); err != nil {
			log.Printf("[event-config] reload failed: %v", err)
			return
		}
		if err := validateEventConfig(updated); err != nil {
			log.Printf("[event-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[event-config] reloaded from %s", filepath.Base(e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *EventConfigHolder) Get() EventConfig {
	return h.current.Load().(EventConfig)
}

func validateEventConfig(cfg EventConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return errors.New("event.name cannot be empty")
	}
	if cfg.ReminderLeadTime < 0 {
		return errors.New("event.reminderLeadTime cannot be negative")
	}
	if cfg.ReminderBatchSize <= 0 {
		return errors.New("event.reminderBatchSize must be positive")
	}
	return nil
}
