package config

import (
	"strconv"
	"time"
)

type SessionConfig interface {
	// GetRedisAddr returns the Redis address for the tab store.
	// Empty means tab state is kept in process memory.
	GetRedisAddr() string
	GetRedisPassword() string

	// GetTabTTL bounds how long an idle tab runtime is kept around.
	GetTabTTL() time.Duration

	// GetExchangeTimeout bounds the OAuth code-exchange network call.
	GetExchangeTimeout() time.Duration

	// GetRedirectCountdown is how long result pages wait before redirecting.
	GetRedirectCountdown() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "")
}

func (Session) GetRedisPassword() string {
	return GetEnv(redisPassVar, "")
}

func (Session) GetTabTTL() time.Duration {
	return durationEnv(tabTTLVar, 12*time.Hour)
}

func (Session) GetExchangeTimeout() time.Duration {
	return durationEnv(exchangeVar, 30*time.Second)
}

func (Session) GetRedirectCountdown() time.Duration {
	seconds, err := strconv.Atoi(GetEnv(countdownVar, "5"))
	if err != nil || seconds < 0 {
		seconds = 5
	}
	return time.Duration(seconds) * time.Second
}

func durationEnv(envVar string, defaultValue time.Duration) time.Duration {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return d
}
