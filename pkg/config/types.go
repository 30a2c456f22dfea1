package config

import (
	"time"
)

type StoreType string

const (
	StoreTypeFS      StoreType = "fs"
	StoreTypeRedis   StoreType = "redis"
	StoreTypeSQLite  StoreType = "sqlite"
	StoreTypeLevelDB StoreType = "leveldb"
	StoreTypeMemory  StoreType = "memory"
)

type RedisSettings struct {
	Address  string
	Password string
	DB       int
}

type StoreSettings struct {
	Type  StoreType
	Path  string
	Redis RedisSettings
}

type SharewareSettings struct {
	Directory string
	URL       string
}

type EngineSettings struct {
	Canvas     string
	Fullscreen bool
	Output     string
}

type InputSettings struct {
	Surface           string
	ControlDelay      int `split_words:"true"`
	MessagesPerSecond int `split_words:"true"`
}

// Delay between the synthetic Control keydown and keyup.
func (i InputSettings) Delay() time.Duration {
	return time.Duration(i.ControlDelay) * time.Millisecond
}

type RestoreSettings struct {
	DropMixedTiers bool `split_words:"true"`
}

type WebSettings struct {
	Port int
}

type Config struct {
	Store     StoreSettings
	Shareware SharewareSettings
	Engine    EngineSettings
	Input     InputSettings
	Restore   RestoreSettings
	Web       WebSettings
}
