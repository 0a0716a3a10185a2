package main

import "time"

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080" validate:"gt=0,lte=65535"`
	MaxRoomSize          int           `env:"MAX_ROOM_SIZE,default=10" validate:"gt=0"`
	MaxTextLength        int           `env:"MAX_TEXT_LENGTH,default=1000000" validate:"gt=0"`
	GracePeriod          time.Duration `env:"GRACE_PERIOD,default=5s" validate:"gt=0"`
	ThrottleWindow       time.Duration `env:"ADMIT_THROTTLE_WINDOW,default=1s" validate:"gt=0"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true" validate:"required"`
	LogLevel             string        `env:"LOG_LEVEL,default=info"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=32" validate:"gt=0"`
	FlushBufferSize      int           `env:"FLUSH_BUFFER_SIZE,default=256" validate:"gt=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s" validate:"gt=0"`
}
