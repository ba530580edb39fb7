package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/watchroom/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	mediaDir = configVar[string]{
		envKey:       "SERVER_MEDIA_DIR",
		flagKey:      "media-dir",
		defaultValue: "./media",
	}
	uploadLimitMB = configVar[int]{
		envKey:       "SERVER_UPLOAD_LIMIT_MB",
		flagKey:      "upload-limit-mb",
		defaultValue: 512,
	}
	registryBackend = configVar[string]{
		envKey:       "SERVER_REGISTRY_BACKEND",
		flagKey:      "registry-backend",
		defaultValue: app.RegistryBackendMemory,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.String(mediaDir.flagKey, mediaDir.defaultValue, "Directory for uploaded videos")
	pflag.Int(uploadLimitMB.flagKey, uploadLimitMB.defaultValue, "Maximum upload size in megabytes")
	pflag.String(registryBackend.flagKey, registryBackend.defaultValue, "Room registry backend (memory or redis)")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(mediaDir.flagKey, mediaDir.envKey)
	viper.BindEnv(uploadLimitMB.flagKey, uploadLimitMB.envKey)
	viper.BindEnv(registryBackend.flagKey, registryBackend.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)

	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(mediaDir.flagKey, mediaDir.defaultValue)
	viper.SetDefault(uploadLimitMB.flagKey, uploadLimitMB.defaultValue)
	viper.SetDefault(registryBackend.flagKey, registryBackend.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)

	return &app.AppConfig{
		Host:            viper.GetString(host.flagKey),
		Port:            viper.GetInt(port.flagKey),
		LogLevel:        viper.GetString(logLevel.flagKey),
		MediaDir:        viper.GetString(mediaDir.flagKey),
		UploadLimitMB:   viper.GetInt(uploadLimitMB.flagKey),
		RegistryBackend: viper.GetString(registryBackend.flagKey),
		RedisHost:       viper.GetString(redisHost.flagKey),
		RedisPort:       viper.GetInt(redisPort.flagKey),
		RedisPassword:   viper.GetString(redisPassword.flagKey),
	}
}

func main() {
	godotenv.Load()

	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
