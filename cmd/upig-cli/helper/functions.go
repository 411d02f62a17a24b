package helper

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/viper"

	"github.com/upisim/upig/internal/device"
	"github.com/upisim/upig/internal/transport"
)

func GetLogger() *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo, TimeFormat: time.Kitchen}))
}

func GetString(settingName string) string {
	return viper.GetString(settingName)
}

func GetFloat64(settingName string) float64 {
	return viper.GetFloat64(settingName)
}

// NewDevice builds the payer-device client from the persistent bankAddr and
// terminalAddr flags.
func NewDevice() *device.Device {
	logger := GetLogger()
	client := transport.NewClient(logger)

	return device.New(logger, client, GetString("bankAddr"), GetString("terminalAddr"))
}
