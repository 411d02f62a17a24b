package config

import (
	"time"
)

type UpigConfig struct {
	LogLevel       string           `json:"logLevel" mapstructure:"logLevel"`
	LogFormat      string           `json:"logFormat" mapstructure:"logFormat"`
	ProfilerAddr   string           `json:"profilerAddr" mapstructure:"profilerAddr"`
	PrometheusAddr string           `json:"prometheusAddr" mapstructure:"prometheusAddr"`
	Transport      *TransportConfig `json:"transport" mapstructure:"transport"`
	Bank           *BankConfig      `json:"bank" mapstructure:"bank"`
	Terminal       *TerminalConfig  `json:"terminal" mapstructure:"terminal"`
	Device         *DeviceConfig    `json:"device" mapstructure:"device"`
}

type TransportConfig struct {
	DialTimeout     time.Duration `json:"dialTimeout" mapstructure:"dialTimeout"`
	ResponseTimeout time.Duration `json:"responseTimeout" mapstructure:"responseTimeout"`
	MaxConnections  int64         `json:"maxConnections" mapstructure:"maxConnections"`
}

type BankConfig struct {
	ListenAddr        string `json:"listenAddr" mapstructure:"listenAddr"`
	DataDir           string `json:"dataDir" mapstructure:"dataDir"`
	AutoRegisterPayee bool   `json:"autoRegisterPayee" mapstructure:"autoRegisterPayee"`
}

type TerminalConfig struct {
	ListenAddr   string        `json:"listenAddr" mapstructure:"listenAddr"`
	BankAddr     string        `json:"bankAddr" mapstructure:"bankAddr"`
	MerchantID   string        `json:"merchantId" mapstructure:"merchantId"`
	DataDir      string        `json:"dataDir" mapstructure:"dataDir"`
	VmidCacheTTL time.Duration `json:"vmidCacheTTL" mapstructure:"vmidCacheTTL"`
}

type DeviceConfig struct {
	BankAddr     string `json:"bankAddr" mapstructure:"bankAddr"`
	TerminalAddr string `json:"terminalAddr" mapstructure:"terminalAddr"`
}
