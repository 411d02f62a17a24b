package config

import "time"

func getDefaultUpigConfig() *UpigConfig {
	return &UpigConfig{
		LogLevel:       "INFO",
		LogFormat:      "text",
		ProfilerAddr:   "",
		PrometheusAddr: "",
		Transport:      getDefaultTransportConfig(),
		Bank:           getDefaultBankConfig(),
		Terminal:       getDefaultTerminalConfig(),
		Device:         getDefaultDeviceConfig(),
	}
}

func getDefaultTransportConfig() *TransportConfig {
	return &TransportConfig{
		DialTimeout:     5 * time.Second,
		ResponseTimeout: 10 * time.Second,
		MaxConnections:  256,
	}
}

func getDefaultBankConfig() *BankConfig {
	return &BankConfig{
		ListenAddr:        "localhost:9001",
		DataDir:           "./data/bank",
		AutoRegisterPayee: true,
	}
}

func getDefaultTerminalConfig() *TerminalConfig {
	return &TerminalConfig{
		ListenAddr:   "localhost:9002",
		BankAddr:     "localhost:9001",
		MerchantID:   "",
		DataDir:      "./data/terminal",
		VmidCacheTTL: 24 * time.Hour,
	}
}

func getDefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		BankAddr:     "localhost:9001",
		TerminalAddr: "localhost:9002",
	}
}
