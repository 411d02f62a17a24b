package logger_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upisim/upig/internal/logger"
)

func TestNewLogger(t *testing.T) {
	tt := []struct {
		name      string
		logLevel  string
		logFormat string

		expectedError error
	}{
		{
			name:      "json - info",
			logLevel:  "INFO",
			logFormat: "json",
		},
		{
			name:      "text - debug",
			logLevel:  "DEBUG",
			logFormat: "text",
		},
		{
			name:      "tint - warn",
			logLevel:  "WARN",
			logFormat: "tint",
		},
		{
			name:      "invalid level",
			logLevel:  "VERBOSE",
			logFormat: "text",

			expectedError: logger.ErrLoggerInvalidLogLevel,
		},
		{
			name:      "invalid format",
			logLevel:  "ERROR",
			logFormat: "xml",

			expectedError: logger.ErrLoggerInvalidLogFormat,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// when
			l, err := logger.NewLogger(tc.logLevel, tc.logFormat)

			// then
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, l)
		})
	}
}
