// Package logging builds the zerolog logger for llm-router.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/omarluq/llm-router/internal/config"
)

// New creates a zerolog.Logger from LoggingConfig, ready to install as the
// global logger.
func New(cfg config.LoggingConfig) (zerolog.Logger, error) {
	output, outputFile, err := selectOutput(cfg.Output)
	if err != nil {
		return zerolog.Logger{}, err
	}

	if shouldUsePretty(cfg, outputFile) {
		output = buildConsoleWriter(output)
	}

	logger := zerolog.New(output).
		Level(cfg.ParseLevel()).
		With().
		Timestamp().
		Logger()

	return logger, nil
}

func selectOutput(outputCfg string) (io.Writer, *os.File, error) {
	switch outputCfg {
	case "", "stdout":
		return os.Stdout, os.Stdout, nil
	case "stderr":
		return os.Stderr, os.Stderr, nil
	default:
		outputCfg = filepath.Clean(outputCfg)
		f, err := os.OpenFile(outputCfg, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
}

func shouldUsePretty(cfg config.LoggingConfig, outputFile *os.File) bool {
	if cfg.Pretty {
		return true
	}

	switch cfg.Format {
	case "pretty":
		return true
	case "json":
		return false
	default:
		// Auto-detect: pretty when the output is a terminal.
		return outputFile != nil && isatty.IsTerminal(outputFile.Fd())
	}
}

func buildConsoleWriter(output io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:           output,
		TimeFormat:    "15:04:05",
		FormatLevel:   formatLevel,
		FormatMessage: formatMessage,
	}
}

func formatLevel(i interface{}) string {
	levelStr, ok := i.(string)
	if !ok {
		return ""
	}

	levelColors := map[string]string{
		"debug": "\033[36mDBG\033[0m",
		"info":  "\033[32mINF\033[0m",
		"warn":  "\033[33mWRN\033[0m",
		"error": "\033[31mERR\033[0m",
		"fatal": "\033[35mFTL\033[0m",
	}
	if colored, exists := levelColors[levelStr]; exists {
		return colored
	}
	return levelStr
}

func formatMessage(i interface{}) string {
	if i == nil {
		return ""
	}
	return fmt.Sprintf("-> %s", i)
}
