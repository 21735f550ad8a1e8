package initializer

import (
	"io"
	"log/slog"
	"os"

	"github.com/amirasaad/vatm/pkg/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	infoTxtColor  = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	warnTxtColor  = lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#EE6FF8"}
	errorTxtColor = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF6B6B"}
	debugTxtColor = lipgloss.AdaptiveColor{Light: "#7E57C2", Dark: "#7E57C2"}
)

func setupLogger(cfg *config.Log) *slog.Logger {
	slogger := newLogger(os.Stdout, cfg)
	slog.SetDefault(slogger)
	return slogger
}

// newLogger builds a charmbracelet logger behind slog. Text output gets
// level badges; JSON output is meant for log shippers.
func newLogger(w io.Writer, cfg *config.Log) *slog.Logger {
	formatter := log.JSONFormatter
	switch cfg.Format {
	case "text":
		formatter = log.TextFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           log.Level(cfg.Level),
		Prefix:          cfg.Prefix,
		Formatter:       formatter,
	})
	logger.SetStyles(levelStyles())

	return slog.New(logger)
}

func levelStyles() *log.Styles {
	styles := log.DefaultStyles()
	badge := func(icon string, color lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().SetString(icon).Bold(true).Padding(0, 1).Foreground(color)
	}
	styles.Levels[log.ErrorLevel] = badge("❌", errorTxtColor)
	styles.Levels[log.InfoLevel] = badge("ℹ️", infoTxtColor)
	styles.Levels[log.WarnLevel] = badge("⚠️", warnTxtColor)
	styles.Levels[log.DebugLevel] = badge("🐛", debugTxtColor)

	for key, color := range map[string]lipgloss.AdaptiveColor{
		"error":   errorTxtColor,
		"account": infoTxtColor,
		"event":   infoTxtColor,
		"warn":    warnTxtColor,
		"op":      debugTxtColor,
	} {
		styles.Keys[key] = lipgloss.NewStyle().Foreground(color)
		styles.Values[key] = lipgloss.NewStyle().Bold(true)
	}
	return styles
}
