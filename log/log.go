package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"
)

// Verbose controls whether debug messages are being printed.
var Verbose bool

// IndentationLevel controls the amount of indentation of log messages.
var IndentationLevel = 0

var errorOccured = false

var logger = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: prefixFormatter{},
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.DebugLevel,
}

// successKey marks entries logged through Success so the formatter can colour them.
const successKey = "success"

// prefixFormatter renders entries the way the tool always printed them: indented,
// with a coloured level prefix and no timestamps.
type prefixFormatter struct{}

func (prefixFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	prefix := ""
	switch entry.Level {
	case logrus.DebugLevel:
		prefix = "\033[36mDebug: \033[0m"
	case logrus.WarnLevel:
		prefix = "\033[33mWarning: \033[0m"
	case logrus.ErrorLevel:
		prefix = "\033[31mError: \033[0m"
	case logrus.InfoLevel:
		if _, ok := entry.Data[successKey]; ok {
			prefix = "\033[32mSuccess: \033[0m"
		}
	}
	return []byte(strings.Repeat("  ", IndentationLevel) + prefix + entry.Message), nil
}

// SetOutput redirects all log messages. Mostly useful in tests.
func SetOutput(out io.Writer) {
	logger.SetOutput(out)
}

// ErrorOccured reports whether any errors have occured.
func ErrorOccured() bool {
	return errorOccured
}

// Log prints an indented and formatted message to os.Stderr.
func Log(format string, a ...interface{}) {
	logger.Info(fmt.Sprintf(format, a...))
}

// Debug prints an indented and formatted debug message to os.Stderr if verbose output is selected.
func Debug(format string, a ...interface{}) {
	if Verbose {
		logger.Debug(fmt.Sprintf(format, a...))
	}
}

// Success prints an indented and formatted success message to os.Stderr.
func Success(format string, a ...interface{}) {
	logger.WithField(successKey, true).Info(fmt.Sprintf(format, a...))
}

// Warning prints an indented and formatted warning to os.Stderr.
func Warning(format string, a ...interface{}) {
	logger.Warn(fmt.Sprintf(format, a...))
}

// Error prints an indented and formatted error message to os.Stderr.
func Error(format string, a ...interface{}) {
	errorOccured = true
	logger.Error(fmt.Sprintf(format, a...))
}

// Fatal prints an indented and formatted error message to os.Stderr, runs the
// registered exit handlers and terminates the program.
func Fatal(format string, a ...interface{}) {
	Error(format, a...)
	fmt.Fprintf(os.Stderr, "\033[31mA fatal error occured. Exiting...\033[0m\n")
	atexit.Exit(1)
}
