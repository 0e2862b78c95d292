package logger

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	Logger *logrus.Logger // Main logger instance

	initOnce sync.Once
)

// Initialize sets up the application logger from LOG_LEVEL and LOG_FILE.
// LOG_FILE=stdout keeps everything on the console, any other value (or unset)
// writes to logs/pulseesg.log.
func Initialize() {
	initOnce.Do(setup)
}

func setup() {
	Logger = logrus.New()
	Logger.SetLevel(parseLevel(os.Getenv("LOG_LEVEL")))
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableColors:   true,
	})

	target := os.Getenv("LOG_FILE")
	if target == "stdout" {
		Logger.SetOutput(os.Stdout)
		return
	}

	logsDir := "logs"
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Printf("Failed to create logs directory: %v\n", err)
		return
	}

	logPath := fmt.Sprintf("%s/pulseesg.log", logsDir)
	if target != "" {
		logPath = target
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		fmt.Printf("Failed to open log file: %v\n", err)
		return
	}

	Logger.SetOutput(logFile)
	Logger.SetReportCaller(true)

	Logger.WithFields(logrus.Fields{
		"log_level": Logger.GetLevel().String(),
		"log_file":  logPath,
	}).Info("Logging system initialized")
}

func parseLevel(level string) logrus.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return logrus.DebugLevel
	case "INFO":
		return logrus.InfoLevel
	case "WARN":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// GetLogger returns the configured main logger instance
func GetLogger() *logrus.Logger {
	Initialize()
	return Logger
}

// WithCompany creates a logger scoped to one analysed company
func WithCompany(companyID uint, companyName string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"company_id":   companyID,
		"company_name": companyName,
		"component":    "esg_analysis",
	})
}

// WithAIClient creates a logger with AI service context
func WithAIClient(callType string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"component": "ai_client",
		"call_type": callType,
	})
}

// WithUser creates a logger with analyst context
func WithUser(analystID uint, email string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"analyst_id": analystID,
		"email":      email,
		"component":  "controller",
	})
}

// WithError creates a logger with error context
func WithError(err error, component string) *logrus.Entry {
	fields := logrus.Fields{
		"error":     err.Error(),
		"component": component,
	}

	if GetLogger().GetLevel() >= logrus.DebugLevel {
		fields["stack_trace"] = getStackTrace()
	}

	return GetLogger().WithFields(fields)
}

// getStackTrace returns a formatted stack trace
func getStackTrace() string {
	var stack []string
	for i := 1; i < 10; i++ {
		if pc, file, line, ok := runtime.Caller(i); ok {
			fn := runtime.FuncForPC(pc)
			stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		}
	}
	return strings.Join(stack, "\n")
}

func Debug(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Debug(msg)
}

func Info(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Info(msg)
}

func Warn(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Warn(msg)
}

func Error(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Error(msg)
}

func Fatal(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Fatal(msg)
}
