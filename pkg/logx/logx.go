// Package logx provides component-tagged logging with domain-filtered debug output.
package logx

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is a log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

type ctxKey struct{}

// Logger writes lines of the form "[ts] [component] LEVEL: message".
type Logger struct {
	component string
	out       io.Writer // nil means the package writer
}

// LogEntry is one captured log line.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Component string `json:"component"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Domain    string `json:"domain,omitempty"`
}

// debugConfig controls debug logging. DEBUG=1 enables it, DEBUG_DOMAINS=a,b narrows it.
type debugConfig struct {
	enabled bool
	domains map[string]bool // nil = all domains
}

//nolint:gochecknoglobals // process-wide log sink, same as the stdlib log package
var (
	debugMu sync.RWMutex
	debug   = debugConfig{}

	logWriterLock sync.RWMutex
	logWriter     io.Writer // nil = os.Stderr

	recent = newRingBuffer(500)
)

func init() { //nolint:gochecknoinits // env driven debug switch
	initDebugFromEnv()
}

func initDebugFromEnv() {
	debugMu.Lock()
	defer debugMu.Unlock()

	if v := os.Getenv("DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		debug.enabled = true
	}
	if domains := os.Getenv("DEBUG_DOMAINS"); domains != "" {
		debug.domains = parseDomains(strings.Split(domains, ","))
	}
}

func parseDomains(domains []string) map[string]bool {
	if len(domains) == 0 {
		return nil
	}
	m := make(map[string]bool, len(domains))
	for _, d := range domains {
		if d = strings.TrimSpace(d); d != "" {
			m[d] = true
		}
	}
	return m
}

// NewLogger returns a logger tagged with component.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// NewLoggerWithWriter returns a logger that writes to w instead of the package writer.
func NewLoggerWithWriter(component string, w io.Writer) *Logger {
	return &Logger{component: component, out: w}
}

// SetOutput redirects every logger without its own writer. nil restores stderr.
func SetOutput(w io.Writer) {
	logWriterLock.Lock()
	defer logWriterLock.Unlock()
	logWriter = w
}

// SetDebug turns debug logging on or off, optionally restricted to domains.
func SetDebug(enabled bool, domains ...string) {
	debugMu.Lock()
	defer debugMu.Unlock()
	debug.enabled = enabled
	debug.domains = parseDomains(domains)
}

// IsDebugEnabled reports whether debug logging is on.
func IsDebugEnabled() bool {
	debugMu.RLock()
	defer debugMu.RUnlock()
	return debug.enabled
}

// IsDebugEnabledForDomain reports whether debug logging is on for domain.
func IsDebugEnabledForDomain(domain string) bool {
	debugMu.RLock()
	defer debugMu.RUnlock()
	if !debug.enabled {
		return false
	}
	if debug.domains == nil {
		return true
	}
	return debug.domains[domain]
}

// Component returns the logger's component tag.
func (l *Logger) Component() string {
	return l.component
}

// With returns a logger for a sub-component ("orchestrator" -> "orchestrator/research").
func (l *Logger) With(sub string) *Logger {
	return &Logger{component: l.component + "/" + sub, out: l.out}
}

func (l *Logger) writer() io.Writer {
	if l.out != nil {
		return l.out
	}
	logWriterLock.RLock()
	defer logWriterLock.RUnlock()
	if logWriter != nil {
		return logWriter
	}
	return os.Stderr
}

func (l *Logger) emit(level Level, domain, message string) {
	ts := time.Now().UTC().Format(timestampLayout)
	line := fmt.Sprintf("[%s] [%s] %s: %s\n", ts, l.component, level, message)
	_, _ = io.WriteString(l.writer(), line)

	recent.add(LogEntry{
		Timestamp: ts,
		Component: l.component,
		Level:     string(level),
		Message:   message,
		Domain:    domain,
	})
}

func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabled() {
		return
	}
	l.emit(LevelDebug, "", fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...any) {
	l.emit(LevelInfo, "", fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.emit(LevelWarn, "", fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.emit(LevelError, "", fmt.Sprintf(format, args...))
}

// WithComponent stores a component name in ctx for the package-level Debug helpers.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, ctxKey{}, component)
}

func componentFrom(ctx context.Context) string {
	if ctx != nil {
		if c, ok := ctx.Value(ctxKey{}).(string); ok && c != "" {
			return c
		}
	}
	return "unknown"
}

// Debug logs a debug message for domain, using the component stored in ctx.
//
//	DEBUG=1                          # all domains
//	DEBUG=1 DEBUG_DOMAINS=fanout     # only fanout
//	DEBUG=1 DEBUG_DOMAINS=llm,archon # several
func Debug(ctx context.Context, domain, format string, args ...any) {
	if !IsDebugEnabledForDomain(domain) {
		return
	}
	l := NewLogger(componentFrom(ctx))
	l.emit(LevelDebug, domain, fmt.Sprintf("[%s] %s", domain, fmt.Sprintf(format, args...)))
}

// DebugFlow logs a workflow step with its status.
func DebugFlow(ctx context.Context, domain, step, status string, extra ...string) {
	suffix := ""
	if len(extra) > 0 {
		suffix = " - " + extra[0]
	}
	Debug(ctx, domain, "Flow %s: %s%s", step, status, suffix)
}

// RecentEntries returns captured entries, optionally filtered by level.
func RecentEntries(level Level) []LogEntry {
	return recent.snapshot(level)
}

// DumpRecent writes captured entries to w, oldest first.
func DumpRecent(w io.Writer) {
	for _, e := range recent.snapshot("") {
		fmt.Fprintf(w, "[%s] [%s] %s: %s\n", e.Timestamp, e.Component, e.Level, e.Message)
	}
}

//nolint:gochecknoglobals // default logger for package helpers
var defaultLogger = NewLogger("system")

func Infof(format string, args ...any) {
	defaultLogger.Info(format, args...)
}

func Warnf(format string, args ...any) {
	defaultLogger.Warn(format, args...)
}

// Errorf logs and returns the formatted error.
//
//	err := logx.Errorf("setup failed: %w", err)
func Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	defaultLogger.Error("%s", err.Error())
	return err
}

// Wrap logs msg + ": " + err and returns fmt.Errorf("%s: %w", msg, err). A nil err stays nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", msg, err)
	defaultLogger.Error("%s", wrapped.Error())
	return wrapped
}
