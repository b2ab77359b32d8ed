// Package log はアプリケーション全体で使う小さなロガー抽象です。
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger はキー/値の組を受け取る構造化ロガーです。
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options はロガーの出力設定です。
type Options struct {
	Level  string // debug / info / error
	Format string // text (slog) / json / console (zerolog)
	File   string // 空なら標準出力。指定時はローテーションするファイル
}

// OptionsFromEnv は LOG_LEVEL, LOG_FORMAT, LOG_FILE から Options を作ります。
func OptionsFromEnv() Options {
	return Options{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
		File:   os.Getenv("LOG_FILE"),
	}
}

// New は Options に従ったロガーと、出力先を閉じるための io.Closer を返します。
func New(o Options) (Logger, io.Closer) {
	w, closer := writer(o.File)
	switch strings.ToLower(o.Format) {
	case "json", "console":
		return NewZerolog(w, o.Level, o.Format), closer
	default:
		return NewSlog(w, o.Level), closer
	}
}

func writer(file string) (io.Writer, io.Closer) {
	if file == "" {
		return os.Stdout, nopCloser{}
	}
	lj := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   true,
	}
	return lj, lj
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Slog は log/slog のテキストハンドラを使う Logger です。
type Slog struct {
	l *slog.Logger
}

// NewSlog は w に出力する Slog を作成します。
func NewSlog(w io.Writer, level string) *Slog {
	lv := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "error":
		lv = slog.LevelError
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})
	return &Slog{l: slog.New(h)}
}

// Debug はデバッグレベルのログを出力します。
func (s *Slog) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }

// Info は情報レベルのログを出力します。
func (s *Slog) Info(msg string, args ...any) { s.l.Info(msg, args...) }

// Error はエラーレベルのログを出力します。
func (s *Slog) Error(msg string, args ...any) { s.l.Error(msg, args...) }

// Zerolog は zerolog を使う Logger です。
type Zerolog struct {
	l zerolog.Logger
}

// NewZerolog は w に出力する Zerolog を作成します。format が console の場合は
// 人が読みやすい形式で出力します。
func NewZerolog(w io.Writer, level, format string) *Zerolog {
	lv := zerolog.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lv = zerolog.DebugLevel
	case "error":
		lv = zerolog.ErrorLevel
	}
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true}
	}
	return &Zerolog{l: zerolog.New(w).Level(lv).With().Timestamp().Logger()}
}

// Debug はデバッグレベルのログを出力します。args はキーと値の組です。
func (z *Zerolog) Debug(msg string, args ...any) { z.l.Debug().Fields(args).Msg(msg) }

// Info は情報レベルのログを出力します。args はキーと値の組です。
func (z *Zerolog) Info(msg string, args ...any) { z.l.Info().Fields(args).Msg(msg) }

// Error はエラーレベルのログを出力します。args はキーと値の組です。
func (z *Zerolog) Error(msg string, args ...any) { z.l.Error().Fields(args).Msg(msg) }
