package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"carnot/solver"
)

// Settings 求解器和日志设置
type Settings struct {
	Solver solver.Options // 求解器参数
	Level  log.Level      // 日志级别
	Format string         // text 或 json
}

// DefaultSettings 默认设置
func DefaultSettings() *Settings {
	return &Settings{Solver: solver.DefaultOptions(), Level: log.InfoLevel, Format: "text"}
}

// LoadSettings 读取 INI 设置, 文件不存在时返回默认值
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("%w: %v", ErrInvalid, err)}
	}
	sec := cfg.Section("solver")
	o := &s.Solver
	o.Tolerance = sec.Key("tolerance").MustFloat64(o.Tolerance)
	o.MaxIterations = sec.Key("max_iterations").MustInt(o.MaxIterations)
	o.MaxShrink = sec.Key("max_shrink").MustInt(o.MaxShrink)
	o.Workers = sec.Key("workers").MustInt(o.Workers)
	o.ConditionLimit = sec.Key("cond_limit").MustFloat64(o.ConditionLimit)
	o.Regularization = sec.Key("regularization").MustFloat64(o.Regularization)
	o.Timeout = sec.Key("timeout").MustDuration(o.Timeout)
	switch {
	case o.Tolerance <= 0:
		return nil, invalidField(path, "solver.tolerance", "must be positive")
	case o.MaxIterations <= 0:
		return nil, invalidField(path, "solver.max_iterations", "must be positive")
	case o.MaxShrink < 0:
		return nil, invalidField(path, "solver.max_shrink", "must not be negative")
	case o.Workers <= 0:
		return nil, invalidField(path, "solver.workers", "must be positive")
	}

	sec = cfg.Section("log")
	if v := sec.Key("level").String(); v != "" {
		if s.Level, err = log.ParseLevel(v); err != nil {
			return nil, wrapField(path, "log.level", err)
		}
	}
	s.Format = strings.ToLower(sec.Key("format").MustString(s.Format))
	if s.Format != "text" && s.Format != "json" {
		return nil, invalidField(path, "log.format", "unknown format %q", s.Format)
	}
	return s, nil
}

// Apply 设置日志级别和格式
func (s *Settings) Apply(logger *log.Logger) {
	logger.SetLevel(s.Level)
	if s.Format == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
