// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

// Package minilog extends Go's logging functionality to allow for multiple
// independently-leveled loggers. Call AddLogger to set up each desired
// sink, then use the package-level functions to send messages to all of
// them; each message only reaches a sink whose level is at or below the
// message's severity.
package minilog

import (
	"bufio"
	"errors"
	golog "log"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

var (
	loggers     = make(map[string]*minilogger)
	logLock     sync.RWMutex
	ringLogger  *Ring
	ringEnabled bool
)

// AddLogger adds a named sink that logs only events at level or higher.
func AddLogger(name string, output io.Writer, level Level, color bool) {
	logLock.Lock()
	defer logLock.Unlock()

	loggers[name] = &minilogger{golog.New(output, "", golog.LstdFlags), level, color, nil}
}

// AddRing installs a fixed-size in-memory logger reachable via Dump.
func AddRing(size int, level Level) *Ring {
	logLock.Lock()
	defer logLock.Unlock()

	ringLogger = NewRing(size)
	loggers["ring"] = &minilogger{ringLogger, level, false, nil}
	ringEnabled = true
	return ringLogger
}

// Dump returns the retained ring-buffer lines, or nil if no ring was installed.
func Dump() []string {
	logLock.RLock()
	defer logLock.RUnlock()

	if !ringEnabled {
		return nil
	}
	return ringLogger.Dump()
}

// DelLogger removes a named logger added with AddLogger or AddRing.
func DelLogger(name string) {
	logLock.Lock()
	defer logLock.Unlock()

	delete(loggers, name)
}

func Loggers() []string {
	logLock.RLock()
	defer logLock.RUnlock()

	var ret []string
	for k := range loggers {
		ret = append(ret, k)
	}
	return ret
}

// WillLog reports whether logging at level would reach at least one sink.
func WillLog(level Level) bool {
	logLock.RLock()
	defer logLock.RUnlock()

	for _, v := range loggers {
		if v.Level <= level {
			return true
		}
	}
	return false
}

func SetLevel(name string, level Level) error {
	logLock.Lock()
	defer logLock.Unlock()

	if loggers[name] == nil {
		return errors.New("logger does not exist")
	}
	loggers[name].Level = level
	return nil
}

func GetLevel(name string) (Level, error) {
	logLock.RLock()
	defer logLock.RUnlock()

	if loggers[name] == nil {
		return -1, errors.New("logger does not exist")
	}
	return loggers[name].Level, nil
}

// LogAll reads r line by line and logs every non-empty line under name
// until EOF; at FATAL level the process exits after the first line read.
// It starts a goroutine and returns immediately.
func LogAll(r io.Reader, level Level, name string) {
	go func() {
		br := bufio.NewReader(r)
		for {
			d, err := br.ReadString('\n')
			if trimmed := strings.TrimSpace(d); trimmed != "" {
				logln(level, name, trimmed)
			}
			if level == FATAL {
				os.Exit(1)
			}
			if err != nil {
				break
			}
		}
	}()
}

// Options configures Setup.
type Options struct {
	Level   Level
	Stderr  bool
	Logfile string
	RingLen int // 0 disables the ring buffer
}

// Setup wires the standard set of sinks (stderr, optional logfile, optional
// ring buffer) from parsed flags. Replaces the teacher's per-binary
// logSetup() with one shared entry point.
func Setup(opt Options) error {
	color := runtime.GOOS != "windows"

	if opt.Stderr {
		AddLogger("stdio", os.Stderr, opt.Level, color)
	}

	if opt.Logfile != "" {
		if err := os.MkdirAll(filepath.Dir(opt.Logfile), 0755); err != nil {
			return err
		}
		logfile, err := os.OpenFile(opt.Logfile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0660)
		if err != nil {
			return err
		}
		AddLogger("file", logfile, opt.Level, false)
	}

	if opt.RingLen > 0 {
		AddRing(opt.RingLen, opt.Level)
	}

	return nil
}

func log(level Level, name, format string, arg ...interface{}) {
	logLock.RLock()
	defer logLock.RUnlock()

	for _, logger := range loggers {
		if logger.Level <= level {
			logger.log(level, name, format, arg...)
		}
	}
}

func logln(level Level, name string, arg ...interface{}) {
	logLock.RLock()
	defer logLock.RUnlock()

	for _, logger := range loggers {
		if logger.Level <= level {
			logger.logln(level, name, arg...)
		}
	}
}

// Named returns a component-scoped logger: its messages are prefixed with
// name instead of the caller's file:line.
func Named(name string) *Component {
	return &Component{name: name}
}

// Component is a component-scoped logger handle, e.g. minilog.Named("router").
type Component struct{ name string }

func (c *Component) Debug(format string, arg ...interface{}) { log(DEBUG, c.name, format, arg...) }
func (c *Component) Info(format string, arg ...interface{})  { log(INFO, c.name, format, arg...) }
func (c *Component) Warn(format string, arg ...interface{})  { log(WARN, c.name, format, arg...) }
func (c *Component) Error(format string, arg ...interface{}) { log(ERROR, c.name, format, arg...) }
func (c *Component) Fatal(format string, arg ...interface{}) {
	log(FATAL, c.name, format, arg...)
	os.Exit(1)
}

func Debug(format string, arg ...interface{}) { log(DEBUG, "", format, arg...) }
func Info(format string, arg ...interface{})  { log(INFO, "", format, arg...) }
func Warn(format string, arg ...interface{})  { log(WARN, "", format, arg...) }
func Error(format string, arg ...interface{}) { log(ERROR, "", format, arg...) }
func Fatal(format string, arg ...interface{}) {
	log(FATAL, "", format, arg...)
	os.Exit(1)
}

func Debugln(arg ...interface{}) { logln(DEBUG, "", arg...) }
func Infoln(arg ...interface{})  { logln(INFO, "", arg...) }
func Warnln(arg ...interface{})  { logln(WARN, "", arg...) }
func Errorln(arg ...interface{}) { logln(ERROR, "", arg...) }
func Fatalln(arg ...interface{}) {
	logln(FATAL, "", arg...)
	os.Exit(1)
}
