package logs

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Logger writes leveled, tagged log lines to its backend. One Logger exists
// per subsystem (e.g. "CHAN" for consensus/chain, "TXSC" for txscript).
type Logger struct {
	level uint32
	tag   string
	b     *Backend
}

func (l *Logger) getLevel() Level    { return Level(atomic.LoadUint32(&l.level)) }
func (l *Logger) SetLevel(lvl Level) { atomic.StoreUint32(&l.level, uint32(lvl)) }
func (l *Logger) Level() Level       { return l.getLevel() }

func (l *Logger) write(lvl Level, format string, args ...interface{}) {
	if lvl < l.getLevel() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s [%s] %s %s\n", time.Now().Format("2006-01-02 15:04:05.000"), lvl, l.tag, msg)
	if l.b == nil {
		fmt.Print(line)
		return
	}
	select {
	case l.b.writeChan <- logEntry{level: lvl, log: []byte(line)}:
	default:
		fmt.Print(line)
	}
}

func (l *Logger) Tracef(format string, args ...interface{})    { l.write(LevelTrace, format, args...) }
func (l *Logger) Debugf(format string, args ...interface{})    { l.write(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})     { l.write(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})     { l.write(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{})    { l.write(LevelError, format, args...) }
func (l *Logger) Criticalf(format string, args ...interface{}) { l.write(LevelCritical, format, args...) }

var defaultBackend = NewBackend()

// Get returns a Logger for the given subsystem tag backed by the package's
// default Backend, the way infrastructure/logger.Get does for a single
// process-wide backend shared by every subsystem.
func Get(tag string) *Logger {
	return defaultBackend.Logger(tag)
}

// DefaultBackend returns the process-wide default Backend, so that callers
// (e.g. internal/config) can attach rotating file sinks or start it.
func DefaultBackend() *Backend {
	return defaultBackend
}

// SubsystemTags enumerates the subsystem tags used across the module, the
// way infrastructure/logger.SubsystemTags registers one constant per
// package that logs.
var SubsystemTags = struct {
	TXSC string // consensus/txscript
	CHAN string // consensus/chain
	VLDT string // consensus/chain verify/verifyInputs
	DIFF string // consensus/chain difficulty retargeting
	CDB  string // consensus/chaindb
	WKRP string // consensus/workerpool
}{
	TXSC: "TXSC",
	CHAN: "CHAN",
	VLDT: "VLDT",
	DIFF: "DIFF",
	CDB:  "CDB ",
	WKRP: "WKRP",
}
