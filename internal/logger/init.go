package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

var verbose atomic.Bool

// InitLogger 初始化日志器，日志写到 stderr，stdout 只留给解析输出
func InitLogger(debug bool) {
	InitLoggerTo(os.Stderr, debug)
}

// InitLoggerTo 初始化日志器并写到指定位置
func InitLoggerTo(w io.Writer, debug bool) {
	log.SetOutput(w)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetPrefix("[pcapdissect] ")
	verbose.Store(debug)
}

// Debugf 仅在 verbose 模式下输出
func Debugf(format string, args ...interface{}) {
	if !verbose.Load() {
		return
	}
	log.Output(2, "DEBUG "+fmt.Sprintf(format, args...))
}
