package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"GoPcapDissect/internal/config"
	"GoPcapDissect/internal/dissect"
	"GoPcapDissect/internal/logger"
	"GoPcapDissect/internal/metrics"
	"GoPcapDissect/internal/render"
	"GoPcapDissect/internal/session"
)

const (
	exitOK         = 0
	exitError      = 1
	exitEngineInit = 2
)

const usageText = `Usage: pcapdissect -f <file> [-t manual|text] [-c <config>] [-v]

Read a capture file and print the dissection of every frame.

Options:
`

// newEngine 可在测试中替换
var newEngine = func() (*dissect.Engine, error) {
	return dissect.NewEngine()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run 执行一次完整的读取，返回进程退出码
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pcapdissect", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		file       = fs.String("f", "", "输入的抓包文件 (必填)")
		mode       = fs.String("t", "", "输出方式: manual, text (默认 text)")
		configPath = fs.String("c", "", "配置文件路径")
		verbose    = fs.Bool("v", false, "输出调试日志")
	)
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}

	if *file == "" {
		fmt.Fprintln(stderr, "pcapdissect: missing -f <file>")
		fs.Usage()
		return exitError
	}
	if _, err := os.Stat(*file); err != nil {
		fmt.Fprintf(stderr, "pcapdissect: %v\n", err)
		fs.Usage()
		return exitError
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "pcapdissect: %v\n", err)
		return exitError
	}
	if *mode == "" {
		*mode = cfg.Output.Mode
	}

	logger.InitLoggerTo(stderr, *verbose || cfg.Log.Verbose)

	engine, err := newEngine()
	if err != nil {
		log.Printf("Dissection engine init failed: %v", err)
		return exitEngineInit
	}

	m := metrics.New()
	defer func() {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Printf("Write metrics textfile failed: %v", err)
		}
	}()

	sess, err := session.Open(*file, engine, cfg, session.WithMetrics(m))
	if err != nil {
		log.Printf("Open %s failed: %v", *file, err)
		return exitError
	}
	defer sess.Close()

	r := render.New(render.ParseMode(*mode), stdout, engine.NumCategories())
	code := readLoop(sess, r)
	if err := r.Close(); err != nil {
		log.Printf("Flush output failed: %v", err)
		code = exitError
	}
	return code
}

// readLoop 逐帧读取并输出，直到读完或出错
func readLoop(sess *session.Session, r render.Renderer) int {
	for {
		res, err := sess.Next()
		if err == io.EOF {
			return exitOK
		}
		if err != nil {
			log.Printf("Stopped reading: %v", err)
			return exitError
		}

		if err := r.Render(res); err != nil {
			log.Printf("Render frame %d failed: %v", res.Frame.Num, err)
			return exitError
		}
	}
}
