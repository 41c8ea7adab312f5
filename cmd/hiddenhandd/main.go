package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/vctt94/bisonbotkit/logging"

	"github.com/vctt94/hiddenhand/pkg/ledger"
	"github.com/vctt94/hiddenhand/pkg/poker"
	"github.com/vctt94/hiddenhand/pkg/server"
)

func main() {
	var (
		dbPath        string
		host          string
		port          int
		portFile      string
		debugLevel    string
		actionTimeout time.Duration
	)
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database file (created if missing)")
	flag.StringVar(&host, "host", "127.0.0.1", "Host to listen on")
	flag.IntVar(&port, "port", 0, "Port to listen on (0 for random free port)")
	flag.StringVar(&portFile, "portfile", "", "If set, write selected port to this file")
	flag.StringVar(&debugLevel, "debuglevel", "info", "Logging level: trace, debug, info, warn, error")
	flag.DurationVar(&actionTimeout, "actiontimeout", 0, "Override default action timeout (0 = default)")
	flag.Parse()

	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "hiddenhand.sqlite")
	}

	store, err := ledger.NewSQLiteStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open ledger: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	logBackend, err := logging.NewLogBackend(logging.LogConfig{DebugLevel: debugLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}

	var defaults *poker.Timeouts
	if actionTimeout > 0 {
		t := poker.DefaultTimeouts()
		t.Action = actionTimeout
		defaults = &t
	}

	srv, err := server.NewServer(server.Config{
		Store:           store,
		LogBackend:      logBackend,
		Supervise:       true,
		DefaultTimeouts: defaults,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create server: %v\n", err)
		os.Exit(1)
	}
	defer srv.Stop()

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to listen: %v\n", err)
		os.Exit(1)
	}

	if portFile != "" {
		_, p, _ := net.SplitHostPort(lis.Addr().String())
		_ = os.WriteFile(portFile, []byte(p), 0600)
	}

	log := logBackend.Logger("MAIN")
	log.Infof("listening on %s", lis.Addr())
	if err := http.Serve(lis, srv.Router()); err != nil {
		fmt.Fprintf(os.Stderr, "serve error: %v\n", err)
		os.Exit(1)
	}
}
