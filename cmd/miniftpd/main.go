// Command miniftpd runs the core FTP server against a TOML configuration
// file describing the listen address, the filesystem root, and the set of
// accepted users.
package main

import (
	"flag"
	"io/ioutil"
	"os"
	"os/signal"
	"syscall"

	"github.com/naoina/toml"

	"github.com/miniftpd/miniftpd"
	"github.com/miniftpd/miniftpd/drivers"
	"github.com/miniftpd/miniftpd/log/gokit"
)

// userConfig is one [[users]] entry in the TOML configuration.
type userConfig struct {
	User string `toml:"user"`
	Pass string `toml:"pass"`
}

// config mirrors the sample driver's TOML shape, trimmed to what the core
// server actually needs: a listen address, a filesystem root, and the
// credential table.
type config struct {
	ListenAddr string       `toml:"listen_addr"`
	BaseDir    string       `toml:"base_dir"`
	Users      []userConfig `toml:"users"`
}

func loadConfig(path string) (*config, error) {
	buf, err := ioutil.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, err
	}

	cfg := &config{ListenAddr: ":2121", BaseDir: "."}
	if err := toml.Unmarshal(buf, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func authenticatorFromConfig(cfg *config) ftpd.AuthenticatorFunc {
	return func(user, pass string) bool {
		for _, u := range cfg.Users {
			if u.User == user && u.Pass == pass {
				return true
			}
		}

		return false
	}
}

func main() {
	os.Exit(run())
}

// run wires the configuration into a Server and blocks until it stops,
// returning the exit code spec §6 defines: 0 normal, 1 bind failure, 3
// listener error. Exit code 2 (poll failure) has no counterpart here: each
// session's goroutine owns its own blocking I/O instead of a shared poll()
// loop, so there is no single poll call whose failure is fatal to the
// whole server.
func run() int {
	var confFile string

	flag.StringVar(&confFile, "conf", "miniftpd.toml", "configuration file")
	flag.Parse()

	cfg, err := loadConfig(confFile)
	if err != nil {
		logger := gokit.NewStdout()
		logger.Error("could not load configuration", "err", err, "file", confFile)

		return 1
	}

	logger := gokit.NewStdout()
	fs := drivers.NewLocalFS(cfg.BaseDir)
	auth := authenticatorFromConfig(cfg)

	server := ftpd.NewServer(cfg.ListenAddr, auth, fs, ftpd.WithLogger(logger))

	if err := server.Listen(); err != nil {
		logger.Error("could not bind listener", "err", err, "address", cfg.ListenAddr)

		return 1
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sig
		logger.Info("shutdown requested")

		if err := server.Stop(); err != nil {
			logger.Warn("error stopping server", "err", err)
		}
	}()

	if err := server.Serve(); err != nil {
		logger.Error("listener error", "err", err)

		return 3
	}

	return 0
}
