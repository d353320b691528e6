package main

import (
	"bufio"
	"context"
	"crypto/md5" //nolint:gosec // the catalog API authenticates with md5 digests
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/llehouerou/hifi/internal/catalog"
	"github.com/llehouerou/hifi/internal/config"
	"github.com/llehouerou/hifi/internal/errmsg"
	"github.com/llehouerou/hifi/internal/gpio"
	"github.com/llehouerou/hifi/internal/mpris"
	"github.com/llehouerou/hifi/internal/playback"
	"github.com/llehouerou/hifi/internal/player"
	"github.com/llehouerou/hifi/internal/queue"
	"github.com/llehouerou/hifi/internal/resolver"
	"github.com/llehouerou/hifi/internal/rfid"
	"github.com/llehouerou/hifi/internal/state"
	"github.com/llehouerou/hifi/internal/stderr"
	"github.com/llehouerou/hifi/internal/tui"
	"github.com/llehouerou/hifi/internal/web"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "config" {
		if err := runConfigCmd(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	noTui := flag.Bool("no-tui", false, "run headless (web/MPRIS/RFID/GPIO only)")
	noWeb := flag.Bool("no-web", false, "disable the web interface")
	noMpris := flag.Bool("no-mpris", false, "disable the MPRIS D-Bus interface")
	listen := flag.String("interface", "", "web listen address (overrides config)")
	flag.Parse()

	if err := run(*noTui, *noWeb, *noMpris, *listen); err != nil {
		fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpInitialize, err))
		os.Exit(1)
	}
}

func run(noTui, noWeb, noMpris bool, listen string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.HasCredentials() {
		return fmt.Errorf("no catalog credentials; run 'hifi config set-username' and 'hifi config set-password'")
	}

	store, err := state.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	q := queue.New(store)
	if err := q.Restore(); err != nil {
		log.Printf("%v", err)
	}

	cat := catalog.NewClient(
		cfg.Catalog.BaseURL,
		cfg.Catalog.AppID,
		cfg.Catalog.AppSecret,
		catalog.Credentials{
			Username:     cfg.Catalog.Username,
			PasswordHash: cfg.Catalog.PasswordHash,
		},
		cfg.GetMaxQuality(),
	)

	var capture *stderr.Capture
	if !noTui {
		// ALSA writes warnings straight to fd 2, which would tear up the
		// TUI. Capture must happen before the speaker initializes.
		if c, err := stderr.Start(); err == nil {
			capture = c
			defer capture.Stop()
		}
	}

	engine := player.NewEngine(cfg.GetAudioConfig().BufferMs)
	svc := playback.New(engine, q, resolver.New(cat), store)
	defer svc.Close()

	if capture != nil {
		go func() {
			for line := range capture.Lines {
				svc.Notify(playback.LevelWarning, line)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var linker web.TagLinker
	if cfg.HasRfid() {
		reader := rfid.New(rfid.Config{
			Service:  svc,
			Catalog:  cat,
			Store:    store,
			Device:   cfg.Rfid.Device,
			Debounce: time.Duration(cfg.RfidDebounce()) * time.Millisecond,
		})
		linker = reader
		go func() {
			if err := reader.Run(ctx); err != nil && ctx.Err() == nil {
				svc.Notify(playback.LevelError, errmsg.Format(errmsg.OpRfidRead, err))
			}
		}()
	}

	if cfg.HasGpio() {
		buttons := gpio.New(svc, cfg.Gpio)
		go func() {
			if err := buttons.Run(ctx); err != nil && ctx.Err() == nil {
				svc.Notify(playback.LevelError, errmsg.Format(errmsg.OpGpioRead, err))
			}
		}()
	}

	if !noWeb && cfg.WebEnabled() {
		addr := cfg.WebInterface()
		if listen != "" {
			addr = listen
		}
		srv := web.NewServer(web.Config{
			Service: svc,
			Catalog: cat,
			Store:   store,
			Linker:  linker,
			Secret:  cfg.Web.Secret,
		})
		go func() {
			if err := srv.Run(ctx, addr); err != nil && ctx.Err() == nil {
				svc.Notify(playback.LevelError, errmsg.Format(errmsg.OpWebServe, err))
			}
		}()
	}

	if !noMpris {
		if adapter, err := mpris.New(svc); err == nil {
			defer adapter.Close()
		} else {
			// No session bus on headless boxes; the player works without it.
			log.Printf("mpris unavailable: %v", err)
		}
	}

	if noTui {
		<-ctx.Done()
		return nil
	}
	return tui.Run(svc, cat)
}

func runConfigCmd(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: hifi config <set-username|set-password|show>")
	}

	switch args[0] {
	case "set-username":
		if len(args) < 2 {
			return fmt.Errorf("usage: hifi config set-username <username>")
		}
		return config.SetValue("catalog.username", args[1])

	case "set-password":
		fmt.Print("Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return err
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return fmt.Errorf("empty password")
		}
		hash := fmt.Sprintf("%x", md5.Sum([]byte(password))) //nolint:gosec
		return config.SetValue("catalog.password_hash", hash)

	case "show":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		fmt.Printf("username:     %s\n", cfg.Catalog.Username)
		fmt.Printf("password:     %s\n", maskSecret(cfg.Catalog.PasswordHash))
		fmt.Printf("max quality:  %d\n", cfg.GetMaxQuality())
		fmt.Printf("web:          %v (%s)\n", cfg.WebEnabled(), cfg.WebInterface())
		fmt.Printf("rfid device:  %s\n", orNone(cfg.Rfid.Device))
		return nil

	default:
		return fmt.Errorf("unknown config command %q", args[0])
	}
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "(set)"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
