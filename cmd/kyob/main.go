package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/okzmo/kyob-client/internal/api"
	"github.com/okzmo/kyob-client/internal/call"
	"github.com/okzmo/kyob-client/internal/config"
	"github.com/okzmo/kyob-client/internal/gateway"
	"github.com/okzmo/kyob-client/internal/sound"
	"github.com/okzmo/kyob-client/internal/stats"
	"github.com/okzmo/kyob-client/internal/store"
	"github.com/okzmo/kyob-client/internal/windows"
)

var (
	apiURL     string
	gatewayURL string
	token      string
	debugAddr  string
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("load .env: %v", err)
	}

	flag.StringVar(&apiURL, "api-url", envOr("KYOB_API_URL", "http://localhost:3000/v1"), "backend base url")
	flag.StringVar(&gatewayURL, "gateway-url", envOr("KYOB_GATEWAY_URL", "ws://localhost:3000/v1/authenticated/connect"), "realtime websocket url")
	flag.StringVar(&token, "token", os.Getenv("KYOB_TOKEN"), "session token")
	flag.StringVar(&debugAddr, "debug-addr", envOr("KYOB_DEBUG_ADDR", ""), "address for /debug/vars, disabled when empty")
	flag.Parse()

	logger := log.New(os.Stderr, "[kyob] ", log.LstdFlags)

	cfg, err := config.NewConfig(apiURL, gatewayURL, token, debugAddr)
	if err != nil {
		logger.Fatal("config:", err)
	}

	claims, err := api.ParseSessionClaims(cfg.SessionToken)
	if err != nil {
		logger.Fatal("session token:", err)
	}
	if claims.Expired(time.Now()) {
		logger.Fatal("session token expired, log in again")
	}

	mux := http.NewServeMux()
	statsUpdater := stats.NewStatsUpdater(mux)
	for _, name := range []string{
		stats.EventsDispatched,
		stats.DecodeErrors,
		stats.MessagesReceived,
		stats.NotificationsPlayed,
		stats.Reconnects,
	} {
		statsUpdater.RegisterMetric(name)
	}
	statsUpdater.Run()
	defer statsUpdater.Stop()

	if cfg.DebugAddr != "" {
		go func() {
			if err := http.ListenAndServe(cfg.DebugAddr, mux); err != nil {
				logger.Println("debug server:", err)
			}
		}()
	}

	client := api.NewClient(logger, cfg.APIURL, cfg.SessionToken)
	wins := windows.NewManager()
	servers := store.NewServers(logger, client, wins)
	users := store.NewUsers(logger, servers)
	sounds := sound.NopPlayer{}
	calls := call.NewCoordinator(logger, noSession{}, servers, users, sounds)

	setupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	setup, err := client.Setup(setupCtx)
	cancel()
	if err != nil {
		logger.Fatal("setup:", err)
	}

	users.SetUser(setup.User)
	users.SetupFriends(setup.Friends)
	users.AddEmojis(setup.Emojis...)
	servers.SetupServers(setup.Servers)
	logger.Printf("session ready for %s (%d servers)", setup.User.Username, len(setup.Servers))

	gw := gateway.New(logger, cfg.GatewayURL, servers, users, wins, calls, sounds, statsUpdater, client)

	dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = gw.Connect(dialCtx)
	cancel()
	if err != nil {
		logger.Fatal("gateway connect:", err)
	}
	logger.Println("gateway connected, session", gw.SessionId())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	logger.Printf("received signal: %s\n", sig)

	gw.Close()
	logger.Println("shutdown complete")
}

// noSession is used while no voice channel is joined; a real media
// session is attached by the UI shell when starting a call.
type noSession struct{}

func (noSession) Connect(context.Context, string) error  { return nil }
func (noSession) Disconnect(context.Context) error       { return nil }
func (noSession) SetMuted(bool) error                    { return nil }
func (noSession) SetParticipantAudio(string, bool) error { return nil }
