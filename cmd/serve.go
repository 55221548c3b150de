package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/MarcGrol/poststudio/config"
	"github.com/MarcGrol/poststudio/lib/myevents"
	"github.com/MarcGrol/poststudio/lib/myhttpclient"
	"github.com/MarcGrol/poststudio/lib/mylog"
	"github.com/MarcGrol/poststudio/lib/mypublisher"
	"github.com/MarcGrol/poststudio/lib/myrandom"
	"github.com/MarcGrol/poststudio/lib/mystore"
	"github.com/MarcGrol/poststudio/lib/mytime"
	"github.com/MarcGrol/poststudio/lib/myuuid"
	"github.com/MarcGrol/poststudio/lib/oauthsign"
	"github.com/MarcGrol/poststudio/services/oauth"
	"github.com/MarcGrol/poststudio/services/oauth/oauthclient"
	"github.com/MarcGrol/poststudio/services/oauth/statecarrier"
	"github.com/MarcGrol/poststudio/services/warmup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the authorization server",
	Long:  `Starts the HTTP server with the login, callback, refresh and tweet endpoints. Configuration is read from the environment.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		mylog.Configure(os.Stderr, cfg.LogLevel, cfg.LogFormat)

		c, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(c, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(c context.Context, cfg *config.Config) error {
	logger := mylog.New("serve")
	logger.Log(c, "", mylog.SeverityInfo, "Starting with config: %s", cfg)

	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}

	ledger, ledgerCleanup, err := mystore.New[statecarrier.UsedCarrier](c, cfg.StoreConfig(), "ledger", nower)
	if err != nil {
		return fmt.Errorf("error creating carrier ledger: %w", err)
	}
	defer ledgerCleanup()

	outbox, outboxCleanup, err := mystore.New[myevents.EventEnvelope](c, cfg.StoreConfig(), "events", nower)
	if err != nil {
		return fmt.Errorf("error creating event outbox: %w", err)
	}
	defer outboxCleanup()

	router := mux.NewRouter()

	publisher := mypublisher.New(outbox, nower, mypublisher.DefaultRetention)
	publisher.RegisterEndpoints(c, router)

	providers := cfg.Providers()
	httpClient := myhttpclient.New(cfg.HTTPTimeout)
	random := myrandom.NewRandomStringer()

	issuer := statecarrier.NewJWTIssuer([]byte(cfg.CarrierSecret), cfg.CarrierLifetime(), nower, uuider, random, ledger)
	transport := statecarrier.NewCookieTransport(cfg.CarrierLifetime(), cfg.CookieInsecure)
	oauthClient := oauthclient.NewOAuthClient(providers, httpClient, nower)
	oauth1Client := oauthclient.NewOAuth1Client(providers, httpClient, oauthsign.NewSigner(nower, random))

	oauthService := oauth.NewService(providers, issuer, transport, oauthClient, oauth1Client, publisher, uuider, cfg.AppURL)
	err = oauthService.RegisterEndpoints(c, router)
	if err != nil {
		return fmt.Errorf("error registering oauth endpoints: %w", err)
	}

	warmupService := warmup.NewService(map[string]warmup.Pinger{
		"ledger": ledger,
		"events": outbox,
	}, publisher, uuider)
	warmupService.RegisterEndpoints(c, router)

	return startWebServerBlocking(c, cfg.Port, router)
}

func startWebServerBlocking(c context.Context, port int, router *mux.Router) error {
	logger := mylog.New("serve")

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log(c, "", mylog.SeverityInfo, "Starting webserver on port %d (try http://localhost:%d)", port, port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("error starting webserver on port %d: %w", port, err)
	case <-c.Done():
	}

	logger.Log(context.Background(), "", mylog.SeverityInfo, "Shutting down webserver")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(c), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
