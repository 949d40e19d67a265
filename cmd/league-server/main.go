package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/JustaPenguin/league-standings"
	"github.com/JustaPenguin/league-standings/cmd/league-server/views"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
)

var defaultAddress = "0.0.0.0:8772"

func main() {
	var configFile string

	flag.StringVar(&configFile, "config", "config.yml", "path to the config file")
	flag.Parse()

	league.InitLogging()

	config, err := league.ReadConfig(configFile)

	if err != nil {
		ServeHTTPWithError(defaultAddress, false, "Read configuration file (config.yml)", err)
		return
	}

	if config.Monitoring.Enabled {
		league.InitMonitoring(config.Monitoring)
	}

	store, err := config.Store.BuildStore()

	if err != nil {
		ServeHTTPWithError(config.HTTP.Hostname, config.HTTP.OpenBrowser, "Open league-standings store", err)
		return
	}

	var templateLoader league.TemplateLoader

	if league.Debug {
		templateLoader = league.NewFilesystemTemplateLoader(config.HTTP.ViewsDir)
	} else {
		templateLoader = &views.TemplateLoader{}
	}

	resolver, err := league.NewResolver(config, templateLoader, league.Debug, store, league.NewAPIClient(config.API))

	if err != nil {
		ServeHTTPWithError(config.HTTP.Hostname, config.HTTP.OpenBrowser, "Initialise resolver", err)
		return
	}

	ctx := league.InitWithResolver(resolver)

	listener, err := net.Listen("tcp", config.HTTP.Hostname)

	if err != nil {
		ServeHTTPWithError(defaultAddress, config.HTTP.OpenBrowser, "Listen on hostname "+config.HTTP.Hostname+". Likely the port has already been taken by another application", err)
		return
	}

	logrus.Infof("starting league-standings on %s (api: %s)", config.HTTP.Hostname, config.API.BaseURL)

	if config.HTTP.OpenBrowser {
		_ = browser.OpenURL("http://" + strings.Replace(config.HTTP.Hostname, "0.0.0.0", "127.0.0.1", 1))
	}

	srv := &http.Server{
		Handler:           resolver.ResolveRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		logrus.Fatal(err)
	}

	if err := resolver.Close(); err != nil {
		logrus.WithError(err).Error("Could not close store")
	}
}
