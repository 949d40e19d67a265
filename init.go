package league

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
)

// InitWithResolver starts the live hub and the standings refresh loop. The returned context
// is cancelled on ^C.
func InitWithResolver(resolver *Resolver) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	UseShortenedDriverNames = resolver.config.HTTP.ShortenDriverNames

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		// ^C, handle it
		<-c
		logrus.Infof("shutting down")
		cancel()
	}()

	go resolver.ResolveLiveHub().Run(ctx)

	leagueManager := resolver.ResolveLeagueManager()

	go func() {
		if err := leagueManager.ReindexDrivers(ctx); err != nil {
			logrus.WithError(err).Error("Could not build driver search index")
		}
	}()

	if resolver.config.Live.IsEnabled() {
		logrus.Infof("refreshing %d watched season/divisions every %s", len(leagueManager.Watched()), resolver.config.Live.Interval())

		go leagueManager.Watch(ctx, resolver.config.Live.Interval())
	}

	return ctx
}
