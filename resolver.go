package league

import (
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Resolver builds and holds the long lived parts of the standings service.
type Resolver struct {
	config          *Configuration
	store           Store
	templateLoader  TemplateLoader
	reloadTemplates bool

	fetcher       Fetcher
	driverIndex   *DriverIndex
	leagueManager *LeagueManager
	liveHub       *LiveHub
	viewRenderer  *Renderer

	// handlers
	baseHandler   *BaseHandler
	leagueHandler *LeagueHandler
	healthCheck   *HealthCheck
}

func NewResolver(config *Configuration, templateLoader TemplateLoader, reloadTemplates bool, store Store, fetcher Fetcher) (*Resolver, error) {
	r := &Resolver{
		config:          config,
		templateLoader:  templateLoader,
		reloadTemplates: reloadTemplates,
		store:           store,
		fetcher:         fetcher,
	}

	if err := r.initViewRenderer(); err != nil {
		return nil, err
	}

	if err := r.initDriverIndex(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Resolver) initViewRenderer() error {
	if r.viewRenderer != nil {
		return nil
	}

	viewRenderer, err := NewRenderer(r.templateLoader, r.config, r.reloadTemplates)

	if err != nil {
		return err
	}

	r.viewRenderer = viewRenderer

	return nil
}

func (r *Resolver) initDriverIndex() error {
	if r.driverIndex != nil {
		return nil
	}

	driverIndex, err := NewDriverIndex()

	if err != nil {
		return err
	}

	r.driverIndex = driverIndex

	return nil
}

func (r *Resolver) ResolveStore() Store {
	return r.store
}

// Close releases the store and the driver search index.
func (r *Resolver) Close() error {
	if err := r.driverIndex.Close(); err != nil {
		logrus.WithError(err).Error("Could not close driver index")
	}

	if closer, ok := r.store.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

func (r *Resolver) ResolveLiveHub() *LiveHub {
	if r.liveHub != nil {
		return r.liveHub
	}

	r.liveHub = NewLiveHub()

	return r.liveHub
}

func (r *Resolver) ResolveLeagueManager() *LeagueManager {
	if r.leagueManager != nil {
		return r.leagueManager
	}

	var broadcaster Broadcaster = NilBroadcaster{}

	if r.config.Live.IsEnabled() {
		broadcaster = r.ResolveLiveHub()
	}

	r.leagueManager = NewLeagueManager(
		r.fetcher,
		r.store,
		r.driverIndex,
		broadcaster,
		r.config.Progress.TopDrivers,
		r.config.Live.Watch,
	)

	return r.leagueManager
}

func (r *Resolver) resolveBaseHandler() *BaseHandler {
	if r.baseHandler != nil {
		return r.baseHandler
	}

	r.baseHandler = NewBaseHandler(r.viewRenderer)

	return r.baseHandler
}

func (r *Resolver) resolveLeagueHandler() *LeagueHandler {
	if r.leagueHandler != nil {
		return r.leagueHandler
	}

	r.leagueHandler = NewLeagueHandler(r.resolveBaseHandler(), r.ResolveLeagueManager())

	return r.leagueHandler
}

func (r *Resolver) resolveHealthCheck() *HealthCheck {
	if r.healthCheck != nil {
		return r.healthCheck
	}

	r.healthCheck = NewHealthCheck(r.ResolveLeagueManager(), r.store, r.driverIndex, r.ResolveLiveHub())

	return r.healthCheck
}

func (r *Resolver) ResolveRouter() http.Handler {
	return Router(
		r.resolveLeagueHandler(),
		r.ResolveLiveHub(),
		r.resolveHealthCheck(),
	)
}

type BaseHandler struct {
	viewRenderer *Renderer
}

func NewBaseHandler(viewRenderer *Renderer) *BaseHandler {
	return &BaseHandler{
		viewRenderer: viewRenderer,
	}
}
