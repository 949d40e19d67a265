package league

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/dustin/go-humanize"
	"github.com/getsentry/raven-go"
	"github.com/mattn/go-zglob"
	"github.com/sirupsen/logrus"
)

// BuildVersion is the time league-standings was built at
var BuildVersion string

type TemplateLoader interface {
	Init() error
	Templates(funcs template.FuncMap) (map[string]*template.Template, error)
}

func NewFilesystemTemplateLoader(dir string) TemplateLoader {
	return &filesystemTemplateLoader{
		dir: dir,
	}
}

type filesystemTemplateLoader struct {
	dir string

	pages, partials []string
}

func (fs *filesystemTemplateLoader) Init() error {
	var err error

	fs.pages, err = zglob.Glob(filepath.Join(fs.dir, "pages", "**", "*.html"))

	if err != nil {
		return err
	}

	fs.partials, err = zglob.Glob(filepath.Join(fs.dir, "partials", "**", "*.html"))

	if err != nil {
		return err
	}

	return nil
}

func (fs *filesystemTemplateLoader) Templates(funcs template.FuncMap) (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)

	for _, page := range fs.pages {
		var templateList []string
		templateList = append(templateList, filepath.Join(fs.dir, "layout", "base.html"))
		templateList = append(templateList, fs.partials...)
		templateList = append(templateList, page)

		t, err := template.New(page).Funcs(funcs).ParseFiles(templateList...)

		if err != nil {
			return nil, err
		}

		templates[strings.TrimPrefix(filepath.ToSlash(page), filepath.ToSlash(fs.dir)+"/pages/")] = t
	}

	return templates, nil
}

// Renderer is the template engine.
type Renderer struct {
	loader TemplateLoader
	config *Configuration

	templates map[string]*template.Template

	reload bool
	mutex  sync.Mutex
}

func NewRenderer(loader TemplateLoader, config *Configuration, reload bool) (*Renderer, error) {
	tr := &Renderer{
		loader: loader,
		config: config,

		templates: make(map[string]*template.Template),
		reload:    reload,
	}

	err := tr.init()

	if err != nil {
		return nil, err
	}

	return tr, nil
}

func templateFuncs() template.FuncMap {
	funcs := sprig.FuncMap()
	funcs["ordinal"] = ordinal
	funcs["driverName"] = driverName
	funcs["driverInitials"] = driverInitials
	funcs["formatPoints"] = formatPoints
	funcs["cellValue"] = cellValue
	funcs["isDNF"] = isDNF
	funcs["progressColor"] = ProgressColor
	funcs["humanizeTime"] = humanize.Time
	funcs["jsonEncode"] = jsonEncode
	funcs["displaySeries"] = displaySeries

	return funcs
}

// init loads template files into memory.
func (tr *Renderer) init() error {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()

	err := tr.loader.Init()

	if err != nil {
		return err
	}

	tr.templates, err = tr.loader.Templates(templateFuncs())

	if err != nil {
		return err
	}

	return nil
}

func cellValue(standing *DriverStanding, round string) string {
	cell, ok := standing.PerRound[round]

	if !ok {
		return "0"
	}

	return cell.String()
}

func isDNF(standing *DriverStanding, round string) bool {
	return standing.PerRound[round].DNF
}

func jsonEncode(v interface{}) template.JS {
	buf := new(bytes.Buffer)

	_ = json.NewEncoder(buf).Encode(v)

	return template.JS(buf.String())
}

type TemplateVars interface {
	Get() *BaseTemplateVars
}

type BaseTemplateVars struct {
	Errors            []interface{}
	Request           *http.Request
	Debug             bool
	MonitoringEnabled bool
	BaseURL           string
	Version           string
	Watched           []SeasonDivision
	RenderedAt        time.Time
}

func (b *BaseTemplateVars) Get() *BaseTemplateVars {
	return b
}

func (tr *Renderer) addData(r *http.Request, vars TemplateVars) {
	data := vars.Get()

	data.Request = r
	data.Debug = Debug
	data.Version = BuildVersion
	data.RenderedAt = time.Now()

	if tr.config != nil {
		data.MonitoringEnabled = tr.config.Monitoring.Enabled
		data.BaseURL = tr.config.HTTP.BaseURL
		data.Watched = tr.config.Live.Watch
	}
}

// LoadTemplate reads a template from templates and renders it with data to the given io.Writer
func (tr *Renderer) LoadTemplate(w http.ResponseWriter, r *http.Request, view string, vars TemplateVars) error {
	if tr.reload {
		// reload templates on every request if enabled, so
		// that we don't have to constantly restart the website
		err := tr.init()

		if err != nil {
			return err
		}
	}

	tr.mutex.Lock()
	t, ok := tr.templates[filepath.ToSlash(view)]
	tr.mutex.Unlock()

	if !ok {
		return fmt.Errorf("unable to find template: %s", filepath.ToSlash(view))
	}

	if vars == nil {
		vars = &BaseTemplateVars{}
	}

	tr.addData(r, vars)

	return t.ExecuteTemplate(w, "base", vars)
}

// MustLoadTemplate asserts that a LoadTemplate call must succeed or be dealt with via the http.ResponseWriter
func (tr *Renderer) MustLoadTemplate(w http.ResponseWriter, r *http.Request, view string, vars TemplateVars) {
	err := tr.LoadTemplate(w, r, view, vars)

	if err != nil {
		if _, ok := err.(*net.OpError); !ok {
			// don't capture OpErrors, they flood sentry with non-errors
			raven.CaptureError(err, nil)
		}
		logrus.WithError(err).Errorf("Unable to load template: %s", view)
		http.Error(w, "unable to load template", http.StatusInternalServerError)
		return
	}
}
