package resources

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const (
	BootstrapPage = "bootstrap.html"
	SignOutPage   = "signout.html"
	ErrorPage     = "error.html"
)

//go:embed templates/*.html
var embedded embed.FS

// BootstrapData is rendered into the one-time page that hands the access
// credential to the browser.
type BootstrapData struct {
	// JWTToken is the storage value, already JSON encoded.
	JWTToken  string
	CPURL     string
	LoginURL  string
	AdminPath string
}

type SignOutData struct {
	StorageKeys []string
	Next        string
}

type ErrorData struct {
	Title     string
	Message   string
	AdminPath string
}

// Templates renders the bridge's HTML pages. The embedded defaults can be
// overridden by same-named files in an optional directory, which is
// watched and reloaded on change.
type Templates struct {
	mu        sync.RWMutex
	templates *template.Template
	dir       string
	log       *logrus.Entry
	watcher   *fsnotify.Watcher
	done      chan struct{}
}

func NewTemplates(dir string, log *logrus.Logger) (*Templates, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	t := &Templates{
		dir: dir,
		log: log.WithField("component", "resources"),
	}
	templates, err := t.parse()
	if err != nil {
		return nil, err
	}
	t.templates = templates
	return t, nil
}

func (t *Templates) Render(name string, data any) ([]byte, error) {
	t.mu.RLock()
	templates := t.templates
	t.mu.RUnlock()

	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, name, data)
	return buf.Bytes(), err
}

// Watch starts reloading the override directory on change. It is a no-op
// when no directory was configured.
func (t *Templates) Watch() error {
	if t.dir == "" {
		return nil
	}
	watcher, done, err := watchDir(t.dir, t.reload, t.log)
	if err != nil {
		return fmt.Errorf("failed to start template watcher: %w", err)
	}
	t.watcher = watcher
	t.done = done
	return nil
}

func (t *Templates) Close() error {
	if t.watcher == nil {
		return nil
	}
	close(t.done)
	err := t.watcher.Close()
	t.watcher = nil
	return err
}

func (t *Templates) reload() {
	templates, err := t.parse()
	if err != nil {
		// keep serving the last good set
		t.log.WithError(err).Warnf("Failed to parse templates from '%s'", t.dir)
		return
	}
	t.mu.Lock()
	t.templates = templates
	t.mu.Unlock()
	t.log.Infof("Loaded templates from %s", t.dir)
}

func (t *Templates) parse() (*template.Template, error) {
	templates, err := template.New("").ParseFS(embedded, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded templates: %v", err)
	}
	if t.dir == "" {
		return templates, nil
	}

	pattern := filepath.Join(t.dir, "*.html")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return templates, nil
	}
	return templates.ParseFiles(matches...)
}
