package templates

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

const (
	layoutFile  = "layout.html"
	partialsDir = "partials"
)

type Manager struct {
	templatesDir string
	funcs        template.FuncMap

	mu    sync.RWMutex
	cache map[string]*template.Template
}

func NewManager(templatesDir string) *Manager {
	return &Manager{
		templatesDir: templatesDir,
		funcs:        Funcs(),
		cache:        make(map[string]*template.Template),
	}
}

// Render executes a standalone template file, such as an email body.
func (m *Manager) Render(templateName string, data any) (string, error) {
	tmpl, err := m.load(templateName, func() (*template.Template, error) {
		path := filepath.Join(m.templatesDir, templateName)
		return template.New(filepath.Base(path)).Funcs(m.funcs).ParseFiles(path)
	})
	if err != nil {
		return "", err
	}
	return execute(tmpl, templateName, "", data)
}

// RenderPage executes page inside the shared layout. The page file defines
// the "title" and "content" blocks the layout refers to.
func (m *Manager) RenderPage(page string, data any) (string, error) {
	tmpl, err := m.load("page:"+page, func() (*template.Template, error) {
		files := []string{filepath.Join(m.templatesDir, layoutFile)}
		partials, err := filepath.Glob(filepath.Join(m.templatesDir, partialsDir, "*.html"))
		if err != nil {
			return nil, err
		}
		files = append(files, partials...)
		files = append(files, filepath.Join(m.templatesDir, page))
		return template.New(layoutFile).Funcs(m.funcs).ParseFiles(files...)
	})
	if err != nil {
		return "", err
	}
	return execute(tmpl, page, "layout", data)
}

func (m *Manager) load(key string, parse func() (*template.Template, error)) (*template.Template, error) {
	m.mu.RLock()
	tmpl, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	tmpl, err := parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", key, err)
	}

	m.mu.Lock()
	m.cache[key] = tmpl
	m.mu.Unlock()
	return tmpl, nil
}

func execute(tmpl *template.Template, name, block string, data any) (string, error) {
	var buf bytes.Buffer
	var err error
	if block == "" {
		err = tmpl.Execute(&buf, data)
	} else {
		err = tmpl.ExecuteTemplate(&buf, block, data)
	}
	if err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

// Invalidate drops every parsed template.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.cache = make(map[string]*template.Template)
	m.mu.Unlock()
}

// Watch invalidates the cache whenever a file under the templates directory
// changes, until ctx is cancelled.
func (m *Manager) Watch(ctx context.Context, logger hclog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	err = filepath.Walk(m.templatesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					logger.Debug("template changed, clearing cache", "file", ev.Name)
					m.Invalidate()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("template watcher error", "error", err)
			}
		}
	}()
	return nil
}
