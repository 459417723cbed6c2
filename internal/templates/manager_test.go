package templates

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRenderMailTemplate(t *testing.T) {
	m := NewManager("../../templates")
	out, err := m.Render("mail/confirm-email.html", map[string]string{"Link": "http://test.local/confirm-email?token=abc", "Name": "Ana", "SiteName": "CarsaiPlay"})
	require.NoError(t, err)
	assert.Contains(t, out, "http://test.local/confirm-email?token=abc")
}

func TestRenderPageUsesLayout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "layout.html"), `{{define "layout"}}<title>{{template "title" .}}</title><main>{{template "content" .}}</main>{{end}}`)
	writeFile(t, filepath.Join(dir, "partials", "badge.html"), `{{define "badge"}}<b>{{.}}</b>{{end}}`)
	writeFile(t, filepath.Join(dir, "pages", "home.html"), `{{define "title"}}Home{{end}}{{define "content"}}{{template "badge" .Name}} {{initials .Name}}{{end}}`)

	m := NewManager(dir)
	out, err := m.RenderPage("pages/home.html", map[string]string{"Name": "ana maria"})
	require.NoError(t, err)
	assert.Equal(t, `<title>Home</title><main><b>ana maria</b> AM</main>`, out)
}

func TestWatchInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mail", "hello.html")
	writeFile(t, path, `hello {{.}}`)

	m := NewManager(dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Watch(ctx, hclog.NewNullLogger()))

	out, err := m.Render("mail/hello.html", "world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)

	writeFile(t, path, `bye {{.}}`)
	require.Eventually(t, func() bool {
		out, err := m.Render("mail/hello.html", "world")
		return err == nil && out == "bye world"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "AM", Initials("ana maria souza"))
	assert.Equal(t, "U", Initials("  "))
	assert.Equal(t, "É", Initials("élio"))
}

func TestDict(t *testing.T) {
	m, err := Dict("a", 1, "b", "two")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": "two"}, m)

	_, err = Dict("a")
	assert.Error(t, err)
	_, err = Dict(1, 2)
	assert.Error(t, err)
}
