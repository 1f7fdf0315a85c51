package http_test

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	controller "github.com/m-mizutani/tubeaudio/pkg/controller/http"
)

func TestIndex(t *testing.T) {
	ts := newTestServer(t, &MockExtractor{}, nil)

	for _, path := range []string{"/", "/?url=https://example.com", "/?a=b&c"} {
		t.Run(path, func(t *testing.T) {
			w := get(ts.server.Handler, path)
			gt.Value(t, w.Code).Equal(http.StatusOK)
			gt.String(t, w.Header().Get("Content-Type")).Contains("text/html")
			gt.String(t, w.Body.String()).Contains(`action="/download"`)
		})
	}
}

func TestStatic_Embedded(t *testing.T) {
	ts := newTestServer(t, &MockExtractor{}, nil)

	w := get(ts.server.Handler, "/style.css")
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Header().Get("Content-Type")).Contains("text/css")

	w = get(ts.server.Handler, "/script.js")
	gt.Value(t, w.Code).Equal(http.StatusOK)
}

func TestStatic_Directory(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "public")
	gt.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0700))
	gt.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>custom</html>"), 0600))
	gt.NoError(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hello, world\n"), 0600))
	gt.NoError(t, os.WriteFile(filepath.Join(root, "sub", "data.bin"), []byte{0x00, 0x01, 0xff}, 0600))
	gt.NoError(t, os.WriteFile(filepath.Join(root, "100%.txt"), []byte("percent"), 0600))
	gt.NoError(t, os.WriteFile(filepath.Join(base, "secret.txt"), []byte("secret"), 0600))

	ts := newTestServer(t, &MockExtractor{}, nil, controller.WithStaticFS(os.DirFS(root)))
	handler := ts.server.Handler

	testCases := []struct {
		path   string
		status int
		body   string
	}{
		{path: "/", status: http.StatusOK, body: "<html>custom</html>"},
		{path: "/hello.txt", status: http.StatusOK, body: "hello, world\n"},
		{path: "/sub/data.bin", status: http.StatusOK, body: string([]byte{0x00, 0x01, 0xff})},
		{path: "/missing.txt", status: http.StatusNotFound},
		{path: "/sub", status: http.StatusNotFound},
		{path: "/sub/", status: http.StatusNotFound},
		{path: "/../secret.txt", status: http.StatusNotFound},
		{path: "/sub/../../secret.txt", status: http.StatusNotFound},
		{path: "/%2e%2e/secret.txt", status: http.StatusNotFound},
		{path: "/%68ello.txt", status: http.StatusOK, body: "hello, world\n"},
		{path: "/sub/%2e%2e/%2e%2e/secret.txt", status: http.StatusNotFound},
		{path: "/100%25.txt", status: http.StatusOK, body: "percent"},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			w := get(handler, tc.path)
			gt.Value(t, w.Code).Equal(tc.status)
			if tc.status == http.StatusOK {
				gt.Value(t, w.Body.String()).Equal(tc.body)
			} else {
				gt.False(t, strings.Contains(w.Body.String(), "secret"))
			}
		})
	}
}
