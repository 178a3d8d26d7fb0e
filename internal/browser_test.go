package internal

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/taxonomy-explorer/internal/apperr"
)

const treeJSON = `{"name":"root","children":[
 {"name":"Animal","node_id":"0","children":[
  {"name":"Dog","node_id":"0","children":[{"name":"Bark","node_id":"0"}]},
  {"name":"Cat","node_id":"1"}]},
 {"name":"Music","node_id":"1"}]}`

func treeServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/taxonomy/tree" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(treeJSON))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunLocate(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Browser.URL = treeServer(t).URL

	var out bytes.Buffer
	if err := RunLocate(context.Background(), "0,0,0", false, WithConfig(cfg), WithOutput(&out)); err != nil {
		t.Fatalf("RunLocate: %v", err)
	}
	want := "Animal / Dog / Bark\n\n" +
		"  Animal [0]\n" +
		"    Dog [0,0]\n" +
		">     Bark [0,0,0]\n" +
		"    Cat [0,1]\n" +
		"  Music [1]\n"
	if out.String() != want {
		t.Errorf("output:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestRunLocate_SkipCategories(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Browser.URL = treeServer(t).URL
	cfg.Taxonomy.SkipCategories = []string{"Dog"}

	var out bytes.Buffer
	if err := RunLocate(context.Background(), "0,0,0", false, WithConfig(cfg), WithOutput(&out)); err != nil {
		t.Fatalf("RunLocate: %v", err)
	}
	want := "Animal / Dog / Bark\n\n" +
		"  Animal [0]\n" +
		">   Bark [0,0,0]\n" +
		"    Cat [0,1]\n" +
		"  Music [1]\n"
	if out.String() != want {
		t.Errorf("output:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestRunLocate_UnknownNode(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Browser.URL = treeServer(t).URL
	err := RunLocate(context.Background(), "0,9", false, WithConfig(cfg), WithOutput(&bytes.Buffer{}))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRunLocate_RequiresConfig(t *testing.T) {
	if err := RunLocate(context.Background(), "0", false); err == nil {
		t.Error("missing config should fail")
	}
}

func TestRunLocate_ByName(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Browser.URL = treeServer(t).URL

	var out bytes.Buffer
	if err := RunLocate(context.Background(), "Cat", true, WithConfig(cfg), WithOutput(&out)); err != nil {
		t.Fatalf("RunLocate: %v", err)
	}
	want := "Animal / Cat\n\n" +
		"  Animal [0]\n" +
		"    Dog [0,0]\n" +
		">   Cat [0,1]\n" +
		"  Music [1]\n"
	if out.String() != want {
		t.Errorf("output:\n%s\nwant:\n%s", out.String(), want)
	}

	err := RunLocate(context.Background(), "Piano", true, WithConfig(cfg), WithOutput(&bytes.Buffer{}))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown name: err = %v, want ErrNotFound", err)
	}
}
