package taxonomyservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/taxonomy-explorer/internal/apperr"
	"github.com/starford/taxonomy-explorer/internal/checksum"
	"github.com/starford/taxonomy-explorer/internal/models"
	"github.com/starford/taxonomy-explorer/internal/testutil"
)

func testService(t *testing.T) *Service {
	t.Helper()
	db := testutil.TestDB(t)
	_, store := testutil.TestStore(t)
	testutil.SeedSample(t, db, store)
	return NewService(store, db, testutil.SourceFile)
}

func TestTree(t *testing.T) {
	svc := testService(t)
	root, sum, err := svc.Tree(context.Background())
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if sum != checksum.Sum([]byte(testutil.SampleOntology)) {
		t.Errorf("checksum = %q", sum)
	}
	if len(root.Children) != 2 || root.Children[1].Name != "Music" {
		t.Errorf("top level = %+v", root.Children)
	}
}

func TestNodeInfo(t *testing.T) {
	svc := testService(t)
	info, err := svc.NodeInfo(context.Background(), "Bark")
	if err != nil {
		t.Fatalf("NodeInfo: %v", err)
	}
	// Bark sits at 1,1 under Music and 0,0,0 under Dog; the shallower wins.
	if info.BigID != "1,1" || info.Depth != 2 {
		t.Errorf("placement = %s depth %d", info.BigID, info.Depth)
	}
	if info.CategoryID != "/m/bark" || len(info.Children) != 0 {
		t.Errorf("info = %+v", info)
	}

	if _, err := svc.NodeInfo(context.Background(), "Unicorn"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestNodeByBigID(t *testing.T) {
	svc := testService(t)
	info, err := svc.NodeByBigID(context.Background(), "0")
	if err != nil {
		t.Fatalf("NodeByBigID: %v", err)
	}
	if info.Name != "Animal" || strings.Join(info.Children, ",") != "Dog,Cat" {
		t.Errorf("info = %+v", info)
	}
}

func TestNodeInfoHTML(t *testing.T) {
	svc := testService(t)
	html, err := svc.NodeInfoHTML(context.Background(), "Dog", 0)
	if err != nil {
		t.Fatalf("NodeInfoHTML: %v", err)
	}
	for _, want := range []string{`data-role="node-info"`, "<h4>Dog</h4>", "Sounds of dogs.", "<li>Bark</li>", "https://en.wikipedia.org/wiki/Dog"} {
		if !strings.Contains(html, want) {
			t.Errorf("fragment missing %q:\n%s", want, html)
		}
	}
	if strings.Contains(html, "annotate") {
		t.Error("no call to action without a generation task")
	}

	html, _ = svc.NodeInfoHTML(context.Background(), "Dog", 7)
	if !strings.Contains(html, "/tasks/7/annotate?category=%2Fm%2Fdog") {
		t.Errorf("missing call to action:\n%s", html)
	}

	html, _ = svc.NodeInfoHTML(context.Background(), "Cat", 7)
	if !strings.Contains(html, "omitted") || strings.Contains(html, "/annotate") {
		t.Errorf("omitted category fragment:\n%s", html)
	}
}

func TestRenderNodeInfo_SoundExamples(t *testing.T) {
	info := &models.NodeInfo{CategoryID: "/m/bark", Name: "Bark", Examples: []models.SoundExample{
		{SoundURL: "https://cdn.example.org/bark.mp3", SpectrogramURL: "https://cdn.example.org/bark-spec.png", Duration: 2.5, RMS: 0.05, Peak: 0.2},
		{SoundURL: "https://cdn.example.org/loud.mp3", RMS: 0.05, Peak: 0.98},
		{SoundURL: "https://cdn.example.org/raw.mp3"},
	}}
	html, err := RenderNodeInfo(info, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`data-sound-url="https://cdn.example.org/bark.mp3"`,
		`data-spectrogram-url="https://cdn.example.org/bark-spec.png"`,
		`data-duration="2.5"`,
		`data-gain="2.000"`,
		`data-gain="1.000"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("fragment missing %q:\n%s", want, html)
		}
	}
	// peak-limited: 0.98 ceiling over a 0.98 peak
	if strings.Count(html, `data-gain="1.000"`) != 2 {
		t.Errorf("want unit gain for the peak-limited and unmeasured clips:\n%s", html)
	}
}

func TestRenderNodeInfo_Escapes(t *testing.T) {
	info := &models.NodeInfo{CategoryID: "/m/x", Name: "<script>alert(1)</script>"}
	html, err := RenderNodeInfo(info, 0)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("name not escaped:\n%s", html)
	}
}

func TestReplaceSource(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	current := checksum.Sum([]byte(testutil.SampleOntology))
	next := []byte(`[{"id": "/m/x", "name": "Wind"}]`)

	if _, err := svc.ReplaceSource(ctx, next, checksum.ETag("stale")); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale If-Match: err = %v, want ErrConflict", err)
	}
	if _, err := svc.ReplaceSource(ctx, []byte("not json"), ""); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("invalid content: err = %v, want ErrInvalid", err)
	}

	var events []string
	svc.OnChange(func(kind, path string) { events = append(events, kind+" "+path) })

	meta, err := svc.ReplaceSource(ctx, next, checksum.ETag(current))
	if err != nil {
		t.Fatalf("ReplaceSource: %v", err)
	}
	if len(events) != 1 || events[0] != "updated "+testutil.SourceFile {
		t.Errorf("change events = %v", events)
	}
	if meta.Checksum != checksum.Sum(next) {
		t.Errorf("checksum = %q", meta.Checksum)
	}
	root, _, _ := svc.Tree(ctx)
	if len(root.Children) != 1 || root.Children[0].Name != "Wind" {
		t.Errorf("tree after replace = %+v", root.Children)
	}
}
