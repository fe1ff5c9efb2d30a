package usecases

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/localdocs/docchat/internal/domain/entities"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newPipeline(store *mockVectorStore, loader *mockLoader) (*IngestionPipeline, *Readiness) {
	readiness := NewReadiness()
	p := NewIngestionPipeline(loader, NewSegmenter(500, 100), &mockEmbedder{}, store, readiness, nil)
	return p, readiness
}

func TestIngestion_MissingDirectory(t *testing.T) {
	p, readiness := newPipeline(&mockVectorStore{}, &mockLoader{})

	_, err := p.Initialize(context.Background(), "/nonexistent/dir")
	if !errors.Is(err, entities.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
	if readiness.Ready() {
		t.Error("readiness flipped without documents")
	}
}

func TestIngestion_EmptyDirectory(t *testing.T) {
	p, _ := newPipeline(&mockVectorStore{}, &mockLoader{})

	_, err := p.Initialize(context.Background(), t.TempDir())
	if !errors.Is(err, entities.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestIngestion_SuccessFlipsReadiness(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "The sky is blue.")
	writeDoc(t, dir, "b.txt", "Grass is green.")

	store := &mockVectorStore{}
	p, readiness := newPipeline(store, &mockLoader{
		loadFn: func(path string) (*entities.Document, error) {
			return &entities.Document{ID: path, Name: filepath.Base(path), Content: "content of " + filepath.Base(path)}, nil
		},
	})

	report, err := p.Initialize(context.Background(), dir)
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if report.DocumentsLoaded != 2 {
		t.Errorf("documents loaded = %d, want 2", report.DocumentsLoaded)
	}
	if report.TotalChunks == 0 {
		t.Error("no chunks reported")
	}
	if !readiness.Ready() {
		t.Error("readiness not flipped on success")
	}
	if len(store.chunks) != report.TotalChunks {
		t.Errorf("store holds %d chunks, report says %d", len(store.chunks), report.TotalChunks)
	}
	for _, c := range store.chunks {
		if len(c.Embedding) == 0 {
			t.Fatal("stored chunk without embedding")
		}
	}
}

func TestIngestion_SkipsUnsupportedAndHidden(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "good.txt", "fine")
	writeDoc(t, dir, "ignored.exe", "binary")
	writeDoc(t, dir, ".hidden.txt", "dotfile")

	var loadedPaths []string
	p, _ := newPipeline(&mockVectorStore{}, &mockLoader{
		loadFn: func(path string) (*entities.Document, error) {
			loadedPaths = append(loadedPaths, path)
			return &entities.Document{ID: path, Name: filepath.Base(path), Content: "x"}, nil
		},
	})

	if _, err := p.Initialize(context.Background(), dir); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if len(loadedPaths) != 1 || filepath.Base(loadedPaths[0]) != "good.txt" {
		t.Errorf("loaded %v, want only good.txt", loadedPaths)
	}
}

func TestIngestion_BadDocumentSkippedNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "good.txt", "fine")
	writeDoc(t, dir, "bad.txt", "broken")

	p, readiness := newPipeline(&mockVectorStore{}, &mockLoader{
		loadFn: func(path string) (*entities.Document, error) {
			if filepath.Base(path) == "bad.txt" {
				return nil, errors.New("corrupt file")
			}
			return &entities.Document{ID: path, Name: filepath.Base(path), Content: "x"}, nil
		},
	})

	report, err := p.Initialize(context.Background(), dir)
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if report.DocumentsLoaded != 1 {
		t.Errorf("documents loaded = %d, want 1", report.DocumentsLoaded)
	}
	if !readiness.Ready() {
		t.Error("one bad document blocked readiness")
	}
}

func TestIngestion_AllDocumentsFailing(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "bad.txt", "broken")

	p, readiness := newPipeline(&mockVectorStore{}, &mockLoader{
		loadFn: func(path string) (*entities.Document, error) {
			return nil, errors.New("corrupt file")
		},
	})

	_, err := p.Initialize(context.Background(), dir)
	if !errors.Is(err, entities.ErrIngestion) {
		t.Errorf("expected ErrIngestion, got %v", err)
	}
	if readiness.Ready() {
		t.Error("readiness flipped despite total failure")
	}
}

func TestIngestion_ReplaceSemantics(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "first")

	store := &mockVectorStore{}
	p, _ := newPipeline(store, &mockLoader{})

	if _, err := p.Initialize(context.Background(), dir); err != nil {
		t.Fatalf("first initialize failed: %v", err)
	}
	firstCount := len(store.chunks)

	// Re-running while ready is allowed and replaces the index.
	if _, err := p.Initialize(context.Background(), dir); err != nil {
		t.Fatalf("second initialize failed: %v", err)
	}
	if store.cleared != 2 {
		t.Errorf("store cleared %d times, want 2", store.cleared)
	}
	if len(store.chunks) != firstCount {
		t.Errorf("chunk count changed across identical runs: %d vs %d", firstCount, len(store.chunks))
	}
}

func TestIngestion_ConcurrentRunRejected(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "content")

	entered := make(chan struct{})
	release := make(chan struct{})
	store := &mockVectorStore{
		clearFn: func() error {
			close(entered)
			<-release
			return nil
		},
	}
	p, _ := newPipeline(store, &mockLoader{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Initialize(context.Background(), dir)
	}()

	<-entered
	_, err := p.Initialize(context.Background(), dir)
	if !errors.Is(err, entities.ErrIngestionBusy) {
		t.Errorf("expected ErrIngestionBusy, got %v", err)
	}
	close(release)
	wg.Wait()
}

func TestIngestion_StoreFailureRevertsReadiness(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "content")

	store := &mockVectorStore{
		storeFn: func(chunks []entities.Chunk) error { return errors.New("disk full") },
	}
	p, readiness := newPipeline(store, &mockLoader{})
	readiness.Set(true) // previously ready

	_, err := p.Initialize(context.Background(), dir)
	if !errors.Is(err, entities.ErrIngestion) {
		t.Fatalf("expected ErrIngestion, got %v", err)
	}
	if readiness.Ready() {
		t.Error("readiness not reverted on store failure")
	}
}

func TestIngestion_ResetRevertsReadiness(t *testing.T) {
	store := &mockVectorStore{chunks: []entities.Chunk{{ID: "c1"}}}
	p, readiness := newPipeline(store, &mockLoader{})
	readiness.Set(true)

	if err := p.Reset(context.Background()); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if readiness.Ready() {
		t.Error("readiness still set after reset")
	}
	if len(store.chunks) != 0 {
		t.Error("store not cleared on reset")
	}
}
