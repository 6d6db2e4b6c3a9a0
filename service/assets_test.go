package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeBase = "https://cdn.example.com/"

// fakeStore is an in-memory ObjectStore. failDelete lists keys whose deletion
// errors, for exercising the best-effort policy.
type fakeStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failDelete map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, failDelete: map[string]bool{}}
}

func (f *fakeStore) Put(_ context.Context, key string, body io.Reader, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeStore) Copy(_ context.Context, srcKey, dstKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[srcKey]
	if !ok {
		return fmt.Errorf("no such key %s", srcKey)
	}
	f.objects[dstKey] = data
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete[key] {
		return fmt.Errorf("storage unreachable for %s", key)
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStore) URL(key string) string {
	return fakeBase + key
}

func (f *fakeStore) Key(rawURL string) (string, bool) {
	if strings.HasPrefix(rawURL, PermanentPrefix) || strings.HasPrefix(rawURL, TempPrefix) {
		return rawURL, true
	}
	if key, ok := strings.CutPrefix(rawURL, fakeBase); ok && key != "" {
		return key, true
	}
	return "", false
}

func (f *fakeStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newAssets(store *fakeStore) *Assets {
	return &Assets{Store: store, Log: zerolog.Nop()}
}

func TestPermanentKey(t *testing.T) {
	assert.Equal(t, "media/a.webp", PermanentKey("tmp/s1/a.webp"))
	assert.Equal(t, "media/b.webp", PermanentKey("media/b.webp"))
	assert.Equal(t, "media/art1/c.jpg", PermanentKey("tmp/s2/art1/c.jpg"))
}

func TestPromote(t *testing.T) {
	ctx := context.Background()

	t.Run("MixedRefs", func(t *testing.T) {
		store := newFakeStore()
		store.objects["tmp/s1/a.webp"] = []byte("a")
		store.objects["media/b.webp"] = []byte("b")
		a := newAssets(store)

		repl, err := a.Promote(ctx, []string{"tmp/s1/a.webp", "media/b.webp", "https://elsewhere.test/x.png"})
		require.NoError(t, err)

		assert.Equal(t, map[string]string{
			"tmp/s1/a.webp": fakeBase + "media/a.webp",
			"media/b.webp":  "media/b.webp",
		}, repl)
		assert.Equal(t, []string{"media/a.webp", "media/b.webp"}, store.keys(),
			"temp object deleted, permanent copy present")
	})

	t.Run("Idempotent", func(t *testing.T) {
		store := newFakeStore()
		store.objects["tmp/s1/a.webp"] = []byte("a")
		a := newAssets(store)

		first, err := a.Promote(ctx, []string{"tmp/s1/a.webp"})
		require.NoError(t, err)
		promoted := first["tmp/s1/a.webp"]

		second, err := a.Promote(ctx, []string{promoted})
		require.NoError(t, err)
		assert.Equal(t, promoted, second[promoted], "re-promoting a permanent ref is identity")
		assert.Equal(t, []string{"media/a.webp"}, store.keys())
	})

	t.Run("RetryWithSameTempRefs", func(t *testing.T) {
		store := newFakeStore()
		store.objects["tmp/s1/a.webp"] = []byte("a")
		a := newAssets(store)

		first, err := a.Promote(ctx, []string{"tmp/s1/a.webp"})
		require.NoError(t, err)

		// The temp object is gone now; re-sending the original list must
		// converge on the same mapping instead of erroring on the copy.
		second, err := a.Promote(ctx, []string{"tmp/s1/a.webp"})
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, []string{"media/a.webp"}, store.keys())
	})

	t.Run("MissingSourceWithoutCopyStillErrors", func(t *testing.T) {
		store := newFakeStore()
		a := newAssets(store)

		_, err := a.Promote(ctx, []string{"tmp/s1/never-uploaded.webp"})
		assert.Error(t, err, "no temp source and no permanent copy is a real failure")
	})
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	x := fakeBase + "media/x.jpg"
	y := fakeBase + "media/y.jpg"
	z := fakeBase + "media/z.jpg"

	article := func() *models.Article {
		return &models.Article{
			CoverImage: x,
			Body: models.Node{
				Type: models.NodeDoc,
				Children: []models.Node{
					{Type: models.NodeParagraph, Children: []models.Node{{Type: models.NodeText, Text: "hi"}}},
					{Type: models.NodeImage, Src: y},
				},
			},
			UploadedAssets: []string{x, y, z},
		}
	}

	t.Run("DeletesExactlyTheOrphan", func(t *testing.T) {
		store := newFakeStore()
		store.objects["media/x.jpg"] = []byte("x")
		store.objects["media/y.jpg"] = []byte("y")
		store.objects["media/z.jpg"] = []byte("z")
		a := newAssets(store)

		deleted, recorded := a.Reconcile(ctx, article())
		assert.Equal(t, []string{z}, deleted)
		assert.Equal(t, []string{x, y}, recorded)
		assert.Equal(t, []string{"media/x.jpg", "media/y.jpg"}, store.keys())
	})

	t.Run("Idempotent", func(t *testing.T) {
		store := newFakeStore()
		store.objects["media/x.jpg"] = []byte("x")
		store.objects["media/y.jpg"] = []byte("y")
		store.objects["media/z.jpg"] = []byte("z")
		a := newAssets(store)

		art := article()
		deleted, recorded := a.Reconcile(ctx, art)
		require.Equal(t, []string{z}, deleted)

		art.UploadedAssets = recorded
		deleted, recorded = a.Reconcile(ctx, art)
		assert.Empty(t, deleted, "second reconcile with no edits deletes nothing")
		assert.Equal(t, []string{x, y}, recorded)
	})

	t.Run("NeverAdoptsAssetsItDidNotUpload", func(t *testing.T) {
		store := newFakeStore()
		store.objects["media/artA/shared.jpg"] = []byte("shared")
		a := newAssets(store)

		// Article B pastes a reference to article A's image but never
		// uploaded it, so reconcile must not record it.
		shared := fakeBase + "media/artA/shared.jpg"
		art := &models.Article{
			Body: models.Node{Type: models.NodeDoc, Children: []models.Node{
				{Type: models.NodeImage, Src: shared},
			}},
		}
		deleted, recorded := a.Reconcile(ctx, art)
		assert.Empty(t, deleted)
		assert.Empty(t, recorded)

		// Dropping the pasted reference later must leave A's object alone.
		art.Body = models.Node{Type: models.NodeDoc}
		art.UploadedAssets = recorded
		deleted, recorded = a.Reconcile(ctx, art)
		assert.Empty(t, deleted)
		assert.Empty(t, recorded)
		assert.Equal(t, []string{"media/artA/shared.jpg"}, store.keys())
	})

	t.Run("FailedDeleteDoesNotAbortBatch", func(t *testing.T) {
		store := newFakeStore()
		store.objects["media/x.jpg"] = []byte("x")
		store.objects["media/z.jpg"] = []byte("z")
		store.objects["media/w.jpg"] = []byte("w")
		store.failDelete["media/z.jpg"] = true
		a := newAssets(store)

		art := &models.Article{
			CoverImage:     x,
			Body:           models.Node{Type: models.NodeDoc},
			UploadedAssets: []string{x, z, fakeBase + "media/w.jpg"},
		}
		deleted, recorded := a.Reconcile(ctx, art)
		sort.Strings(deleted)
		assert.Equal(t, []string{fakeBase + "media/w.jpg", z}, deleted)
		assert.Equal(t, []string{x}, recorded)
		assert.Equal(t, []string{"media/x.jpg", "media/z.jpg"}, store.keys(),
			"w deleted even though z's deletion failed")
	})
}

func TestPurge(t *testing.T) {
	store := newFakeStore()
	store.objects["media/x.jpg"] = []byte("x")
	store.objects["media/y.jpg"] = []byte("y")
	store.objects["media/z.jpg"] = []byte("z")
	store.objects["media/other.jpg"] = []byte("other")
	a := newAssets(store)

	art := &models.Article{
		CoverImage: fakeBase + "media/x.jpg",
		Body: models.Node{Type: models.NodeDoc, Children: []models.Node{
			{Type: models.NodeImage, Src: fakeBase + "media/y.jpg"},
		}},
		UploadedAssets: []string{fakeBase + "media/y.jpg", fakeBase + "media/z.jpg"},
	}
	attempted := a.Purge(context.Background(), art)
	assert.Len(t, attempted, 3, "union of live refs and recorded uploads")
	assert.Equal(t, []string{"media/other.jpg"}, store.keys(), "unrelated objects untouched")
}

func TestDeleteAsset(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.objects["media/x.jpg"] = []byte("x")
	a := newAssets(store)

	t.Run("UnmanagedLocatorIsNoop", func(t *testing.T) {
		assert.NoError(t, a.DeleteAsset(ctx, "https://elsewhere.test/x.png"))
		assert.Equal(t, []string{"media/x.jpg"}, store.keys())
	})

	t.Run("ManagedLocatorDeleted", func(t *testing.T) {
		require.NoError(t, a.DeleteAsset(ctx, fakeBase+"media/x.jpg"))
		assert.Empty(t, store.keys())
	})
}

func TestDeleteAllReportsFailures(t *testing.T) {
	store := newFakeStore()
	store.objects["media/a.jpg"] = []byte("a")
	store.objects["media/b.jpg"] = []byte("b")
	store.failDelete["media/b.jpg"] = true
	a := newAssets(store)

	failed := a.deleteAll(context.Background(), []string{"media/a.jpg", "media/b.jpg", "not a locator"})
	assert.Equal(t, []string{"media/b.jpg"}, failed)
	assert.Equal(t, []string{"media/b.jpg"}, store.keys())
}
