package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Storage namespaces. Uploads land under media/ when article-scoped, or under
// tmp/<session>/ while an article is still being drafted in the editor.
const (
	PermanentPrefix = "media/"
	TempPrefix      = "tmp/"
)

// ObjectStore is the storage backend the asset lifecycle talks to.
// *S3Service implements it; tests use an in-memory fake.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Copy(ctx context.Context, srcKey, dstKey string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	URL(key string) string
	Key(rawURL string) (string, bool)
}

// Assets keeps object storage consistent with the set of assets actually
// referenced by content.
type Assets struct {
	Store ObjectStore
	Log   zerolog.Logger
}

// Destination names where an upload goes: a content-scoped folder when the
// article already exists, or a temporary session folder otherwise.
type Destination struct {
	ArticleID string
	Session   string
}

func (d Destination) prefix() string {
	if d.Session != "" {
		return TempPrefix + d.Session + "/"
	}
	if d.ArticleID != "" {
		return PermanentPrefix + d.ArticleID + "/"
	}
	return PermanentPrefix
}

// PermanentKey maps a temporary key to its permanent equivalent by stripping
// the tmp/<session>/ namespace. Keys already outside the temporary namespace
// map to themselves.
func PermanentKey(key string) string {
	rest, ok := strings.CutPrefix(key, TempPrefix)
	if !ok {
		return key
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[i+1:]
	}
	return PermanentPrefix + rest
}

// Upload validates and normalizes the file, stores it under a fresh key in the
// destination namespace and returns the public locator. Any failure fails the
// whole operation; nothing is partially written.
func (a *Assets) Upload(ctx context.Context, filename, contentType string, data []byte, dest Destination) (string, error) {
	out, outType, ext, err := Normalize(data, filename, contentType)
	if err != nil {
		return "", err
	}
	key := dest.prefix() + uuid.New().String() + ext
	if err := a.Store.Put(ctx, key, bytes.NewReader(out), outType); err != nil {
		return "", fmt.Errorf("store %s: %w", key, err)
	}
	return a.Store.URL(key), nil
}

// Promote moves every temporary ref to its permanent key (copy, then delete
// the temp object) and returns the old-to-new mapping. Refs already permanent
// map to themselves and temp refs whose permanent copy already exists map to
// it, so re-sending the same list after a partial failure converges on the
// same mapping. Malformed or foreign refs are skipped, not errored.
func (a *Assets) Promote(ctx context.Context, refs []string) (map[string]string, error) {
	replacements := make(map[string]string, len(refs))
	for _, ref := range refs {
		key, ok := a.Store.Key(ref)
		if !ok {
			continue
		}
		if !strings.HasPrefix(key, TempPrefix) {
			replacements[ref] = ref
			continue
		}
		dst := PermanentKey(key)
		if err := a.Store.Copy(ctx, key, dst); err != nil {
			// A retry after an earlier promote finds the temp source
			// gone; the permanent copy standing in its place means the
			// ref was already promoted.
			if ok, exErr := a.Store.Exists(ctx, dst); exErr == nil && ok {
				replacements[ref] = a.Store.URL(dst)
				continue
			}
			return nil, fmt.Errorf("promote %s: %w", key, err)
		}
		if err := a.Store.Delete(ctx, key); err != nil {
			// The copy stands; an undeleted temp object is just garbage.
			a.Log.Warn().Str("key", key).Err(err).Msg("temp object delete failed after promote")
		}
		replacements[ref] = a.Store.URL(dst)
	}
	return replacements, nil
}

// Reconcile recomputes the article's live reference set and deletes every
// recorded upload that is no longer referenced. The new recorded list is the
// previously recorded refs that are still live; live refs the article never
// uploaded (an asset owned by another document, say) are never adopted, so
// dropping such a reference later cannot delete an object that is still live
// elsewhere. Running Reconcile twice with no intervening edit deletes nothing
// the second time.
func (a *Assets) Reconcile(ctx context.Context, art *models.Article) (deleted, recorded []string) {
	live := art.LiveRefs()
	recorded = make([]string, 0, len(art.UploadedAssets))
	for _, ref := range art.UploadedAssets {
		if _, ok := live[ref]; ok {
			recorded = append(recorded, ref)
		} else {
			deleted = append(deleted, ref)
		}
	}
	a.deleteAll(ctx, deleted)
	return deleted, recorded
}

// Purge deletes every object belonging to the article: the union of the live
// reference set and whatever remains on the recorded upload list. Runs before
// the document record is removed so a failure leaves the document intact for
// retry. Returns the refs that were attempted.
func (a *Assets) Purge(ctx context.Context, art *models.Article) []string {
	refs := art.LiveRefs()
	for _, ref := range art.UploadedAssets {
		refs[ref] = struct{}{}
	}
	all := make([]string, 0, len(refs))
	for ref := range refs {
		all = append(all, ref)
	}
	sort.Strings(all)
	a.deleteAll(ctx, all)
	return all
}

// DeleteAsset removes a single object by locator. A locator that does not
// resolve to a managed key was never owned by this lifecycle, so it is a
// no-op rather than an error.
func (a *Assets) DeleteAsset(ctx context.Context, ref string) error {
	key, ok := a.Store.Key(ref)
	if !ok {
		return nil
	}
	return a.Store.Delete(ctx, key)
}

// deleteAll removes the given locators from storage, each attempted
// independently and in parallel. Failures are logged and never abort the
// batch: one orphaned object in storage is a lesser failure than blocking the
// user's edit or delete. Returns the refs whose deletion failed.
func (a *Assets) deleteAll(ctx context.Context, refs []string) (failed []string) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, ref := range refs {
		key, ok := a.Store.Key(ref)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(ref, key string) {
			defer wg.Done()
			if err := a.Store.Delete(ctx, key); err != nil {
				a.Log.Warn().Str("key", key).Err(err).Msg("asset delete failed")
				mu.Lock()
				failed = append(failed, ref)
				mu.Unlock()
			}
		}(ref, key)
	}
	wg.Wait()
	return failed
}
