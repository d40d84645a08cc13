package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"sync"

	"dotted/internal/core"

	"github.com/google/uuid"
)

// MaxImageBytes caps uploaded images.
const MaxImageBytes = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// UploadImage validates a multipart image and stores it under
// prefix/ownerID/<uuid>.<ext>, returning its public URL.
func UploadImage(ctx context.Context, store Store, prefix, ownerID string, file *multipart.FileHeader) (string, error) {
	if file.Size > MaxImageBytes {
		return "", fmt.Errorf("%w: image larger than %d bytes", core.ErrInvalid, MaxImageBytes)
	}

	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Sniff instead of trusting the client header.
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("%w: unreadable image", core.ErrInvalid)
	}
	contentType := http.DetectContentType(head[:n])
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: unsupported image type %s", core.ErrInvalid, contentType)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	key := path.Join(prefix, ownerID, uuid.New().String()+ext)
	return store.Upload(ctx, key, f, contentType)
}

// Remove deletes the object behind url. URLs the store did not hand out
// are left alone.
func Remove(ctx context.Context, store Store, url string) error {
	key, ok := store.KeyOf(url)
	if !ok {
		return nil
	}
	return store.Delete(ctx, key)
}

func keyUnder(baseURL, url string) (string, bool) {
	key, ok := strings.CutPrefix(url, strings.TrimRight(baseURL, "/")+"/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Disabled is the Store used when no bucket is configured.
var Disabled Store = disabled{}

type disabled struct{}

func (disabled) Upload(context.Context, string, io.Reader, string) (string, error) {
	return "", fmt.Errorf("%w: image storage is not configured", core.ErrUnavailable)
}

func (disabled) Delete(context.Context, string) error { return nil }

func (disabled) KeyOf(string) (string, bool) { return "", false }

// MemoryStore keeps objects in memory.
type MemoryStore struct {
	mu      sync.Mutex
	BaseURL string
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{BaseURL: "https://images.test", objects: make(map[string][]byte)}
}

func (m *MemoryStore) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return strings.TrimRight(m.BaseURL, "/") + "/" + key, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) KeyOf(url string) (string, bool) {
	return keyUnder(m.BaseURL, url)
}

// Keys lists stored object keys.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
