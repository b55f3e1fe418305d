package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// ErrRemoteLocation means the document lives behind a URL the client can
// fetch directly.
var ErrRemoteLocation = errors.New("artifact is stored remotely")

type ObjectStore interface {
	// Put writes data under key, replacing any earlier object, and returns
	// the location clients use to fetch it.
	Put(ctx context.Context, key string, data []byte) (string, error)
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// InvoiceKey is stable per booking so regeneration overwrites in place.
func InvoiceKey(bookingID uuid.UUID) string {
	return "invoice-" + bookingID.String() + ".pdf"
}

type fsStore struct {
	dir     string
	baseURL string
}

func NewFSStore(dir, baseURL string) (ObjectStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	return &fsStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *fsStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := filepath.Base(key)
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}

	// rename is atomic so readers never see a half-written file
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("move %s into place: %w", name, err)
	}

	return path.Join(s.baseURL, name), nil
}

func (s *fsStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, path.Base(location)))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	return f, nil
}

type cloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string) (ObjectStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &cloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *cloudinaryStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	result, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     key,
		ResourceType: "raw",
		Overwrite:    api.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("upload %s: %s", key, result.Error.Message)
	}

	return result.SecureURL, nil
}

func (s *cloudinaryStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, ErrRemoteLocation
}
