package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/nemonet1337/drumledger/pkg/inventory"
)

// GCSStore keeps blobs as objects in a Cloud Storage bucket. Object generations are used as
// versions, so conditional writes give compare-and-swap.
// Cloud StorageのオブジェクトとしてBLOBを保存（世代番号で比較交換）
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
	logger *zap.Logger
}

var _ inventory.VersionedStore = (*GCSStore)(nil)

// NewGCSStore connects to Cloud Storage. credentialsJSON may be empty to use application default credentials.
// Cloud Storageに接続（認証JSONが空ならADCを使用）
func NewGCSStore(ctx context.Context, bucket, prefix, credentialsJSON string, logger *zap.Logger) (*GCSStore, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("GCSバケットが指定されていません")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(credentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("GCSクライアントの作成に失敗しました: %w", err)
	}

	return &GCSStore{client: client, bucket: bucket, prefix: prefix, logger: logger}, nil
}

func (s *GCSStore) object(name string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(path.Join(s.prefix, name))
}

// Get reads the named object
func (s *GCSStore) Get(ctx context.Context, name string) ([]byte, bool, error) {
	data, _, found, err := s.GetVersioned(ctx, name)
	return data, found, err
}

// GetVersioned reads the named object with its generation
// オブジェクトと世代番号を取得
func (s *GCSStore) GetVersioned(ctx context.Context, name string) ([]byte, string, bool, error) {
	r, err := s.object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("GCSオブジェクトの読み込みに失敗しました: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", false, fmt.Errorf("GCSオブジェクトの読み込みに失敗しました: %w", err)
	}
	return data, strconv.FormatInt(r.Attrs.Generation, 10), true, nil
}

// Put writes the named object unconditionally
func (s *GCSStore) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.write(ctx, s.object(name), name, data)
	return err
}

// PutIfVersion writes only when the object is still at generation version ("" means absent)
// 世代番号が一致する場合のみ書き込む
func (s *GCSStore) PutIfVersion(ctx context.Context, name string, data []byte, version string) (string, error) {
	obj := s.object(name)
	if version == "" {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	} else {
		gen, err := strconv.ParseInt(version, 10, 64)
		if err != nil {
			return "", inventory.ErrVersionMismatch
		}
		obj = obj.If(storage.Conditions{GenerationMatch: gen})
	}
	return s.write(ctx, obj, name, data)
}

func (s *GCSStore) write(ctx context.Context, obj *storage.ObjectHandle, name string, data []byte) (string, error) {
	w := obj.NewWriter(ctx)
	w.ContentType = contentType(name)

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("GCSオブジェクトの書き込みに失敗しました: %w", err)
	}
	if err := w.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			s.logger.Warn("GCSオブジェクトの世代が一致しません", zap.String("name", name))
			return "", inventory.ErrVersionMismatch
		}
		return "", fmt.Errorf("GCSオブジェクトの書き込みに失敗しました: %w", err)
	}
	return strconv.FormatInt(w.Attrs().Generation, 10), nil
}

// Ping checks that the bucket is accessible
func (s *GCSStore) Ping(ctx context.Context) error {
	if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("GCSバケット %q にアクセスできません: %w", s.bucket, err)
	}
	return nil
}

// Close releases the client
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
