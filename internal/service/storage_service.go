package service

import (
	"context"
	"strings"
	"time"

	"testwise_attempt/internal/config"
	"testwise_attempt/internal/model"
	"testwise_attempt/internal/util"
	"testwise_attempt/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ImageProvider turns a stored question image reference into a URL the
// browser can load.
type ImageProvider interface {
	URL(ctx context.Context, ref string) (string, error)
}

type LocalImageProvider struct {
	PublicPrefix string
}

func (p *LocalImageProvider) URL(ctx context.Context, ref string) (string, error) {
	return strings.TrimRight(p.PublicPrefix, "/") + "/" + strings.TrimLeft(ref, "/"), nil
}

// MinioImageProvider hands out short-lived presigned GET URLs.
type MinioImageProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioImageProvider(cfg *config.StorageConfig) (*MinioImageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioSecure,
	})
	if err != nil {
		return nil, err
	}
	return &MinioImageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioImageProvider) URL(ctx context.Context, ref string) (string, error) {
	expiry := p.Config.PresignExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	u, err := p.Client.PresignedGetObject(ctx, p.Config.MinioBucket, strings.TrimLeft(ref, "/"), expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

type StorageService struct {
	Provider ImageProvider
}

func NewStorageService(cfg *config.Config) *StorageService {
	var provider ImageProvider
	switch cfg.Storage.Type {
	case util.StorageMinio:
		p, err := NewMinioImageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Error("Failed to init MinIO, falling back to local image URLs", zap.Error(err))
			provider = &LocalImageProvider{PublicPrefix: cfg.Storage.PublicPrefix}
		} else {
			provider = p
		}
	case util.StorageLocal, "":
		provider = &LocalImageProvider{PublicPrefix: cfg.Storage.PublicPrefix}
	default:
		logger.Log.Warn("Unknown storage type, using local image URLs", zap.String("type", cfg.Storage.Type))
		provider = &LocalImageProvider{PublicPrefix: cfg.Storage.PublicPrefix}
	}
	return &StorageService{Provider: provider}
}

// ResolveImages returns a copy of questions whose image references are
// replaced by loadable URLs. Absolute URLs pass through untouched; a
// reference that cannot be resolved is dropped.
func (s *StorageService) ResolveImages(ctx context.Context, questions []model.Question) []model.Question {
	if len(questions) == 0 {
		return questions
	}
	out := make([]model.Question, len(questions))
	copy(out, questions)
	for i := range out {
		ref := out[i].Image
		if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
			continue
		}
		u, err := s.Provider.URL(ctx, ref)
		if err != nil {
			logger.Log.Warn("question image unavailable", zap.Uint("question_id", out[i].ID), zap.Error(err))
			out[i].Image = ""
			continue
		}
		out[i].Image = u
	}
	return out
}
