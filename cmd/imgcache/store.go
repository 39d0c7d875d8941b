package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/imgcache/blobstore"
	"github.com/hupe1980/imgcache/blobstore/minio"
	"github.com/hupe1980/imgcache/blobstore/s3"
	"github.com/hupe1980/imgcache/cache"
	"github.com/hupe1980/imgcache/codec"
	"github.com/hupe1980/imgcache/config"
	"github.com/hupe1980/imgcache/model"
	"github.com/hupe1980/imgcache/source"
)

// stores holds the remote store and the optional local drawing store.
type stores struct {
	remote blobstore.BlobStore
	local  blobstore.BlobStore
}

// forKind returns the store keys of kind are read from.
func (s *stores) forKind(kind model.Kind) blobstore.BlobStore {
	if kind == model.KindLocalDrawing && s.local != nil {
		return s.local
	}
	return s.remote
}

// loader routes local drawings to the local store and serves the default
// avatar for users without a profile picture.
func (s *stores) loader() cache.Loader {
	layout := source.DefaultLayout()
	remote := source.NewAvatarFallback(source.NewBlobLoader(s.remote, layout), s.remote)
	chain := source.NewChain(remote)
	if s.local != nil {
		chain.Route(model.KindLocalDrawing, source.NewBlobLoader(s.local, layout))
	}
	return chain
}

func openStores(ctx context.Context, cfg config.Store) (*stores, error) {
	remote, err := openRemote(ctx, cfg)
	if err != nil {
		return nil, err
	}

	alg, err := codec.ParseAlgorithm(cfg.Compression)
	if err != nil {
		return nil, err
	}
	if alg != codec.None {
		remote = blobstore.NewCompressedStore(remote, alg)
	}

	s := &stores{remote: remote}
	if cfg.LocalDir != "" {
		s.local = blobstore.NewLocalStore(cfg.LocalDir)
	}
	return s, nil
}

func openRemote(ctx context.Context, cfg config.Store) (blobstore.BlobStore, error) {
	switch cfg.Kind {
	case config.StoreMemory:
		return blobstore.NewMemoryStore(), nil
	case config.StoreLocal:
		return blobstore.NewLocalStore(cfg.Path), nil
	case config.StoreMinio:
		client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.Secure,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return minio.NewStore(client, cfg.Bucket, cfg.Prefix), nil
	case config.StoreS3, config.StoreDynamoDB:
		awsCfg, err := loadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Kind == config.StoreDynamoDB {
			client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
				if cfg.Endpoint != "" {
					o.BaseEndpoint = aws.String(cfg.Endpoint)
				}
			})
			return s3.NewTableStore(client, cfg.Table), nil
		}
		client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
		return s3.NewStore(client, cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

func loadAWSConfig(ctx context.Context, cfg config.Store) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("aws config: %w", err)
	}
	return awsCfg, nil
}
