package s3

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/opengee/gepgdb/cmd/internal/backup/providers"
	"github.com/opengee/gepgdb/cmd/internal/constants"
	"github.com/opengee/gepgdb/cmd/internal/utils"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	defaultBackupName = "gepgdb"
)

// BackupProviderS3 stores dump archives in a versioned S3 bucket
type BackupProviderS3 struct {
	fs     afero.Fs
	log    *zap.SugaredLogger
	c      *s3.Client
	config *BackupProviderConfigS3
}

// BackupProviderConfigS3 provides configuration for the BackupProviderS3
type BackupProviderConfigS3 struct {
	BucketName    string
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	BackupName    string
	ObjectPrefix  string
	ObjectsToKeep int64
	FS            afero.Fs
}

func (c *BackupProviderConfigS3) validate() error {
	if c.BucketName == "" {
		return errors.New("s3 bucket name must not be empty")
	}
	if c.Endpoint == "" {
		return errors.New("s3 endpoint must not be empty")
	}
	if c.AccessKey == "" {
		return errors.New("s3 accesskey must not be empty")
	}
	if c.SecretKey == "" {
		return errors.New("s3 secretkey must not be empty")
	}

	return nil
}

// New returns a S3 backup provider
func New(ctx context.Context, log *zap.SugaredLogger, cfg *BackupProviderConfigS3) (*BackupProviderS3, error) {
	if cfg == nil {
		return nil, errors.New("s3 backup provider requires a provider config")
	}

	if cfg.ObjectsToKeep == 0 {
		cfg.ObjectsToKeep = constants.DefaultObjectsToKeep
	}
	if cfg.BackupName == "" {
		cfg.BackupName = defaultBackupName
	}
	if cfg.FS == nil {
		cfg.FS = afero.NewOsFs()
	}

	err := cfg.validate()
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &BackupProviderS3{
		c:      client,
		config: cfg,
		log:    log,
		fs:     cfg.FS,
	}, nil
}

// EnsureBackupBucket ensures the versioned dump archive bucket including its lifecycle rules
func (b *BackupProviderS3) EnsureBackupBucket(ctx context.Context) error {
	bucket := aws.String(b.config.BucketName)

	_, err := b.c.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var (
			alreadyExists     *types.BucketAlreadyExists
			alreadyOwnedByYou *types.BucketAlreadyOwnedByYou
		)
		if !errors.As(err, &alreadyExists) && !errors.As(err, &alreadyOwnedByYou) {
			return fmt.Errorf("unable to create bucket: %w", err)
		}
	}

	_, err = b.c.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: bucket,
		VersioningConfiguration: &types.VersioningConfiguration{
			Status: types.BucketVersioningStatusEnabled,
		},
	})
	if err != nil {
		return fmt.Errorf("unable to enable bucket versioning: %w", err)
	}

	_, err = b.c.PutBucketLifecycleConfiguration(ctx, &s3.PutBucketLifecycleConfigurationInput{
		Bucket: bucket,
		LifecycleConfiguration: &types.BucketLifecycleConfiguration{
			Rules: []types.LifecycleRule{
				{
					ID:     aws.String("gepgdb-lifecycle"),
					Status: types.ExpirationStatusEnabled,
					NoncurrentVersionExpiration: &types.NoncurrentVersionExpiration{
						NoncurrentDays: aws.Int32(int32(b.config.ObjectsToKeep)),
					},
					Filter: &types.LifecycleRuleFilter{
						Prefix: aws.String(b.config.ObjectPrefix),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("unable to configure bucket lifecycle: %w", err)
	}

	return nil
}

// CleanupBackups cleans up dump archives, nothing to do here because it is done with lifecycle rules
func (b *BackupProviderS3) CleanupBackups(_ context.Context) error {
	return nil
}

// DownloadBackup downloads the given dump archive version to the specified folder
func (b *BackupProviderS3) DownloadBackup(ctx context.Context, version *providers.BackupVersion, outDir string) (string, error) {
	downloadFileName := version.Name
	if strings.Contains(downloadFileName, "/") {
		downloadFileName = filepath.Base(downloadFileName)
	}

	backupFilePath := filepath.Join(outDir, downloadFileName)

	f, err := b.fs.Create(backupFilePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	downloader := manager.NewDownloader(b.c, func(d *manager.Downloader) {
		// the sequential writer cannot seek, so the parts have to arrive in order
		d.Concurrency = 1
	})

	_, err = downloader.Download(ctx, utils.NewSequentialWriterAt(f), &s3.GetObjectInput{
		Bucket:    aws.String(b.config.BucketName),
		Key:       aws.String(version.Name),
		VersionId: aws.String(version.Version),
	})
	if err != nil {
		return "", err
	}

	return backupFilePath, nil
}

// UploadBackup uploads a dump archive to the bucket
func (b *BackupProviderS3) UploadBackup(ctx context.Context, sourcePath string) error {
	r, err := b.fs.Open(sourcePath)
	if err != nil {
		return err
	}
	defer r.Close()

	destination := filepath.Base(sourcePath)
	if b.config.ObjectPrefix != "" {
		destination = b.config.ObjectPrefix + "/" + destination
	}

	b.log.Debugw("uploading object", "src", sourcePath, "dest", destination)

	uploader := manager.NewUploader(b.c)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.config.BucketName),
		Key:    aws.String(destination),
		Body:   r,
	})
	if err != nil {
		return err
	}

	return nil
}

// GetNextBackupName returns a name for the next dump archive that is going to be uploaded
func (b *BackupProviderS3) GetNextBackupName(_ context.Context) string {
	// name is constant because we use a lifecycle rule to cleanup
	return b.config.BackupName
}

// ListBackups lists the available dump archives in the bucket
func (b *BackupProviderS3) ListBackups(ctx context.Context) (providers.BackupVersions, error) {
	it, err := b.c.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
		Bucket: aws.String(b.config.BucketName),
		Prefix: aws.String(b.config.ObjectPrefix),
	})
	if err != nil {
		return nil, err
	}

	return backupVersionsS3{
		objectAttrs: it.Versions,
	}, nil
}
