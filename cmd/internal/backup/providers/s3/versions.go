package s3

import (
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/opengee/gepgdb/cmd/internal/backup/providers"
	"github.com/opengee/gepgdb/cmd/internal/backup/providers/common"
)

// backupVersionsS3 contains the list of available dump archive versions
type backupVersionsS3 struct {
	objectAttrs []types.ObjectVersion
}

// Latest returns the most recent dump archive version
func (b backupVersionsS3) Latest() *providers.BackupVersion {
	return common.Latest(b.List())
}

// List returns a list of all dump archive versions
func (b backupVersionsS3) List() []*providers.BackupVersion {
	var result []*providers.BackupVersion

	for _, attr := range b.objectAttrs {
		result = append(result, &providers.BackupVersion{
			Name:    *attr.Key,
			Version: *attr.VersionId,
			Date:    *attr.LastModified,
		})
	}

	common.Sort(result)

	return result
}

// Get returns the dump archive of the given version
func (b backupVersionsS3) Get(version string) (*providers.BackupVersion, error) {
	return common.Get(b.List(), version)
}
