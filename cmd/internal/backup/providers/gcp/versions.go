package gcp

import (
	"strconv"

	"cloud.google.com/go/storage"
	"github.com/opengee/gepgdb/cmd/internal/backup/providers"
	"github.com/opengee/gepgdb/cmd/internal/backup/providers/common"
)

type backupVersionsGCP struct {
	objectAttrs []*storage.ObjectAttrs
}

func (b backupVersionsGCP) Latest() *providers.BackupVersion {
	result := b.List()
	if len(result) == 0 {
		return nil
	}
	return result[0]
}

func (b backupVersionsGCP) List() []*providers.BackupVersion {
	var result []*providers.BackupVersion

	seen := make(map[int64]bool)
	for _, attr := range b.objectAttrs {
		if seen[attr.Generation] {
			continue
		}
		seen[attr.Generation] = true

		result = append(result, &providers.BackupVersion{
			Name:    attr.Name,
			Version: strconv.FormatInt(attr.Generation, 10),
			Date:    attr.Updated,
		})
	}

	common.Sort(result)

	return result
}

func (b backupVersionsGCP) Get(version string) (*providers.BackupVersion, error) {
	return common.Get(b.List(), version)
}
