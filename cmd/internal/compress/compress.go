package compress

import (
	"fmt"
	"path/filepath"

	"github.com/mholt/archiver/v3"
)

// BackupCompressor is responsible to compress and decompress dump archives
type BackupCompressor struct {
	method string
}

// New returns a new compressor with the given method (tar|targz|tarlz4)
func New(method string) (*BackupCompressor, error) {
	switch method {
	case "tar", "targz", "tarlz4":
		return &BackupCompressor{method: method}, nil
	default:
		return nil, fmt.Errorf("unsupported compression method: %s", method)
	}
}

// Compress archives the given directory and returns the full path of the created archive
func (c *BackupCompressor) Compress(sourceDir string, archivePathWithoutExtension string) (string, error) {
	filename := archivePathWithoutExtension + c.Extension()

	switch c.method {
	case "tar":
		return filename, archiver.NewTar().Archive([]string{sourceDir}, filename)
	case "targz":
		return filename, archiver.NewTarGz().Archive([]string{sourceDir}, filename)
	case "tarlz4":
		return filename, archiver.NewTarLz4().Archive([]string{sourceDir}, filename)
	default:
		return "", fmt.Errorf("unsupported compression method: %s", c.method)
	}
}

// Decompress unarchives the given archive into the parent of destDir.
// The archive has to carry the base name of destDir as its top level directory.
func (c *BackupCompressor) Decompress(archivePath string, destDir string) error {
	return archiver.Unarchive(archivePath, filepath.Dir(destDir))
}

// Extension returns the file extension of the configured method
func (c *BackupCompressor) Extension() string {
	switch c.method {
	case "tar":
		return ".tar"
	case "tarlz4":
		return ".tar.lz4"
	default:
		return ".tar.gz"
	}
}
