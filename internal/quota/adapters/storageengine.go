package adapters

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	pquota "github.com/jittakal/quotaenforcer/pkg/quota"
)

// FileStorageEngine reports on-disk byte size per partition by walking a
// per-partition subdirectory of a base path, the way the teacher's
// storage.FileWriter lays out files under FileConfig.BasePath.
type FileStorageEngine struct {
	basePath string
}

// NewFileStorageEngine builds a storage engine rooted at basePath. The
// engine expects one subdirectory per partition, named by its decimal
// partition id (e.g. basePath/3/ for partition 3).
func NewFileStorageEngine(basePath string) *FileStorageEngine {
	return &FileStorageEngine{basePath: basePath}
}

// PartitionSizeBytes sums the size of every regular file under the
// partition's subdirectory. A partition with no directory yet reports
// zero rather than an error, since a freshly-subscribed partition has
// nothing on disk.
func (e *FileStorageEngine) PartitionSizeBytes(partition pquota.PartitionID) (int64, error) {
	dir := filepath.Join(e.basePath, fmt.Sprintf("%d", partition))

	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("adapters: walking partition directory %s: %w", dir, err)
	}

	return total, nil
}

var _ pquota.StorageEngine = (*FileStorageEngine)(nil)
