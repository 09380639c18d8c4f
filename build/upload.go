package build

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/dc3/cubebuilder/errs"
	"github.com/dc3/cubebuilder/storage"
)

// uploadDir copies every regular file under localDir to the output bucket
// at bucketURL (a gocloud "provider://bucket" URL, per
// storage.OpenOutputBucket), preserving relative paths as blob keys.
func uploadDir(ctx context.Context, bucketURL, localDir string) error {
	bucket, err := storage.OpenOutputBucket(ctx, bucketURL)
	if err != nil {
		return errs.UploadErrorf(bucketURL, "opening output bucket: %v", err)
	}
	defer bucket.Close()

	return filepath.Walk(localDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil || info.IsDir() {
			return walkErr
		}
		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		w, err := bucket.NewWriter(ctx, filepath.ToSlash(rel), nil)
		if err != nil {
			return errs.UploadErrorf(path, "opening bucket writer: %v", err)
		}
		f, err := os.Open(path)
		if err != nil {
			w.Close()
			return errs.UploadErrorf(path, "opening local file: %v", err)
		}
		_, copyErr := io.Copy(w, f)
		f.Close()
		if copyErr != nil {
			w.Close()
			return errs.UploadErrorf(path, "copying to bucket: %v", copyErr)
		}
		return w.Close()
	})
}
