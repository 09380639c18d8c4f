// Package storage implements the input storage contract: a
// scheme-pluggable opener for archive URIs, modeled on a cloud.OpenBucket
// helper (gocloud.dev/blob with file/gs/s3 providers), plus path-safety
// rules for input URIs.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"

	"github.com/dc3/cubebuilder/errs"
)

// Storage is the input-side collaborator: open(uri) returning a streaming
// byte reader, resolving relative paths against a configured root.
type Storage struct {
	// Root is the directory relative input paths are resolved against.
	Root string
}

// New creates a Storage rooted at root (a local filesystem directory).
func New(root string) *Storage { return &Storage{Root: root} }

// Open returns a streaming reader for uri, after validating it per the
// input storage contract: paths containing "/../" are rejected, as are
// file-scheme and rooted-absolute paths (the file:// scheme is for the
// OUTPUT collaborator only; inputs are either bare relative paths resolved
// under Root, or a gs:// or s3:// remote URI).
func (s *Storage) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if err := validateInputURI(uri); err != nil {
		return nil, err
	}
	if !hasScheme(uri) {
		full := path.Join(s.Root, uri)
		f, err := os.Open(full)
		if err != nil {
			return nil, errs.DownloadErrorf(uri, "opening local input: %v", err)
		}
		return f, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, errs.BadRequestf(uri, "parsing input URI: %v", err)
	}
	bucketName := fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	bucket, err := openBucket(ctx, bucketName)
	if err != nil {
		return nil, errs.DownloadErrorf(uri, "opening bucket: %v", err)
	}
	r, err := bucket.NewReader(ctx, strings.TrimPrefix(u.Path, "/"), nil)
	if err != nil {
		return nil, errs.DownloadErrorf(uri, "reading blob: %v", err)
	}
	return r, nil
}

func hasScheme(uri string) bool {
	i := strings.Index(uri, "://")
	return i > 0
}

func validateInputURI(uri string) error {
	if strings.Contains(uri, "/../") || strings.HasPrefix(uri, "../") {
		return errs.BadRequestf(uri, "input path must not escape its root via /../")
	}
	if strings.HasPrefix(uri, "file://") {
		return errs.BadRequestf(uri, "file:// scheme is not accepted for input, use a bare relative path")
	}
	if strings.HasPrefix(uri, "/") {
		return errs.BadRequestf(uri, "rooted absolute paths are not accepted for input")
	}
	return nil
}

// openBucket mirrors a cloud.OpenBucket helper: bucketName is
// "provider://name", with "file", "gs", and "s3" providers supported.
func openBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("storage.openBucket: %v", err)
	}
	switch u.Scheme {
	case "file":
		return fileblob.OpenBucket(u.Hostname(), nil)
	case "gs":
		return gsBucket(ctx, u.Hostname())
	case "s3":
		return s3Bucket(ctx, u.Hostname())
	default:
		return nil, fmt.Errorf("storage.openBucket: unsupported provider %q", u.Scheme)
	}
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, c, name, nil)
}

func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.ExpandEnv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	cfg := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	sess := session.Must(session.NewSession(cfg))
	return s3blob.OpenBucket(ctx, sess, name, nil)
}

// OpenOutputBucket opens the output collaborator's bucket. Unlike input,
// output URIs are expected to carry a provider scheme (file/gs/s3).
func OpenOutputBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	return openBucket(ctx, bucketName)
}
