package validate

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Permission is a capability the caller wants confirmed on a locator.
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
)

// DefaultProbeTimeout bounds each individual capability probe.
const DefaultProbeTimeout = 15 * time.Second

// Prober performs one out-of-process capability check against a bucket.
// Implementations must treat their own faults as ordinary errors.
type Prober interface {
	Probe(ctx context.Context, bucket, key string, perm Permission) error
}

// PermissionResult reports the outcome of permission validation. A probe
// failure of any kind, timeouts included, shows up as PermissionValid=false
// and never as a fault: the caller decides whether to abort or skip.
type PermissionResult struct {
	Locator         string
	PermissionValid bool
	Checked         []Permission
	Failures        []string
	Message         string
}

// ValidateWithPermissions runs basic validation and then probes each
// requested permission through the prober.
func ValidateWithPermissions(ctx context.Context, raw string, perms []Permission, prober Prober) (res PermissionResult) {
	res = PermissionResult{Locator: raw, Checked: perms}

	defer func() {
		// A misbehaving prober must not take the sync call down with it.
		if r := recover(); r != nil {
			res.PermissionValid = false
			res.Failures = append(res.Failures, fmt.Sprintf("permission probe fault: %v", r))
			res.Message = strings.Join(res.Failures, "; ")
		}
	}()

	if base := Validate(raw); !base.IsValid {
		res.Failures = base.Errors
		res.Message = base.Message
		return res
	}

	bucket, key := SplitLocator(raw)
	for _, perm := range perms {
		if err := prober.Probe(ctx, bucket, key, perm); err != nil {
			res.Failures = append(res.Failures,
				fmt.Sprintf("the %s capability probe on bucket %q failed: %v", perm, bucket, err))
		}
	}

	if len(res.Failures) > 0 {
		res.Message = strings.Join(res.Failures, "; ")
		return res
	}
	res.PermissionValid = true
	res.Message = fmt.Sprintf("all requested capabilities confirmed on %q", raw)
	return res
}

// S3Prober checks capabilities against live S3 buckets. Read is probed with
// a single-key listing; write is probed by putting and deleting a uniquely
// named zero-byte marker object next to the target key.
type S3Prober struct {
	client  *s3.Client
	timeout time.Duration
}

// NewS3Prober builds a prober from the default AWS config chain.
func NewS3Prober(ctx context.Context) (*S3Prober, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return &S3Prober{
		client:  s3.NewFromConfig(cfg),
		timeout: DefaultProbeTimeout,
	}, nil
}

// NewS3ProberWithClient wraps an existing SDK client, mainly for tests.
func NewS3ProberWithClient(client *s3.Client, timeout time.Duration) *S3Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &S3Prober{client: client, timeout: timeout}
}

func (p *S3Prober) Probe(ctx context.Context, bucket, key string, perm Permission) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	switch perm {
	case PermissionRead:
		_, err := p.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(bucket),
			Prefix:  aws.String(key),
			MaxKeys: aws.Int32(1),
		})
		return err

	case PermissionWrite:
		probeKey := path.Join(path.Dir(key), ".cloudsync-probe-"+uuid.NewString())
		_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(probeKey),
			Body:   strings.NewReader(""),
		})
		if err != nil {
			return err
		}
		// Best effort: a leftover marker is harmless but untidy.
		_, _ = p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(probeKey),
		})
		return nil

	default:
		return fmt.Errorf("unknown permission %q", perm)
	}
}
