// Package validate classifies object-storage locators before any transfer
// is attempted. Basic validation is pure and performs no I/O; permission
// validation probes the storage service and is always recoverable.
package validate

import (
	"fmt"
	"net/url"
	"strings"
)

// Scheme is the only locator scheme the transfer core accepts.
const Scheme = "s3"

// Result is the outcome of basic locator validation.
type Result struct {
	IsValid bool
	Errors  []string
	Message string
}

// ValidationError aborts a sync before any transfer starts. The caller can
// correct the offending locator and retry the whole call.
type ValidationError struct {
	Locator  string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("locator %q rejected: %s", e.Locator, strings.Join(e.Problems, "; "))
}

// Validate checks that raw is a well-formed object-storage locator of the
// form s3://bucket/key with a non-empty bucket and a real object key.
// It is pure and idempotent: no I/O, no hidden state.
func Validate(raw string) Result {
	var problems []string

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		problems = append(problems, "the locator is empty; expected a locator like s3://bucket/path/to/object")
		return invalid(problems)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		problems = append(problems, fmt.Sprintf("the locator %q could not be parsed as a URL: %v", raw, err))
		return invalid(problems)
	}

	if u.Scheme != Scheme {
		problems = append(problems, fmt.Sprintf(
			"the locator %q uses the unsupported scheme %q; only %s:// object-storage locators are accepted", raw, u.Scheme, Scheme))
	}
	if u.Host == "" {
		problems = append(problems, fmt.Sprintf(
			"the locator %q names no bucket; the bucket between the scheme and the first slash must not be empty", raw))
	}
	if key := strings.Trim(u.Path, "/"); key == "" {
		problems = append(problems, fmt.Sprintf(
			"the locator %q carries no object key after the bucket; a path to an object or prefix is required", raw))
	}

	if len(problems) > 0 {
		return invalid(problems)
	}
	return Result{
		IsValid: true,
		Message: fmt.Sprintf("locator %q is a valid object-storage locator", raw),
	}
}

func invalid(problems []string) Result {
	return Result{
		IsValid: false,
		Errors:  problems,
		Message: strings.Join(problems, "; "),
	}
}

// SplitLocator separates a valid locator into bucket and key. It assumes
// the locator already passed Validate.
func SplitLocator(raw string) (bucket, key string) {
	rest := strings.TrimPrefix(strings.TrimSpace(raw), Scheme+"://")
	bucket, key, _ = strings.Cut(rest, "/")
	return bucket, key
}
