package engine

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/franksops/cloudsync/provider"
	"github.com/franksops/cloudsync/transfer"
)

// Enumerator expands a source locator into TransferJobs, one per object
// under it, pushed onto a channel as they are discovered. The walk is
// iterative (stack-based) so arbitrarily deep prefixes cannot overflow the
// goroutine stack.
type Enumerator struct {
	resolver provider.Resolver
	out      JobChannel
}

// NewEnumerator creates an enumerator emitting onto out.
func NewEnumerator(resolver provider.Resolver, out JobChannel) *Enumerator {
	return &Enumerator{resolver: resolver, out: out}
}

// Enumerate walks sourceLocator and emits one job per object, mapping each
// object's relative path under destLocator. Jobs get fresh UUIDs and carry
// the listed object size as their size hint.
func (e *Enumerator) Enumerate(ctx context.Context, sourceLocator, destLocator string) error {
	src, rootPath, err := e.resolver.Resolve(ctx, sourceLocator)
	if err != nil {
		return fmt.Errorf("failed to resolve source %q: %w", sourceLocator, err)
	}

	stat, err := src.Stat(ctx, rootPath)
	if err != nil {
		return fmt.Errorf("failed to stat source %s: %w", sourceLocator, err)
	}

	// A single object becomes a single job.
	if !stat.IsDir() {
		return e.emit(ctx, transfer.Job{
			ID:          uuid.NewString(),
			Source:      sourceLocator,
			Destination: destLocator,
			SizeHint:    stat.Size(),
		})
	}

	// Relative paths keep source and destination locators in step.
	type walkItem struct {
		relPath string
	}
	stack := []walkItem{{relPath: ""}}

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		listPath := rootPath
		if curr.relPath != "" {
			listPath = path.Join(rootPath, curr.relPath)
		}

		entries, err := src.List(ctx, listPath)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", joinLocator(sourceLocator, curr.relPath), err)
		}

		for _, entry := range entries {
			rel := entry.Name()
			if curr.relPath != "" {
				rel = path.Join(curr.relPath, entry.Name())
			}

			if entry.IsDir() {
				stack = append(stack, walkItem{relPath: rel})
				continue
			}

			job := transfer.Job{
				ID:          uuid.NewString(),
				Source:      joinLocator(sourceLocator, rel),
				Destination: joinLocator(destLocator, rel),
				SizeHint:    entry.Size(),
			}
			if err := e.emit(ctx, job); err != nil {
				return err
			}
		}
	}

	return nil
}

func (e *Enumerator) emit(ctx context.Context, job transfer.Job) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case e.out <- job:
		return nil
	}
}

func joinLocator(root, rel string) string {
	if rel == "" {
		return root
	}
	return strings.TrimSuffix(root, "/") + "/" + rel
}
