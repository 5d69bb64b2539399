// SPDX-License-Identifier: EPL-2.0

package asset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Ref names an audio asset as stored in a project snapshot.
type Ref struct {
	Name string
	Hash uint64
}

// Resolver turns a reference into a decoded asset. Implementations verify
// the content hash.
type Resolver interface {
	Resolve(ctx context.Context, ref Ref) (*Audio, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, ref Ref) (*Audio, error)

func (f ResolverFunc) Resolve(ctx context.Context, ref Ref) (*Audio, error) { return f(ctx, ref) }

// DirResolver looks assets up by name in a list of directories, first
// match wins.
type DirResolver struct {
	Dirs   []string
	Loader *Loader
}

// Resolve reads ref.Name from the first directory holding it, checks its
// hash and decodes it.
func (d *DirResolver) Resolve(ctx context.Context, ref Ref) (*Audio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var lastErr error = os.ErrNotExist
	for _, dir := range d.Dirs {
		content, err := os.ReadFile(filepath.Join(dir, ref.Name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			lastErr = err
			continue
		}
		if got := Hash(content); got != ref.Hash {
			return nil, &LoadError{
				Name: ref.Name,
				Err:  fmt.Errorf("%w: have %016x, want %016x", ErrHashMismatch, got, ref.Hash),
			}
		}
		return d.Loader.Decode(ref.Name, content)
	}

	return nil, &LoadError{Name: ref.Name, Err: lastErr}
}

// ResolveAll resolves refs concurrently. Every ref yields an asset: one
// that fails keeps its name and hash with no data, and its error is
// joined into the result. Only cancellation of ctx aborts the batch.
func ResolveAll(ctx context.Context, r Resolver, refs []Ref, concurrency int) ([]*Audio, error) {
	out := make([]*Audio, len(refs))
	errs := make([]error, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, ref := range refs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, err := r.Resolve(gctx, ref)
			if err != nil {
				var le *LoadError
				if !errors.As(err, &le) {
					err = &LoadError{Name: ref.Name, Err: err}
				}
				errs[i] = err
				a = &Audio{Name: ref.Name, Hash: ref.Hash}
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return out, errors.Join(errs...)
}
