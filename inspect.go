package main

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// inspectApps runs inspect on every path, at most concurrency at a time.
// Results keep the order of apkPaths.
func inspectApps(ctx context.Context, apkPaths []string, concurrency int, inspect func(string) (apkInfo, error)) ([]apkInfo, error) {
	infos := make([]apkInfo, len(apkPaths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, pth := range apkPaths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			info, err := inspect(pth)
			if err != nil {
				return fmt.Errorf("%s: %w", pth, err)
			}
			infos[i] = info
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return infos, nil
}
