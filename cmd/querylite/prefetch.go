package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"querylite/internal/posts"
	"querylite/internal/query"
	"querylite/pkg/types"
)

func newPrefetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prefetch [ids...]",
		Short: "Warm the cache concurrently and print the registry",
		Long: "Loads the given posts concurrently. Without ids the post list is " +
			"loaded first and every listed post is prefetched.",
		Example: "  querylite prefetch 1 2 3",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int, 0, len(args))
			for _, arg := range args {
				id, err := strconv.Atoi(arg)
				if err != nil || id <= 0 {
					return fmt.Errorf("%w: %q", posts.ErrInvalidID, arg)
				}
				ids = append(ids, id)
			}
			return a.prefetch(cmd.Context(), cmd.OutOrStdout(), ids)
		},
	}
}

func (a *app) prefetch(ctx context.Context, w io.Writer, ids []int) error {
	svc, err := a.newService()
	if err != nil {
		return err
	}
	defer svc.Client().Close()

	if len(ids) == 0 {
		st, err := svc.Posts(ctx)
		if err != nil {
			return err
		}
		if st.Err != nil && !st.HasData() {
			return fmt.Errorf("load posts: %w", st.Err)
		}
		list, _ := st.Data.([]types.Post)
		for _, p := range list {
			ids = append(ids, p.ID)
		}
	}

	var (
		mu       sync.Mutex
		failures int
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, id := range ids {
		g.Go(func() error {
			st, err := svc.Post(gCtx, id)
			if err != nil {
				return err
			}
			if st.Status == query.StatusError {
				a.log.Warn().Int("id", id).Err(st.Err).Msg("prefetch failed")
				mu.Lock()
				failures++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	printStatus(w, svc.Status())
	if failures > 0 {
		return fmt.Errorf("%d of %d posts failed to load", failures, len(ids))
	}
	return nil
}

func printStatus(w io.Writer, st types.StatusResponse) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSTATUS\tFETCHING\tSUBSCRIBERS\tGC PENDING\tUPDATED")
	for _, q := range st.Queries {
		updated := "-"
		if q.LastUpdated > 0 {
			updated = time.Unix(q.LastUpdated, 0).Format(time.TimeOnly)
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%t\t%s\n", q.Key, q.Status, q.IsFetching, q.Subscribers, q.GCPending, updated)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d queries, %d fetching, %d awaiting gc\n", st.Count, st.FetchingCount, st.GCPendingCount)
}
