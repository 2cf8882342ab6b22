package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"querylite/internal/posts"
	"querylite/internal/query"
)

func newGetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Load a query and print every state it passes through",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("get requires a subcommand: posts|post <id>")
		},
	}
	getPosts := &cobra.Command{
		Use:   "posts",
		Short: "Load the post list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.get(cmd.Context(), cmd.OutOrStdout(), posts.PostsKey())
		},
	}
	getPost := &cobra.Command{
		Use:     "post <id>",
		Short:   "Load a single post",
		Example: "  querylite get post 1",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("%w: %q", posts.ErrInvalidID, args[0])
			}
			return a.get(cmd.Context(), cmd.OutOrStdout(), posts.PostKey(id))
		},
	}
	cmd.AddCommand(getPosts, getPost)
	return cmd
}

// get attaches to key and prints each notified state until the query is
// idle, then prints the data.
func (a *app) get(ctx context.Context, w io.Writer, key query.Key) error {
	svc, err := a.newService()
	if err != nil {
		return err
	}
	client := svc.Client()
	defer client.Close()

	updates := make(chan query.State, 16)
	_, detach, err := client.Attach(key, nil, a.queryOptions(), func(st query.State) {
		updates <- st
	})
	if err != nil {
		return err
	}
	defer detach()

	st, err := printUntilIdle(ctx, w, updates)
	if err != nil {
		return err
	}
	if st.Status == query.StatusError {
		return st.Err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(st.Data)
}

// printUntilIdle prints notified states until one is idle. The query is new,
// so attaching always fetches and the settled state is always notified, even
// when the loader finished before Attach returned.
func printUntilIdle(ctx context.Context, w io.Writer, updates <-chan query.State) (query.State, error) {
	for {
		select {
		case st := <-updates:
			printState(w, st)
			if idle(st) {
				return st, nil
			}
		case <-ctx.Done():
			return query.State{}, ctx.Err()
		}
	}
}

func idle(st query.State) bool {
	return !st.IsFetching && st.Status != query.StatusLoading
}

func printState(w io.Writer, st query.State) {
	line := fmt.Sprintf("status=%s fetching=%t", st.Status, st.IsFetching)
	if st.Err != nil {
		line += " error=" + strconv.Quote(st.Err.Error())
	}
	fmt.Fprintln(w, line)
}
