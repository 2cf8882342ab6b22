package posts

import (
	"context"

	"querylite/internal/query"
)

// Register installs the posts and post loaders on c.
func Register(c *query.Client, f Fetcher) {
	c.RegisterLoader(ScopePosts, PostsLoader(f))
	c.RegisterLoader(ScopePost, PostLoader(f))
}

// PostsLoader loads the post list.
func PostsLoader(f Fetcher) query.Loader {
	return func(ctx context.Context, _ query.Key) (any, error) {
		return f.FetchPosts(ctx)
	}
}

// PostLoader loads the post whose id is the second key element.
func PostLoader(f Fetcher) query.Loader {
	return func(ctx context.Context, key query.Key) (any, error) {
		id, err := postID(key)
		if err != nil {
			return nil, err
		}
		return f.FetchPost(ctx, id)
	}
}
