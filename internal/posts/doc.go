// Package posts binds a jsonplaceholder-style posts API to the query cache.
//
// Client talks to the upstream HTTP API. Register installs the "posts" and
// "post" scope loaders on a query.Client, and Service exposes read-through
// reads, refetches and a status report for the HTTP layer and the CLI.
package posts
