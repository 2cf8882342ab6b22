package query

import (
	"sort"

	"querylite/pkg/types"
)

// Status builds a registry snapshot for /status, ordered by key.
func (c *Client) Status() types.StatusResponse {
	c.mu.RLock()
	qs := make([]*Query, 0, len(c.queries))
	for _, q := range c.queries {
		qs = append(qs, q)
	}
	c.mu.RUnlock()

	resp := types.StatusResponse{
		Queries:        make([]types.QueryStatus, 0, len(qs)),
		Count:          len(qs),
		ServerTimeUnix: c.clock.Now().Unix(),
	}
	for _, q := range qs {
		q.mu.Lock()
		st := q.state
		qsStatus := types.QueryStatus{
			Key:         q.hash,
			Status:      string(st.Status),
			IsFetching:  st.IsFetching,
			Subscribers: len(q.subscribers),
			GCPending:   q.gcTimer != nil || q.gcDue,
			CacheTimeMS: q.cacheTime.Milliseconds(),
		}
		q.mu.Unlock()
		if st.HasData() {
			qsStatus.LastUpdated = st.LastUpdated.Unix()
		}
		if st.Err != nil {
			qsStatus.Error = st.Err.Error()
		}
		if qsStatus.IsFetching {
			resp.FetchingCount++
		}
		if qsStatus.GCPending {
			resp.GCPendingCount++
		}
		resp.Queries = append(resp.Queries, qsStatus)
	}
	sort.Slice(resp.Queries, func(i, j int) bool { return resp.Queries[i].Key < resp.Queries[j].Key })
	return resp
}

// Result converts a State to its JSON view.
func Result(s State) types.QueryResult {
	r := types.QueryResult{
		Status:     string(s.Status),
		IsFetching: s.IsFetching,
		Data:       s.Data,
	}
	if s.Err != nil {
		r.Error = s.Err.Error()
	}
	if s.HasData() {
		r.LastUpdated = s.LastUpdated.Unix()
	}
	return r
}
