package query

// scheduleGCLocked arms the removal timer, replacing any pending one.
func (q *Query) scheduleGCLocked() {
	q.unscheduleGCLocked()
	if q.client.closed.Load() {
		return
	}
	seq := q.gcSeq
	q.gcTimer = q.clock.AfterFunc(q.cacheTime, func() { q.client.collect(q, seq) })
}

// unscheduleGCLocked cancels a pending timer. Bumping gcSeq also invalidates
// a callback that is already running, so cancellation always wins.
func (q *Query) unscheduleGCLocked() {
	q.gcSeq++
	if q.gcTimer != nil {
		q.gcTimer.Stop()
		q.gcTimer = nil
	}
}

// GCPending reports whether a removal timer is armed.
func (q *Query) GCPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.gcTimer != nil || q.gcDue
}

// collect removes q if the timer identified by seq is still current and no
// subscriber arrived in the meantime. A query with a fetch in flight is kept
// until the fetch completes.
func (c *Client) collect(q *Query, seq uint64) {
	c.mu.Lock()
	q.mu.Lock()
	if q.gcSeq != seq || q.removed || len(q.subscribers) > 0 || c.closed.Load() {
		q.mu.Unlock()
		c.mu.Unlock()
		return
	}
	q.gcTimer = nil
	if q.inflight != nil {
		q.gcDue = true
		q.mu.Unlock()
		c.mu.Unlock()
		return
	}
	q.removed = true
	q.mu.Unlock()
	c.removeLocked(q)
	c.mu.Unlock()

	gcRemovedTotal.WithLabelValues(scopeLabel(q.scope)).Inc()
	c.log.Debug().Str("key", q.hash).Msg("query collected")
	c.publish(Event{Name: EventGCRemoved, Key: q.hash, Fields: map[string]any{}})
}
