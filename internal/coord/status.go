package coord

import (
	"sort"
	"time"

	"inferd/pkg/types"
)

// Status builds the operational report for GET /status.
func (c *Coordinator) Status() types.StatusResponse {
	resp := types.StatusResponse{
		Models:         make([]types.ModelStatus, 0, len(c.models)),
		UptimeSeconds:  int64(time.Since(c.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
	for _, rt := range c.models {
		queued, running, completed, failed := rt.store.counts()
		resp.Models = append(resp.Models, types.ModelStatus{
			Model:     rt.id,
			Phase:     rt.ready.Phase(),
			Capacity:  rt.gate.capacity(),
			Inflight:  rt.gate.inflight(),
			Queued:    queued,
			Running:   running,
			Completed: completed,
			Failed:    failed,
			LastError: rt.ready.LastError(),
		})
	}
	sort.Slice(resp.Models, func(i, j int) bool { return resp.Models[i].Model < resp.Models[j].Model })
	return resp
}
