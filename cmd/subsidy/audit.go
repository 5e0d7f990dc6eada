package main

import (
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/efarmer/subsidy/cmd/subsidy/container"
	"github.com/efarmer/subsidy/common/queue"
)

// auditFields lists the payload paths surfaced in the audit record per topic
var auditFields = map[string][]string{
	queue.TopicCaseFlagged:      {"caseId", "reasonCode", "dealerId", "reason"},
	queue.TopicImageSuspicious:  {"reasons.#", "reasons.0"},
	queue.TopicFarmerRegistered: {"district", "cropType"},
}

// startAuditLog subscribes to every decision topic, writes each event to the
// log as an audit record and forwards it to the live feed
func startAuditLog(ctx context.Context, c *container.Container) error {
	if c.Events == nil {
		return nil
	}

	log := c.Components.Logger.WithFields(map[string]any{"component": "audit"})
	tel := c.Components.Telemetry

	for _, topic := range queue.AllTopics {
		paths := auditFields[topic]
		err := c.Events.Subscribe(ctx, topic, func(_ context.Context, evt queue.Event) error {
			args := []any{"type", evt.Type, "efn", evt.FarmerID, "occurred_at", evt.OccurredAt}
			summary := map[string]any{"efn": evt.FarmerID}
			for i, r := range gjson.GetManyBytes(evt.Payload, paths...) {
				if !r.Exists() {
					continue
				}
				args = append(args, paths[i], r.Value())
				summary[paths[i]] = r.Value()
			}
			log.Info("decision event", args...)

			if tel != nil {
				tel.RecordEvent(evt.Type, summary)
			}
			if c.Feed != nil {
				if data, err := json.Marshal(evt); err == nil {
					c.Feed.Broadcast(evt.FarmerID, data)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
