package subscan

import (
	"context"
	"encoding/json"

	"github.com/azero-feed/internal/models"
)

type extrinsicDetailRequest struct {
	ExtrinsicIndex     string `json:"extrinsic_index"`
	OnlyExtrinsicEvent bool   `json:"only_extrinsic_event"`
}

type extrinsicDetail struct {
	Event []json.RawMessage `json:"event"`
}

// eventRow carries params as a stringified JSON array.
type eventRow struct {
	ModuleID   string `json:"module_id"`
	EventIndex string `json:"event_index"`
	Params     string `json:"params"`
}

type eventParam struct {
	TypeName string `json:"type_name"`
	Value    string `json:"value"`
	Name     string `json:"name"`
}

func mapEventParams(params []eventParam) []models.EventParam {
	out := make([]models.EventParam, 0, len(params))
	for _, p := range params {
		out = append(out, models.EventParam{TypeName: p.TypeName, Value: p.Value, Name: p.Name})
	}
	return out
}

// ParseExtrinsicDetails fetches the event log of one extrinsic. Events whose
// params fail to decode are dropped.
func (c *Client) ParseExtrinsicDetails(ctx context.Context, extrinsicIndex string) ([]models.Event, error) {
	payload := extrinsicDetailRequest{
		ExtrinsicIndex:     extrinsicIndex,
		OnlyExtrinsicEvent: true,
	}

	var detail extrinsicDetail
	if err := c.postScan(ctx, "/api/scan/extrinsic", payload, &detail); err != nil {
		return nil, err
	}

	events := make([]models.Event, 0, len(detail.Event))
	for _, raw := range detail.Event {
		var row eventRow
		if err := json.Unmarshal(raw, &row); err != nil {
			c.log.WithError(err).Debug("skipping malformed event row")
			continue
		}
		var params []eventParam
		if err := json.Unmarshal([]byte(row.Params), &params); err != nil {
			c.log.WithError(err).WithField("event_index", row.EventIndex).Debug("skipping event")
			continue
		}
		events = append(events, models.Event{
			ModuleID:   row.ModuleID,
			EventIndex: row.EventIndex,
			Params:     mapEventParams(params),
		})
	}
	return events, nil
}
