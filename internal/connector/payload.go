package connector

import (
	"encoding/json"
	"fmt"

	"github.com/amsen20/leovnf/internal/model"
)

type resourcePayload struct {
	Hostname string `json:"hostname"`
	Warning  string `json:"warning"`
	Error    string `json:"error"`
	Resource *struct {
		Total   *model.ResourceVector `json:"total"`
		UsedNow *model.ResourceVector `json:"used_now"`
		UsedMax *model.ResourceVector `json:"used_max"`
	} `json:"resource"`
}

// ParseResourcePayload decodes the JSON answer of a resource query:
//
//	{"hostname": "...", "resource": {"total": {...}, "used_now": {...}, "used_max": {...}}}
//	{"hostname": "...", "error": "..."}
//
// An error field or a malformed payload is a query failure, never a node with
// zero resources.
func ParseResourcePayload(data []byte) (model.ResourceSnapshot, error) {
	var payload resourcePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return model.ResourceSnapshot{}, fmt.Errorf("%w: malformed payload: %v", ErrUnknown, err)
	}

	if payload.Error != "" {
		return model.ResourceSnapshot{}, fmt.Errorf("%w: %s reported: %s", ErrUnknown, payload.Hostname, payload.Error)
	}

	r := payload.Resource
	if r == nil || r.Total == nil || r.UsedNow == nil {
		return model.ResourceSnapshot{}, fmt.Errorf("%w: payload of %s has no resource section", ErrUnknown, payload.Hostname)
	}

	if r.Total.CPU <= 0 || r.Total.MemoryMB <= 0 || r.Total.DiskGB <= 0 {
		return model.ResourceSnapshot{}, fmt.Errorf("%w: payload of %s has a non-positive total (%v)", ErrUnknown, payload.Hostname, *r.Total)
	}

	if payload.Warning != "" {
		log.Warn().Msgf("resource query for %s: %s", payload.Hostname, payload.Warning)
	}

	snapshot := model.ResourceSnapshot{
		Hostname: payload.Hostname,
		Total:    *r.Total,
		UsedNow:  *r.UsedNow,
	}
	if r.UsedMax != nil {
		snapshot.UsedMax = *r.UsedMax
	} else {
		snapshot.UsedMax = *r.UsedNow
	}

	return snapshot, nil
}
