// Package sim replays a recorded constellation scenario: time-indexed topology
// frames with station cover sets, and a fixed resource table. A Scenario can
// stand in for both the topology and the resource provider.
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/amsen20/leovnf/internal/config"
	"github.com/amsen20/leovnf/internal/connector"
	"github.com/amsen20/leovnf/internal/model"
	"github.com/amsen20/leovnf/logging"
)

var log = logging.Get()

type Frame struct {
	Second int         `json:"second"`
	Nodes  []string    `json:"nodes"`
	Edges  [][2]string `json:"edges"`

	// Cover sets keyed by "<latitude>,<longitude>" with five decimals.
	Cover map[string][]string `json:"cover"`
}

type Scenario struct {
	Frames    []*Frame                           `json:"frames"`
	Resources map[string]*model.ResourceSnapshot `json:"resources"`
}

func Load(path string) (*Scenario, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Err(err).Send()

		return nil, fmt.Errorf("could not read scenario: %w", err)
	}

	return Parse(content)
}

// Parse decodes a scenario and orders its frames by second.
func Parse(content []byte) (*Scenario, error) {
	var scenario Scenario
	if err := json.Unmarshal(content, &scenario); err != nil {
		return nil, fmt.Errorf("%w: malformed scenario: %v", model.ErrConfig, err)
	}

	if len(scenario.Frames) == 0 {
		return nil, fmt.Errorf("%w: scenario has no frames", model.ErrConfig)
	}
	for ind, frame := range scenario.Frames {
		if frame == nil {
			return nil, fmt.Errorf("%w: scenario frame %d is empty", model.ErrConfig, ind)
		}
		if frame.Second < 0 || frame.Second >= config.SecondsPerDay {
			return nil, fmt.Errorf("%w: scenario frame %d is at second %d", model.ErrConfig, ind, frame.Second)
		}
	}
	sort.SliceStable(scenario.Frames, func(i, j int) bool {
		return scenario.Frames[i].Second < scenario.Frames[j].Second
	})

	log.Info().Msgf("scenario with %d frames and %d nodes with resources", len(scenario.Frames), len(scenario.Resources))

	return &scenario, nil
}

// FrameAt returns the last frame at or before second. Before the first frame
// of the day the last frame of the previous day still holds.
func (s *Scenario) FrameAt(second int) *Frame {
	second %= config.SecondsPerDay
	ind := sort.Search(len(s.Frames), func(i int) bool {
		return s.Frames[i].Second > second
	})
	if ind == 0 {
		return s.Frames[len(s.Frames)-1]
	}

	return s.Frames[ind-1]
}

func (s *Scenario) GraphAt(ctx context.Context, req connector.TopologyRequest) (model.TopologySnapshot, error) {
	frame := s.FrameAt(req.SecondOfDay)

	return model.TopologySnapshot{
		SecondOfDay: req.SecondOfDay,
		Nodes:       append([]string(nil), frame.Nodes...),
		Edges:       append([][2]string(nil), frame.Edges...),
	}, nil
}

func (s *Scenario) CoverSetAt(ctx context.Context, req connector.TopologyRequest) ([]string, error) {
	if req.Station == nil {
		return nil, fmt.Errorf("cover set request at %d has no station", req.SecondOfDay)
	}

	key := StationKey(*req.Station)
	cover, ok := s.FrameAt(req.SecondOfDay).Cover[key]
	if !ok {
		return nil, fmt.Errorf("scenario has no cover set for station %s at second %d", key, req.SecondOfDay)
	}

	return append([]string(nil), cover...), nil
}

func (s *Scenario) Query(ctx context.Context, node string) (model.ResourceSnapshot, error) {
	snapshot, ok := s.Resources[node]
	if !ok || snapshot == nil {
		return model.ResourceSnapshot{}, fmt.Errorf("%w: scenario has no resources for node %s", connector.ErrUnknown, node)
	}

	return *snapshot, nil
}

func StationKey(station model.Coordinates) string {
	return station.Latitude + "," + station.Longitude
}
