package connector

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/amsen20/leovnf/internal/model"
	"github.com/amsen20/leovnf/internal/utils"
)

const (
	parameterTemplateFile = "parameter_example.txt"
	parameterFile         = "parameter.txt"

	adjacencyOutputFile = "adj_matrix.txt"
	coverSatsOutputFile = "CoverSats.txt"

	constellationStateFunction = "printConstellationStateFile"
	stationCoverSatsFunction   = "printStationCoverSats"
)

// SattrackTopologyProvider drives the sattrack constellation simulator. The
// tool reads a single parameter file from its working directory, so
// invocations are serialised by the provider; callers only pass requests.
type SattrackTopologyProvider struct {
	Dir    string
	Binary string

	mutex sync.Mutex
}

func NewSattrackTopologyProvider(dir string, binary string) *SattrackTopologyProvider {
	return &SattrackTopologyProvider{
		Dir:    dir,
		Binary: binary,
	}
}

func (s *SattrackTopologyProvider) GraphAt(ctx context.Context, req TopologyRequest) (model.TopologySnapshot, error) {
	output, err := s.run(ctx, RenderDirectives(req, constellationStateFunction, adjacencyOutputFile), adjacencyOutputFile)
	if err != nil {
		return model.TopologySnapshot{}, err
	}

	snapshot, err := ParseAdjacencyMatrix(output)
	if err != nil {
		return model.TopologySnapshot{}, err
	}
	snapshot.SecondOfDay = req.SecondOfDay

	log.Debug().Msgf(
		"sattrack graph at %d: %d nodes, %d edges",
		req.SecondOfDay, len(snapshot.Nodes), len(snapshot.Edges),
	)

	return snapshot, nil
}

func (s *SattrackTopologyProvider) CoverSetAt(ctx context.Context, req TopologyRequest) ([]string, error) {
	if req.Station == nil {
		return nil, fmt.Errorf("cover set request at %d has no station", req.SecondOfDay)
	}

	output, err := s.run(ctx, RenderDirectives(req, stationCoverSatsFunction, coverSatsOutputFile), coverSatsOutputFile)
	if err != nil {
		return nil, err
	}

	return ParseCoverSats(output), nil
}

func (s *SattrackTopologyProvider) run(ctx context.Context, directives string, outputFile string) ([]byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	template, err := os.ReadFile(filepath.Join(s.Dir, parameterTemplateFile))
	if err != nil {
		return nil, fmt.Errorf("could not read sattrack parameter template: %w", err)
	}

	content := append(template, []byte(directives)...)
	if err := os.WriteFile(filepath.Join(s.Dir, parameterFile), content, 0644); err != nil {
		return nil, fmt.Errorf("could not write sattrack parameters: %w", err)
	}

	outputPath := filepath.Join(s.Dir, outputFile)
	_ = os.Remove(outputPath)

	var console bytes.Buffer
	cmd := exec.CommandContext(ctx, s.Binary)
	cmd.Dir = s.Dir
	cmd.Stdout = &console
	cmd.Stderr = &console
	if err := cmd.Run(); err != nil {
		log.Err(err).Msgf("sattrack failed: %s", strings.TrimSpace(console.String()))

		return nil, fmt.Errorf("sattrack execution failed: %w", err)
	}

	output, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("sattrack produced no %s: %w", outputFile, err)
	}

	return output, nil
}

// RenderDirectives returns the lines appended to the parameter template for
// one request.
func RenderDirectives(req TopologyRequest, function string, outputFile string) string {
	var b strings.Builder
	if req.Station != nil {
		fmt.Fprintf(&b, ">>(stationLatitude): (%s)\n", req.Station.Latitude)
		fmt.Fprintf(&b, ">>(stationLongitude): (%s)\n", req.Station.Longitude)
	}
	fmt.Fprintf(&b, ">>(outputFileName): (%s)\n", outputFile)
	fmt.Fprintf(&b, ">>(execute_function): (%s)\n", function)
	fmt.Fprintf(&b, ">>(time):(%d)second\n", req.SecondOfDay)

	return b.String()
}

// ParseAdjacencyMatrix reads sattrack's constellation state file: a header
// line of node ids followed by one row per node, "<id> a1 a2 ... an", where a
// non-zero entry is a link.
func ParseAdjacencyMatrix(data []byte) (model.TopologySnapshot, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return model.TopologySnapshot{}, fmt.Errorf("adjacency matrix is empty")
	}
	ids := strings.Fields(scanner.Text())
	if len(ids) == 0 {
		return model.TopologySnapshot{}, fmt.Errorf("adjacency matrix has no node ids")
	}

	snapshot := model.TopologySnapshot{Nodes: ids}
	linked := make(map[[2]int]bool)
	row := 0
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if row >= len(ids) {
			return model.TopologySnapshot{}, fmt.Errorf("adjacency matrix has more rows than ids (%d)", len(ids))
		}
		if len(fields)-1 != len(ids) {
			return model.TopologySnapshot{}, fmt.Errorf("adjacency row %d has %d entries, want %d", row, len(fields)-1, len(ids))
		}

		for col, cell := range fields[1:] {
			v, err := strconv.Atoi(cell)
			if err != nil {
				return model.TopologySnapshot{}, fmt.Errorf("adjacency row %d column %d: %w", row, col, err)
			}
			if v == 0 || col == row {
				continue
			}
			// either direction is a link, kept once
			pair := [2]int{row, col}
			if col < row {
				pair = [2]int{col, row}
			}
			if linked[pair] {
				continue
			}
			linked[pair] = true
			snapshot.Edges = append(snapshot.Edges, [2]string{ids[pair[0]], ids[pair[1]]})
		}
		row++
	}
	if err := scanner.Err(); err != nil {
		return model.TopologySnapshot{}, err
	}
	if row != len(ids) {
		return model.TopologySnapshot{}, fmt.Errorf("adjacency matrix has %d rows, want %d", row, len(ids))
	}

	return snapshot, nil
}

// ParseCoverSats reads "label: id, id, ..." lines, keeping numeric ids in
// first-seen order.
func ParseCoverSats(data []byte) []string {
	var sats []string
	for _, line := range strings.Split(string(data), "\n") {
		ind := strings.Index(line, ":")
		if ind < 0 {
			continue
		}

		for _, token := range strings.Split(line[ind+1:], ",") {
			token = strings.TrimSpace(token)
			if _, err := strconv.ParseUint(token, 10, 64); err == nil {
				sats = append(sats, token)
			}
		}
	}

	return utils.Dedupe(sats)
}
