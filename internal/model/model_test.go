package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain() *NetworkService {
	return &NetworkService{
		Name:        "video",
		Source:      NewCoordinates(35.6892, 51.389),
		Destination: NewCoordinates(48.8566, 2.3522),
		VNFs: []*VNFSpec{
			{Name: "fw", Id: 1, CPU: 1, MemoryGiB: 2, StorageGB: 10, MinInstances: 1, MaxInstances: 1},
			{Name: "cache", Id: 2, CPU: 2, MemoryGiB: 4, StorageGB: 40, MinInstances: 1, MaxInstances: 2},
		},
	}
}

func TestStoreFormat(t *testing.T) {
	ns := chain()
	ns.VNFs[0].AssignedNode = "12"
	ns.Path = []string{"3", "12", "sat-b", "40"}

	content, err := json.Marshal(ns)
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, `"source_latitude":"35.68920"`)
	assert.Contains(t, text, `"destination_longitude":"2.35220"`)
	assert.Contains(t, text, `"sat_id":12`)
	assert.Contains(t, text, `"sat_id":-1`)
	assert.Contains(t, text, `"path":[3,12,"sat-b",40]`)

	decoded := &NetworkService{}
	require.NoError(t, json.Unmarshal(content, decoded))
	assert.Equal(t, ns, decoded)
}

func TestDecodeNodeIds(t *testing.T) {
	content := `{"ns_name": "x", "vnfs": [
		{"vnf_name": "a", "id": 1, "sat_id": -1},
		{"vnf_name": "b", "id": 2, "sat_id": "-1"},
		{"vnf_name": "c", "id": 3, "sat_id": 7},
		{"vnf_name": "d", "id": 4}
	], "path": []}`

	ns := &NetworkService{}
	require.NoError(t, json.Unmarshal([]byte(content), ns))
	assert.Equal(t, UNASSIGNED, ns.VNFs[0].AssignedNode)
	assert.Equal(t, UNASSIGNED, ns.VNFs[1].AssignedNode)
	assert.Equal(t, "7", ns.VNFs[2].AssignedNode)
	assert.False(t, ns.VNFs[3].IsAssigned())

	err := json.Unmarshal([]byte(`{"ns_name": "x", "vnfs": [{"vnf_name": "a", "sat_id": true}]}`), ns)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, chain().Validate())

	cases := map[string]func(ns *NetworkService){
		"no name":        func(ns *NetworkService) { ns.Name = "" },
		"empty chain":    func(ns *NetworkService) { ns.VNFs = nil },
		"duplicate name": func(ns *NetworkService) { ns.VNFs[1].Name = "fw" },
		"id out of order": func(ns *NetworkService) {
			ns.VNFs[0].Id = 2
		},
		"negative demand": func(ns *NetworkService) { ns.VNFs[1].StorageGB = -1 },
		"short path":      func(ns *NetworkService) { ns.Path = []string{"1", "2"} },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			ns := chain()
			mutate(ns)
			assert.True(t, errors.Is(ns.Validate(), ErrConfig))
		})
	}
}

func TestApply(t *testing.T) {
	ns := chain()
	plan := &PlacementPlan{
		Path:            []string{"3", "12", "40"},
		Assignment:      map[string]string{"fw": "12", "cache": "12"},
		AssignmentOrder: []string{"fw", "cache"},
	}
	assert.Equal(t, []string{"3", "12", "12", "40"}, plan.DeploymentPath())

	clone := ns.Clone()
	require.NoError(t, clone.ApplyPlacement(plan))
	assert.Equal(t, []string{"3", "12", "12", "40"}, clone.Path)
	assert.True(t, clone.IsPlaced())
	// the source record is untouched
	assert.False(t, ns.IsPlaced())
	assert.False(t, ns.VNFs[0].IsAssigned())

	partial := &PlacementPlan{Path: []string{"3", "40"}, Assignment: map[string]string{"fw": "3"}}
	assert.True(t, errors.Is(ns.ApplyPlacement(partial), ErrConfig))
	assert.Empty(t, ns.Path)

	require.NoError(t, clone.ApplyMigration(&MigrationDecision{VNF: "cache", From: "12", Target: "13"}))
	assert.Equal(t, []string{"3", "12", "13", "40"}, clone.Path)
	assert.Equal(t, "13", clone.VNFs[1].AssignedNode)

	assert.True(t, errors.Is(clone.ApplyMigration(&MigrationDecision{VNF: "dpi"}), ErrConfig))
	assert.True(t, errors.Is(ns.ApplyMigration(&MigrationDecision{VNF: "fw"}), ErrConfig))
}

func TestDemand(t *testing.T) {
	demand := chain().VNFs[1].Demand()
	assert.Equal(t, ResourceVector{CPU: 2, MemoryMB: 4096, DiskGB: 40}, demand)

	snapshot := ResourceSnapshot{
		Total:   ResourceVector{CPU: 8, MemoryMB: 8192, DiskGB: 100},
		UsedNow: ResourceVector{CPU: 9, MemoryMB: 1024, DiskGB: 10},
	}
	assert.Equal(t, ResourceVector{CPU: -1, MemoryMB: 7168, DiskGB: 90}, snapshot.Available())
}

func TestReport(t *testing.T) {
	report := NewReport()
	report.Add(ReportEntry{Subject: "path 0 [1 2]", Node: "1", VNF: "fw", Reason: REJECT_CEILING})
	other := NewReport()
	other.Add(ReportEntry{Subject: "path 1 [3]", Node: "3", VNF: "fw", Reason: ACCEPTED, Score: 0.25})
	report.Merge(other)
	report.Merge(nil)

	assert.Len(t, report.Entries, 2)
	assert.Len(t, report.Filter(ACCEPTED), 1)
	assert.Equal(t, "3", report.ForNode("3")[0].Node)
	assert.Equal(t, "ceiling_exceeded", REJECT_CEILING.String())
	assert.Equal(t, "reason(42)", Reason(42).String())

	rendered := report.String()
	assert.True(t, strings.Contains(rendered, "reason: ceiling_exceeded"), rendered)
	assert.Contains(t, rendered, "reason: accepted")
}

func TestBuild(t *testing.T) {
	draft := &NSDraft{
		SourceLatitude:       35.6892,
		SourceLongitude:      51.389,
		DestinationLatitude:  48.8566,
		DestinationLongitude: 2.3522,
		VNFs: []VNFDraft{
			{Name: "fw", CPU: 1, MemoryGiB: 2, StorageGB: 10},
			{Name: "cache", CPU: 2, MemoryGiB: 4, StorageGB: 40, MinInstances: 2},
		},
	}

	ns, err := draft.Build("video")
	require.NoError(t, err)
	assert.Equal(t, "35.68920", ns.Source.Latitude)
	assert.Equal(t, "2.35220", ns.Destination.Longitude)
	assert.Equal(t, []int{1, 2}, []int{ns.VNFs[0].Id, ns.VNFs[1].Id})
	assert.Equal(t, 2, ns.VNFs[1].MaxInstances)
	assert.False(t, ns.VNFs[0].IsAssigned())
	assert.Empty(t, ns.Path)

	content, err := json.Marshal(ns)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"sat_id":-1`)
	assert.Contains(t, string(content), `"path":[]`)

	draft.DestinationLongitude = 181
	_, err = draft.Build("video")
	assert.True(t, errors.Is(err, ErrConfig))
}
