// File: pkg/audit/volumes.go
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var Header = []string{"Volume ID", "Region", "Total Size Increase (GiB)", "Modification Count", "Event Times"}

// One ModifyVolume call as recorded by CloudTrail
type Modification struct {
	VolumeID     string
	OriginalSize int64
	TargetSize   int64
	Region       string
	EventTime    string
}

type modifyVolumeEvent struct {
	AWSRegion         string `json:"awsRegion"`
	EventTime         string `json:"eventTime"`
	RequestParameters struct {
		ModifyVolumeRequest struct {
			VolumeID string `json:"VolumeId"`
		} `json:"ModifyVolumeRequest"`
	} `json:"requestParameters"`
	ResponseElements struct {
		ModifyVolumeResponse struct {
			VolumeModification struct {
				OriginalSize *int64 `json:"originalSize"`
				TargetSize   *int64 `json:"targetSize"`
			} `json:"volumeModification"`
		} `json:"ModifyVolumeResponse"`
	} `json:"responseElements"`
}

// Extracts the volume, sizes, region and time from a raw CloudTrail event document
func ParseModification(payload []byte) (Modification, error) {
	var event modifyVolumeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return Modification{}, fmt.Errorf("error decoding event: %w", err)
	}

	vm := event.ResponseElements.ModifyVolumeResponse.VolumeModification
	var missing []string
	if event.RequestParameters.ModifyVolumeRequest.VolumeID == "" {
		missing = append(missing, "VolumeId")
	}
	if vm.OriginalSize == nil {
		missing = append(missing, "originalSize")
	}
	if vm.TargetSize == nil {
		missing = append(missing, "targetSize")
	}
	if event.AWSRegion == "" {
		missing = append(missing, "awsRegion")
	}
	if len(missing) > 0 {
		return Modification{}, errors.New("event is missing " + strings.Join(missing, ", "))
	}

	return Modification{
		VolumeID:     event.RequestParameters.ModifyVolumeRequest.VolumeID,
		OriginalSize: *vm.OriginalSize,
		TargetSize:   *vm.TargetSize,
		Region:       event.AWSRegion,
		EventTime:    event.EventTime,
	}, nil
}

// All modifications of one volume folded together
type VolumeChange struct {
	VolumeID      string
	Region        string
	TotalIncrease int64
	Count         int
	EventTimes    []string
}

func (v VolumeChange) Row() []string {
	return []string{
		v.VolumeID,
		v.Region,
		strconv.FormatInt(v.TotalIncrease, 10),
		strconv.Itoa(v.Count),
		strings.Join(v.EventTimes, ", "),
	}
}

// Groups modifications by volume, keeping event times in the order they were seen.
// The result is sorted by volume id
func Consolidate(mods []Modification) []VolumeChange {
	byVolume := make(map[string]*VolumeChange)
	for _, m := range mods {
		change, ok := byVolume[m.VolumeID]
		if !ok {
			change = &VolumeChange{VolumeID: m.VolumeID, Region: m.Region}
			byVolume[m.VolumeID] = change
		}
		change.TotalIncrease += m.TargetSize - m.OriginalSize
		change.Count++
		change.EventTimes = append(change.EventTimes, m.EventTime)
	}

	changes := make([]VolumeChange, 0, len(byVolume))
	for _, change := range byVolume {
		changes = append(changes, *change)
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].VolumeID < changes[j].VolumeID })
	return changes
}
