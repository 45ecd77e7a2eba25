package service

import (
	"fmt"

	"gunpla-colorizer/internal/mask"
	"gunpla-colorizer/internal/prompt"

	jsoniter "github.com/json-iterator/go"
)

// Dense boolean grids dominate payload size; jsoniter keeps their (de)serialization cheap.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

type uploadResponse struct {
	Info      string `json:"info"`
	ImageName string `json:"image_name"`
}

type segmentRequest struct {
	ImageName string         `json:"image_name"`
	Prompts   []prompt.Point `json:"prompts"`
}

type rleMask struct {
	Size   [2]int `json:"size"` // height, width
	Counts []int  `json:"counts"`
}

type segmentResponse struct {
	ImageName string     `json:"image_name"`
	Masks     [][][]bool `json:"masks"`
	MasksRLE  []rleMask  `json:"masks_rle,omitempty"`
}

type recolorRequest struct {
	ImageName      string   `json:"image_name"`
	Mask           [][]bool `json:"mask"`
	TargetHexColor string   `json:"target_hex_color"`
}

type recolorResponse struct {
	Message            string `json:"message"`
	RecoloredImageName string `json:"recolored_image_name"`
	NewColorApplied    string `json:"new_color_applied"`
}

type errorResponse struct {
	Detail jsoniter.RawMessage `json:"detail"`
}

// grids decodes whichever mask encoding the response carries; dense wins.
func (r *segmentResponse) grids() ([]*mask.Grid, error) {
	if len(r.Masks) > 0 {
		out := make([]*mask.Grid, 0, len(r.Masks))
		for i, rows := range r.Masks {
			g, err := mask.FromRows(rows)
			if err != nil {
				return nil, fmt.Errorf("mask %d: %w", i, err)
			}
			out = append(out, g)
		}
		return out, nil
	}

	out := make([]*mask.Grid, 0, len(r.MasksRLE))
	for i, m := range r.MasksRLE {
		g, err := mask.FromRLE(m.Size[1], m.Size[0], m.Counts)
		if err != nil {
			return nil, fmt.Errorf("mask %d: %w", i, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// detail extracts FastAPI's error detail, which is a string or a validation list.
func detail(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil || len(er.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(er.Detail, &s); err == nil {
		return s
	}
	return string(er.Detail)
}
