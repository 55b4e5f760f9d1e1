package main

import (
	"encoding/json"
	"fmt"
	"os"

	unwrap "github.com/meigma/unwrap"
)

// meshFile is the JSON form of a mesh accepted by the unwrap command.
type meshFile struct {
	Positions []float32 `json:"positions"`
	Normals   []float32 `json:"normals"`
	Indices   []uint32  `json:"indices"`
	TexelSize float32   `json:"texel_size"`
}

func readMesh(path string) (unwrap.Mesh, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return unwrap.Mesh{}, err
	}
	var mf meshFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return unwrap.Mesh{}, fmt.Errorf("parse mesh %s: %w", path, err)
	}
	return unwrap.Mesh{
		Positions: mf.Positions,
		Normals:   mf.Normals,
		Indices:   mf.Indices,
		TexelSize: mf.TexelSize,
	}, nil
}

// resultFile is the JSON form of an unwrap result.
type resultFile struct {
	Fingerprint string    `json:"fingerprint"`
	Width       uint32    `json:"width"`
	Height      uint32    `json:"height"`
	Vertices    []uint32  `json:"vertices"`
	UVs         []float32 `json:"uvs"`
	Indices     []uint32  `json:"indices"`
}
