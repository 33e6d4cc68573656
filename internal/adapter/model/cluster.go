package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/imyuanhui/COMP47360/internal/domain"
)

// DefaultLevels maps cluster index to label for the shipped level model.
var DefaultLevels = map[int]domain.Level{
	0: domain.LevelMedium,
	1: domain.LevelLow,
	2: domain.LevelHigh,
}

type clusterFile struct {
	Mean      []float64         `json:"mean"`
	Scale     []float64         `json:"scale"`
	Centroids [][]float64       `json:"centroids"`
	Levels    map[string]string `json:"levels,omitempty"`
}

// CentroidClusterer standardizes a level point and assigns the label of the
// nearest centroid. It implements domain.LevelClusterer.
type CentroidClusterer struct {
	mean      [4]float64
	scale     [4]float64
	centroids [][4]float64
	levels    map[int]domain.Level
}

// LoadClusterer reads a scaler + centroid artifact.
func LoadClusterer(path string) (*CentroidClusterer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level artifact: %w", err)
	}
	var f clusterFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode level artifact %s: %w", path, err)
	}

	levels := DefaultLevels
	if len(f.Levels) > 0 {
		levels = make(map[int]domain.Level, len(f.Levels))
		for k, v := range f.Levels {
			i, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("level artifact %s: cluster key %q is not an integer", path, k)
			}
			l, err := domain.ParseLevel(v)
			if err != nil {
				return nil, fmt.Errorf("level artifact %s: %w", path, err)
			}
			levels[i] = l
		}
	}
	c, err := NewCentroidClusterer(f.Mean, f.Scale, f.Centroids, levels)
	if err != nil {
		return nil, fmt.Errorf("level artifact %s: %w", path, err)
	}
	return c, nil
}

// NewCentroidClusterer validates dimensions. A zero scale entry is treated as 1.
func NewCentroidClusterer(mean, scale []float64, centroids [][]float64, levels map[int]domain.Level) (*CentroidClusterer, error) {
	if len(mean) != 4 || len(scale) != 4 {
		return nil, errors.New("scaler must have 4 dimensions")
	}
	if len(centroids) == 0 {
		return nil, errors.New("no centroids")
	}
	c := &CentroidClusterer{levels: levels}
	for i := range 4 {
		c.mean[i] = mean[i]
		c.scale[i] = scale[i]
		if c.scale[i] == 0 {
			c.scale[i] = 1
		}
	}
	for i, cen := range centroids {
		if len(cen) != 4 {
			return nil, fmt.Errorf("centroid %d has %d dimensions, want 4", i, len(cen))
		}
		c.centroids = append(c.centroids, [4]float64{cen[0], cen[1], cen[2], cen[3]})
	}
	return c, nil
}

// Level implements domain.LevelClusterer.
func (c *CentroidClusterer) Level(_ context.Context, p [4]float64) (domain.Level, error) {
	var z [4]float64
	for i := range 4 {
		z[i] = (p[i] - c.mean[i]) / c.scale[i]
	}

	best, bestDist := -1, math.Inf(1)
	for i, cen := range c.centroids {
		var d float64
		for j := range 4 {
			diff := z[j] - cen[j]
			d += diff * diff
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return "", errors.New("point is not comparable to any centroid")
	}
	level, ok := c.levels[best]
	if !ok {
		return "", fmt.Errorf("cluster %d has no level label", best)
	}
	return level, nil
}
