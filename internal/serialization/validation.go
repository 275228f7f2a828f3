package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// ValidateTensorOffsets checks for negative, overlapping and out-of-bounds tensor regions.
// Malformed files must never make the reader return bytes belonging to another tensor.
func ValidateTensorOffsets(tensors map[string]TensorInfo, dataSize int64) error {
	type region struct {
		name       string
		start, end int64
	}
	regions := make([]region, 0, len(tensors))
	for name, info := range tensors {
		regions = append(regions, region{name, info.DataOffsets[0], info.DataOffsets[1]})
	}
	sort.Slice(regions, func(i, j int) bool {
		if regions[i].start != regions[j].start {
			return regions[i].start < regions[j].start
		}
		return regions[i].name < regions[j].name
	})

	for i, t := range regions {
		if t.start < 0 || t.end < t.start {
			return &ValidationError{
				Err:     ErrOutOfBounds,
				Tensor:  t.name,
				Details: fmt.Sprintf("invalid offsets [%d, %d)", t.start, t.end),
			}
		}
		if t.end > dataSize {
			return &ValidationError{
				Err:     ErrOutOfBounds,
				Tensor:  t.name,
				Details: fmt.Sprintf("end %d > data_size %d", t.end, dataSize),
			}
		}
		if i < len(regions)-1 {
			next := regions[i+1]
			if t.end > next.start {
				return &ValidationError{
					Err:     ErrOffsetOverlap,
					Tensor:  t.name,
					Tensor2: next.name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap", t.start, t.end, next.start, next.end),
				}
			}
		}
	}
	return nil
}

// ValidateTensorName rejects names that are empty, too long or contain NUL bytes.
func ValidateTensorName(name string) error {
	switch {
	case name == "" || name == metadataKey:
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "reserved or empty name"}
	case len(name) > MaxTensorNameLen:
		return &ValidationError{
			Err:     ErrInvalidTensorName,
			Tensor:  name[:32] + "...",
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	case strings.Contains(name, "\x00"):
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "contains null byte"}
	}
	return nil
}
