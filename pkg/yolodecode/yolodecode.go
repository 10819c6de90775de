// Package yolodecode implements box extraction and
// non-maximum suppression over a YOLO detection head's decoded output,
// independent of the network engine so a caller can post-process
// predictions already read out of the graph.
package yolodecode

import "sort"

// Box is one decoded detection: center (X,Y), size (W,H) in normalized
// [0,1] image coordinates, objectness, and per-class scores.
type Box struct {
	X, Y, W, H float32
	Objectness float32
	Classes    []float32
}

// Detection is a Box resolved to its winning class.
type Detection struct {
	Box
	Class int
	Score float32
}

// Extract filters decoded (already sigmoid/exp'd) boxes by objectness
// threshold, strict greater-than.
func Extract(boxes []Box, objThresh float32) []Detection {
	var out []Detection
	for _, b := range boxes {
		if !(b.Objectness > objThresh) {
			continue
		}
		bestClass := 0
		bestScore := float32(-1)
		for c, s := range b.Classes {
			score := s * b.Objectness
			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}
		out = append(out, Detection{Box: b, Class: bestClass, Score: bestScore})
	}
	return out
}

func iou(a, b Box) float32 {
	ax1, ay1, ax2, ay2 := a.X-a.W/2, a.Y-a.H/2, a.X+a.W/2, a.Y+a.H/2
	bx1, by1, bx2, by2 := b.X-b.W/2, b.Y-b.H/2, b.X+b.W/2, b.Y+b.H/2
	ix1, iy1 := max(ax1, bx1), max(ay1, by1)
	ix2, iy2 := min(ax2, bx2), min(ay2, by2)
	iw, ih := ix2-ix1, iy2-iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := a.W*a.H + b.W*b.H - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// NMS removes overlapping detections of the same class whose IoU
// exceeds iouThresh, keeping the higher-score survivor.
func NMS(dets []Detection, iouThresh float32) []Detection {
	sorted := append([]Detection(nil), dets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	keep := make([]bool, len(sorted))
	for i := range keep {
		keep[i] = true
	}
	for i := 0; i < len(sorted); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(sorted); j++ {
			if !keep[j] || sorted[j].Class != sorted[i].Class {
				continue
			}
			if iou(sorted[i].Box, sorted[j].Box) > iouThresh {
				keep[j] = false
			}
		}
	}
	out := make([]Detection, 0, len(sorted))
	for i, d := range sorted {
		if keep[i] {
			out = append(out, d)
		}
	}
	return out
}

// Decode runs Extract followed by NMS in one call, the common
// inference-time entry point.
func Decode(boxes []Box, objThresh, iouThresh float32) []Detection {
	return NMS(Extract(boxes, objThresh), iouThresh)
}
