package layer

import "github.com/chewxy/math32"

// GroundTruthBox is one detection-list entry.
type GroundTruthBox struct {
	Class      int
	X, Y, W, H float32
}

// Anchor is one (width, height) detector prior, in input-pixel units.
type Anchor struct {
	W, H float32
}

// YOLO implements detection head: decodes a feature map of
// shape (n, A*(5+C), H, W) into per-cell box predictions and, in
// training, accumulates a localization+objectness+classification loss
// against an IoU-matched anchor assignment.
type YOLO struct {
	Base
	n, h, w       int
	anchors       []Anchor
	numClasses    int
	training      bool
	inputW, inputH int // network input resolution, for box decode scaling
	objThresh     float32

	truth   [][]GroundTruthBox // per-image ground truth, refreshed by SetGroundTruth
	decoded []float32          // scratch: decoded (n, A, H, W, 5+C) predictions
	lossValue float32
}

func NewYOLO(srcIdx, dstIdx, lossIdx, n, h, w int, anchors []Anchor, numClasses int, inputW, inputH int, training bool, objThresh float32, opts ...Option) *YOLO {
	base := NewBase(KindYOLO, "yolo", []int{srcIdx}, []int{dstIdx, lossIdx})
	base.ParseOptions(opts...)
	a := len(anchors)
	return &YOLO{
		Base: base, n: n, h: h, w: w, anchors: append([]Anchor(nil), anchors...),
		numClasses: numClasses, training: training, inputW: inputW, inputH: inputH,
		objThresh: objThresh,
		truth:     make([][]GroundTruthBox, n),
		decoded:   make([]float32, n*a*h*w*(5+numClasses)),
	}
}

// SetGroundTruth refreshes the per-image box list used by Backward's
// IoU-based anchor assignment for the batch currently loaded into the
// source tensor.
func (l *YOLO) SetGroundTruth(truth [][]GroundTruthBox) {
	for i := range l.truth {
		if i < len(truth) {
			l.truth[i] = truth[i]
		} else {
			l.truth[i] = nil
		}
	}
}

func sigmoid(x float32) float32 { return 1 / (1 + math32.Exp(-x)) }

// Forward decodes every anchor/cell: sigmoid center offset, exp size
// scaled by the anchor prior, sigmoid objectness, sigmoid per-class
// score.
func (l *YOLO) Forward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	box := t.Tensor(l.Dst()[0])
	a := len(l.anchors)
	stride := 5 + l.numClasses
	spatial := l.h * l.w

	for b := 0; b < l.n; b++ {
		for ai := 0; ai < a; ai++ {
			base := (b*a + ai) * stride * spatial
			for cy := 0; cy < l.h; cy++ {
				for cx := 0; cx < l.w; cx++ {
					cellOff := cy*l.w + cx
					tx := x.Data[base+0*spatial+cellOff]
					ty := x.Data[base+1*spatial+cellOff]
					tw := x.Data[base+2*spatial+cellOff]
					th := x.Data[base+3*spatial+cellOff]
					tobj := x.Data[base+4*spatial+cellOff]

					bx := (sigmoid(tx) + float32(cx)) / float32(l.w)
					by := (sigmoid(ty) + float32(cy)) / float32(l.h)
					bw := math32.Exp(tw) * l.anchors[ai].W / float32(l.inputW)
					bh := math32.Exp(th) * l.anchors[ai].H / float32(l.inputH)
					obj := sigmoid(tobj)

					outBase := ((b*a+ai)*spatial + cellOff) * stride
					l.decoded[outBase+0] = bx
					l.decoded[outBase+1] = by
					l.decoded[outBase+2] = bw
					l.decoded[outBase+3] = bh
					l.decoded[outBase+4] = obj
					for c := 0; c < l.numClasses; c++ {
						l.decoded[outBase+5+c] = sigmoid(x.Data[base+(5+c)*spatial+cellOff])
					}
					copy(box.Data[outBase:outBase+stride], l.decoded[outBase:outBase+stride])
				}
			}
		}
	}

	if l.training {
		l.lossValue = l.computeTrainingLoss(t)
	}
}

func iou(ax, ay, aw, ah, bx, by, bw, bh float32) float32 {
	ax1, ay1, ax2, ay2 := ax-aw/2, ay-ah/2, ax+aw/2, ay+ah/2
	bx1, by1, bx2, by2 := bx-bw/2, by-bh/2, bx+bw/2, by+bh/2
	ix1, iy1 := max(ax1, bx1), max(ay1, by1)
	ix2, iy2 := min(ax2, bx2), min(ay2, by2)
	iw, ih := ix2-ix1, iy2-iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := aw*ah + bw*bh - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// computeTrainingLoss assigns each ground-truth box to the best-IoU
// anchor at its cell and accumulates gradients directly into the
// source tensor's Grad, returning the loss summed over boxes and cells
// and averaged over the batch. Localization
// uses squared error on center/size, objectness and classification use
// squared error on the sigmoid outputs against 1/0 targets, the
// common Darknet-era YOLOv3 loss shape.
func (l *YOLO) computeTrainingLoss(t TensorTable) float32 {
	x := t.Tensor(l.Src()[0])
	a := len(l.anchors)
	stride := 5 + l.numClasses
	spatial := l.h * l.w

	if x.Grad != nil {
		for i := range x.Grad[:l.n*a*stride*spatial] {
			x.Grad[i] = 0
		}
	}

	var lossSum float32
	for b := 0; b < l.n; b++ {
		assigned := make(map[int]bool)
		for _, gt := range l.truth[b] {
			cx := int(gt.X * float32(l.w))
			cy := int(gt.Y * float32(l.h))
			if cx >= l.w {
				cx = l.w - 1
			}
			if cy >= l.h {
				cy = l.h - 1
			}
			bestAnchor := 0
			bestIoU := float32(-1)
			for ai := 0; ai < a; ai++ {
				ar := iou(0, 0, l.anchors[ai].W/float32(l.inputW), l.anchors[ai].H/float32(l.inputH), 0, 0, gt.W, gt.H)
				if ar > bestIoU {
					bestIoU = ar
					bestAnchor = ai
				}
			}
			key := (bestAnchor*l.h+cy)*l.w + cx
			assigned[key] = true

			base := (b*a + bestAnchor) * stride * spatial
			cellOff := cy*l.w + cx

			tx := x.Data[base+0*spatial+cellOff]
			ty := x.Data[base+1*spatial+cellOff]
			tw := x.Data[base+2*spatial+cellOff]
			th := x.Data[base+3*spatial+cellOff]
			tobj := x.Data[base+4*spatial+cellOff]

			sx, sy := sigmoid(tx), sigmoid(ty)
			targetX := gt.X*float32(l.w) - float32(cx)
			targetY := gt.Y*float32(l.h) - float32(cy)
			targetW := math32.Log(gt.W*float32(l.inputW)/l.anchors[bestAnchor].W + 1e-8)
			targetH := math32.Log(gt.H*float32(l.inputH)/l.anchors[bestAnchor].H + 1e-8)

			dLocX := sx - targetX
			dLocY := sy - targetY
			dLocW := tw - targetW
			dLocH := th - targetH
			lossSum += 0.5 * (dLocX*dLocX + dLocY*dLocY + dLocW*dLocW + dLocH*dLocH)

			objP := sigmoid(tobj)
			dObj := objP - 1
			lossSum += 0.5 * dObj * dObj

			if x.Grad != nil {
				x.Grad[base+0*spatial+cellOff] += dLocX * sx * (1 - sx)
				x.Grad[base+1*spatial+cellOff] += dLocY * sy * (1 - sy)
				x.Grad[base+2*spatial+cellOff] += dLocW
				x.Grad[base+3*spatial+cellOff] += dLocH
				x.Grad[base+4*spatial+cellOff] += dObj * objP * (1 - objP)
			}

			for c := 0; c < l.numClasses; c++ {
				tc := x.Data[base+(5+c)*spatial+cellOff]
				pc := sigmoid(tc)
				target := float32(0)
				if c == gt.Class {
					target = 1
				}
				d := pc - target
				lossSum += 0.5 * d * d
				if x.Grad != nil {
					x.Grad[base+(5+c)*spatial+cellOff] += d * pc * (1 - pc)
				}
			}
		}

		// Penalize objectness for unassigned anchors towards 0.
		for ai := 0; ai < a; ai++ {
			for cy := 0; cy < l.h; cy++ {
				for cx := 0; cx < l.w; cx++ {
					key := (ai*l.h+cy)*l.w + cx
					if assigned[key] {
						continue
					}
					base := (b*a + ai) * stride * spatial
					cellOff := cy*l.w + cx
					tobj := x.Data[base+4*spatial+cellOff]
					objP := sigmoid(tobj)
					lossSum += 0.5 * objP * objP
					if x.Grad != nil {
						x.Grad[base+4*spatial+cellOff] += objP * objP * (1 - objP)
					}
				}
			}
		}
	}
	return lossSum / float32(l.n)
}

// Loss returns the scalar loss value computed by the last Forward.
func (l *YOLO) Loss() float32 { return l.lossValue }

func (l *YOLO) Backward(t TensorTable) {
	// Gradients were accumulated directly into the source tensor during
	// Forward's training-loss pass (the IoU assignment and the gradient
	// depend on the same per-cell decode, so there is nothing left to
	// propagate from the downstream loss tensor).
	loss := t.Tensor(l.Dst()[1])
	loss.Data[0] = l.lossValue
}

func (l *YOLO) Update(opt Optimizer) error { return nil }
