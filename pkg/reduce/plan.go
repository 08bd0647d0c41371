// Package reduce applies a per-group estimator across the axes of an
// N-dimensional array.
package reduce

import (
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/submean/pkg/estimator"
	"github.com/Sumatoshi-tech/submean/pkg/ndarray"
)

// Plan is the resolved shape algebra of one reduction. It is computed once
// before any group is evaluated and never mutated afterwards.
type Plan struct {
	// Axes are the collapsed axes, ascending and non-negative.
	Axes []int

	// OutShape is the result shape, with collapsed axes kept as 1 when the
	// plan was built with keepDims.
	OutShape []int

	inShape []int

	// offsets and indices hold the selected input positions of every group in
	// compressed form: group g owns indices[offsets[g]:offsets[g+1]].
	offsets []int
	indices []int
}

// NewPlan resolves a reduction of an array shaped inShape.
//
// A nil axes collapses every axis; a non-nil empty axes collapses none.
// Negative axes count from the end. A nil mask selects every element.
func NewPlan(inShape, axes []int, keepDims bool, mask *ndarray.Mask) (*Plan, error) {
	resolved, err := normalizeAxes(axes, len(inShape))
	if err != nil {
		return nil, err
	}

	var selected []bool

	if mask != nil {
		selected, err = mask.Broadcast(inShape)
		if err != nil {
			return nil, err
		}
	}

	size, err := ndarray.ShapeSize(inShape)
	if err != nil {
		return nil, err
	}

	p := &Plan{
		Axes:     resolved,
		OutShape: outShape(inShape, resolved, keepDims),
		inShape:  slices.Clone(inShape),
	}
	p.group(size, selected)

	return p, nil
}

// Groups returns the number of result cells.
func (p *Plan) Groups() int { return len(p.offsets) - 1 }

// Count returns the number of selected elements in group g.
func (p *Plan) Count(g int) int { return p.offsets[g+1] - p.offsets[g] }

// Elements returns the number of selected elements across all groups.
func (p *Plan) Elements() int { return len(p.indices) }

// Indices returns the flat input positions of group g in row-major order.
func (p *Plan) Indices(g int) []int { return p.indices[p.offsets[g]:p.offsets[g+1]] }

// CheckCounts fails when any group is too small for delta. It reports the
// first offending group by its result coordinate.
func (p *Plan) CheckCounts(delta float64) error {
	for g := range p.Groups() {
		err := estimator.CheckSampleSize(p.Count(g), delta)
		if err != nil {
			coord := make([]int, len(p.OutShape))
			ndarray.Unravel(g, p.OutShape, coord)

			return fmt.Errorf("group %v: %w", coord, err)
		}
	}

	return nil
}

// group buckets selected input positions by result cell in two passes:
// counting, then filling.
func (p *Plan) group(size int, selected []bool) {
	rank := len(p.inShape)
	collapsed := make([]bool, rank)

	for _, ax := range p.Axes {
		collapsed[ax] = true
	}

	strides := make([]int, rank)
	groups := 1

	for ax := rank - 1; ax >= 0; ax-- {
		if collapsed[ax] {
			continue
		}

		strides[ax] = groups
		groups *= p.inShape[ax]
	}

	p.offsets = make([]int, groups+1)

	p.walk(size, strides, func(flat, g int) {
		if selected == nil || selected[flat] {
			p.offsets[g+1]++
		}
	})

	for g := range groups {
		p.offsets[g+1] += p.offsets[g]
	}

	p.indices = make([]int, p.offsets[groups])
	cursor := slices.Clone(p.offsets[:groups])

	p.walk(size, strides, func(flat, g int) {
		if selected == nil || selected[flat] {
			p.indices[cursor[g]] = flat
			cursor[g]++
		}
	})
}

// walk visits every input position in row-major order together with the
// result cell it belongs to.
func (p *Plan) walk(size int, strides []int, visit func(flat, g int)) {
	coord := make([]int, len(p.inShape))
	g := 0

	for flat := range size {
		visit(flat, g)

		for ax := len(p.inShape) - 1; ax >= 0; ax-- {
			coord[ax]++
			g += strides[ax]

			if coord[ax] < p.inShape[ax] {
				break
			}

			g -= strides[ax] * p.inShape[ax]
			coord[ax] = 0
		}
	}
}

func normalizeAxes(axes []int, rank int) ([]int, error) {
	if axes == nil {
		all := make([]int, rank)

		for i := range all {
			all[i] = i
		}

		return all, nil
	}

	resolved := make([]int, 0, len(axes))

	for _, ax := range axes {
		norm := ax
		if norm < 0 {
			norm += rank
		}

		if norm < 0 || norm >= rank {
			return nil, fmt.Errorf("%w: axis %d out of range for rank %d", estimator.ErrInvalidParameter, ax, rank)
		}

		if slices.Contains(resolved, norm) {
			return nil, fmt.Errorf("%w: duplicate axis %d", estimator.ErrInvalidParameter, ax)
		}

		resolved = append(resolved, norm)
	}

	slices.Sort(resolved)

	return resolved, nil
}

func outShape(inShape, axes []int, keepDims bool) []int {
	out := make([]int, 0, len(inShape))

	for ax, d := range inShape {
		switch {
		case !slices.Contains(axes, ax):
			out = append(out, d)
		case keepDims:
			out = append(out, 1)
		}
	}

	return out
}
