package pipeline

import (
	"fmt"
	"maps"
	"slices"

	glip "github.com/ronan-kerviche/glip-lib-sub003"
	"github.com/ronan-kerviche/glip-lib-sub003/backend"
)

// cell is one set of render targets: a texture per filter output.
type cell struct {
	id int
	// textures is indexed by filter creation index, then output port.
	textures [][]backend.TextureID
}

// owner returns the filter output rendering into tex.
func (c *cell) owner(tex backend.TextureID) (outputRef, bool) {
	for f, outs := range c.textures {
		for port, t := range outs {
			if t == tex {
				return outputRef{filter: f, port: port}, true
			}
		}
	}
	return outputRef{}, false
}

func (c *cell) destroy(dev backend.Device) {
	for _, outs := range c.textures {
		for _, t := range outs {
			if t != backend.InvalidID {
				dev.DestroyTexture(t)
			}
		}
	}
	c.textures = nil
}

// CreateBuffersCell allocates a new set of render targets and returns its
// identifier. The target cell is unchanged.
func (p *Pipeline) CreateBuffersCell() (int, error) {
	if err := p.alive(); err != nil {
		return -1, err
	}
	c := &cell{id: p.nextCell, textures: make([][]backend.TextureID, len(p.filters))}
	for i, f := range p.filters {
		desc := f.layout.OutputFormat()
		c.textures[i] = make([]backend.TextureID, len(f.outputs))
		for port := range f.outputs {
			tex, err := p.ctx.device.CreateTexture(desc)
			if err != nil {
				c.destroy(p.ctx.device)
				return -1, &FilterError{
					Filter: f.label,
					Err:    &backend.PhaseError{Phase: backend.PhaseInit, Resource: fmt.Sprintf("render target %d", port), Err: err},
				}
			}
			c.textures[i][port] = tex
		}
	}
	p.nextCell++
	p.cells[c.id] = c
	p.ctx.metrics.SetCells(p.name, len(p.cells))
	glip.Logger().Info("pipeline: cell created", "pipeline", p.name, "cell", c.id)
	return c.id, nil
}

// ChangeTargetBuffersCell makes the next process calls render into the
// given cell.
func (p *Pipeline) ChangeTargetBuffersCell(id int) error {
	if err := p.alive(); err != nil {
		return err
	}
	c, ok := p.cells[id]
	if !ok {
		return fmt.Errorf("%w: %d in pipeline %s", ErrUnknownCell, id, p.name)
	}
	for i, f := range p.filters {
		for port, s := range f.outputs {
			if err := p.ctx.sockets.Bind(s, c.textures[i][port]); err != nil {
				return err
			}
		}
	}
	p.current = id
	return nil
}

// CurrentCell returns the target cell.
func (p *Pipeline) CurrentCell() int { return p.current }

// Cells returns the cell identifiers in increasing order.
func (p *Pipeline) Cells() []int {
	return slices.Sorted(maps.Keys(p.cells))
}

// ReleaseBuffersCell destroys the render targets of a cell other than the
// target cell. Textures of the cell previously returned by OutputInCell
// become invalid.
func (p *Pipeline) ReleaseBuffersCell(id int) error {
	if err := p.alive(); err != nil {
		return err
	}
	c, ok := p.cells[id]
	if !ok {
		return fmt.Errorf("%w: %d in pipeline %s", ErrUnknownCell, id, p.name)
	}
	if id == p.current {
		return fmt.Errorf("%w: %d is the target cell of pipeline %s", ErrCellInUse, id, p.name)
	}
	c.destroy(p.ctx.device)
	delete(p.cells, id)
	p.ctx.metrics.SetCells(p.name, len(p.cells))
	return nil
}
