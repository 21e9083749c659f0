// Package pipeline instantiates layouts on a backend.Device and runs them.
//
// A [Context] replaces process-wide state: it owns the socket table and the
// geometry cache shared by the pipelines created in it. A [Pipeline] is
// built from a checked layout.PipelineLayout; each filter layout becomes a
// [Filter] holding a compiled program.
//
// # Buffer cells
//
// The render targets of a pipeline are grouped in buffer cells. A new
// pipeline has one cell. Additional cells let a frame read the output of a
// previous frame without a cycle in the layout:
//
//	next, _ := p.CreateBuffersCell()
//	prev := p.CurrentCell()
//	for range frames {
//		p.ChangeTargetBuffersCell(next)
//		in, _ := p.OutputInCell(0, prev)
//		if err := p.Process(in); err != nil {
//			return err
//		}
//		prev, next = next, prev
//	}
//
// Reading a render target of the target cell fails with ErrFeedbackHazard.
//
// # Errors
//
// A draw failure during the first run of a filter breaks it: every later
// run fails with ErrFilterBroken. Errors naming a filter are *FilterError
// values carrying its qualified path.
package pipeline
