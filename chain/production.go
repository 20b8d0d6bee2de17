package chain

import (
	"github.com/chainsimlab/chainsim/claim"
	"github.com/chainsimlab/chainsim/proc"
	"github.com/chainsimlab/chainsim/resource"
	"github.com/chainsimlab/chainsim/sim"
	"github.com/chainsimlab/chainsim/tracing"
)

// ProductionBody returns the manufacturing loop of a unit: claim the needed
// inputs, hold for the production time, consume the inputs, and deposit
// fresh output components.
//
// Output storage is checked before the claim so that the deposit can never
// overflow the cap; a full output location makes the unit self-throttle one
// tick at a time. A missing input parks the process on the claim engine; no
// explicit retry is needed.
func ProductionBody(u *ManufacturingUnit, bag *DataBag) proc.Body {
	return func(ctx *proc.Context) error {
		for {
			if u.OutputLocation.Size()+u.ProductionSize > u.OutputStorageCap {
				if err := ctx.Hold(1); err != nil {
					return err
				}

				continue
			}

			req := make(claim.Requirement, 0, len(u.inputsOrder))
			for _, kind := range u.inputsOrder {
				req = append(req,
					claim.KindAtom(u.InputLocation, kind, u.InputsNeeded[kind]))
			}

			h, err := ctx.Claim(req)
			if err != nil {
				return err
			}

			taskID := sim.GetIDGenerator().Generate()
			tracing.StartTask(taskID, "", ctx.Process(), "production_cycle",
				u.name, nil)

			if err := ctx.Hold(u.ProductionTime); err != nil {
				return err
			}

			// Inputs stay reserved at the input location for the duration of
			// the cycle and are withdrawn when it completes.
			if _, err := ctx.Consume(h); err != nil {
				return err
			}

			outputs := make([]resource.Resource, u.ProductionSize)
			for i := range outputs {
				outputs[i] = resource.NewComponent(
					u.outputKind, u.InputLocation.Name())
			}

			if err := ctx.Add(u.OutputLocation, outputs...); err != nil {
				return err
			}

			if u.finalStage {
				bag.Add(TotalFinalOutput, int64(u.ProductionSize))
			}

			tracing.EndTask(taskID, ctx.Process())
		}
	}
}
