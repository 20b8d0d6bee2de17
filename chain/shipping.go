package chain

import (
	"math"

	"github.com/chainsimlab/chainsim/claim"
	"github.com/chainsimlab/chainsim/proc"
	"github.com/chainsimlab/chainsim/sim"
	"github.com/chainsimlab/chainsim/tracing"
)

// ShippingBody returns the transport loop of a route. Receivers are visited
// in the route's fixed order; a receiver whose input storage cannot take a
// full batch blocks the route one tick at a time until it can.
//
// The defect share of every batch is discarded at the source upon claim and
// never delivered. Whether a leg is delayed is decided by a single uniform
// draw per shipping event; the source semantics delay when the draw EXCEEDS
// the threshold.
func ShippingBody(r *ShippingRoute, bag *DataBag) proc.Body {
	return func(ctx *proc.Context) error {
		for {
			for _, receiver := range r.receiverOrder {
				if err := shipOnce(ctx, r, receiver, bag); err != nil {
					return err
				}
			}
		}
	}
}

func shipOnce(
	ctx *proc.Context,
	r *ShippingRoute,
	receiver *ManufacturingUnit,
	bag *DataBag,
) error {
	for receiver.InputLocation.Size()+r.BatchSize > receiver.InputStorageCap {
		if err := ctx.Hold(1); err != nil {
			return err
		}
	}

	actualBatch := int(math.Ceil(
		float64(r.BatchSize) * (1 - r.Supplier.DefectRate)))
	if actualBatch == 0 {
		return nil
	}

	h, err := ctx.Claim(claim.Requirement{
		claim.KindAtom(r.Supplier.OutputLocation, r.ComponentKind, actualBatch),
	})
	if err != nil {
		return err
	}

	bag.Add(NumDefectiveComponents, int64(r.BatchSize-actualBatch))

	taskID := sim.GetIDGenerator().Generate()
	tracing.StartTask(taskID, "", ctx.Process(), "shipment", receiver.name, nil)

	baseTime := r.shippingTimes[receiver]
	totalTime := baseTime

	draw := ctx.Rand().Float64()
	if draw > r.Supplier.ShippingDelayThreshold {
		delay := sim.VTime(float64(baseTime) * draw)
		totalTime += delay

		bag.Add(NumShippingDelays, 1)
		bag.Add(LengthOfDelays, int64(delay))

		if err := ctx.Hold(delay); err != nil {
			return err
		}
	}

	if err := ctx.Hold(baseTime); err != nil {
		return err
	}

	if err := ctx.Move(h, r.Supplier.OutputLocation,
		receiver.InputLocation); err != nil {
		return err
	}

	bag.Add(TotalShippingTimeWithDelays, int64(totalTime))
	bag.Add(NumDefectiveComponents, int64(r.BatchSize-actualBatch))
	bag.Add(NumComponentsShipped, int64(actualBatch))
	bag.Add(NumShippingsDone, 1)

	tracing.EndTask(taskID, ctx.Process())

	return nil
}
