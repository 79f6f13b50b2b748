package bot

import (
	"github.com/newyorkcompute/kalshi-mm/internal/orders"
	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// applyDecision reconciles desired against the order manager's view of
// (ticker, side) and dispatches whatever venue call the decision
// requires. Desired prices are always expressed in YES-price terms,
// including for the NO side: a YES ask at p is placed as a NO buy at
// its complement, so the manager's bookkeeping stays in one coordinate
// system regardless of which side is quoting it.
func (b *Bot) applyDecision(ticker string, side types.Side, desired *types.Desired) {
	decision := b.orders.Reconcile(ticker, side, desired, priceTolerance)
	switch decision.Action {
	case orders.ActionNone:
		return
	case orders.ActionPlace:
		b.place(ticker, side, decision.Desired)
	case orders.ActionCancel:
		b.cancelSide(ticker, side)
	case orders.ActionReplace:
		b.replace(ticker, side, decision.Desired)
	}
}

func orderPrice(side types.Side, yesPrice int) int {
	if side == types.No {
		return types.Complement(yesPrice)
	}
	return yesPrice
}

func (b *Bot) place(ticker string, side types.Side, desired types.Desired) {
	b.orders.BeginPlace(ticker, side, desired)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		price := orderPrice(side, desired.Price)
		venueID, err := b.client.PlaceOrder(b.ctx, ticker, side, types.Buy, price, desired.Size)
		if err != nil {
			b.logger.Warn("place order failed", "ticker", ticker, "side", side, "error", err)
			if pending := b.orders.OnPlaceFailed(ticker, side); pending != nil {
				b.applyDecision(ticker, side, pending)
			}
			return
		}

		if pending := b.orders.OnPlaceAck(ticker, side, venueID); pending != nil {
			b.applyDecision(ticker, side, pending)
		}
	}()
}

func (b *Bot) cancelSide(ticker string, side types.Side) {
	order, ok := b.orders.Get(ticker, side)
	if !ok || order.VenueID == "" {
		return
	}

	b.orders.BeginCancel(ticker, side)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		if err := b.client.CancelOrder(b.ctx, order.VenueID); err != nil {
			b.logger.Warn("cancel order failed", "ticker", ticker, "side", side, "error", err)
		}

		if pending := b.orders.OnCancelAck(ticker, side); pending != nil {
			b.applyDecision(ticker, side, pending)
		}
	}()
}

// replace cancels the resting order and places the new desired state
// once the cancel is acknowledged. The order manager has no atomic
// replace call at the venue, so this is a deliberate two-step sequence
// with the in-flight invariant covering the gap between them.
func (b *Bot) replace(ticker string, side types.Side, desired types.Desired) {
	order, ok := b.orders.Get(ticker, side)
	if !ok || order.VenueID == "" {
		b.place(ticker, side, desired)
		return
	}

	b.orders.BeginCancel(ticker, side)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		if err := b.client.CancelOrder(b.ctx, order.VenueID); err != nil {
			b.logger.Warn("cancel during replace failed", "ticker", ticker, "side", side, "error", err)
		}

		pending := b.orders.OnCancelAck(ticker, side)
		b.place(ticker, side, desired)
		if pending != nil {
			b.applyDecision(ticker, side, pending)
		}
	}()
}
