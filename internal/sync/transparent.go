package sync

import "context"

// pollTransparent enumerates every non-ephemeral transparent address on
// each tip change and reconciles the address-indexed UTXO set into the
// data store. Ephemeral addresses are handled exclusively by the
// data-request task.
func (e *Engine) pollTransparent(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.tipChangedPoller:
		}

		addrs, err := e.store.NonEphemeralTransparentAddresses(ctx)
		if err != nil {
			return err
		}
		if len(addrs) == 0 {
			continue
		}

		utxos, err := e.chain.GetAddressUTXOs(ctx, addrs)
		if err != nil {
			return err
		}
		for _, u := range utxos {
			if err := e.store.UpsertTransparentUTXO(ctx, u); err != nil {
				return err
			}
		}
	}
}
